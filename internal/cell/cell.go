package cell

import (
	"strconv"
	"strings"
)

// ContentKind is resolved once, when the raw text is written. Nothing
// re-inspects sigils after that.
type ContentKind int

const (
	ContentEmpty ContentKind = iota
	ContentNumber
	ContentLabel
	ContentFormula
)

// Align is the label alignment selected by the sigil.
type Align int

const (
	AlignLeft   Align = iota // '
	AlignRight               // "
	AlignCenter              // ^
	AlignRepeat              // \
)

// Cell is one grid entry: raw text, its resolved interpretation, a format
// code, and the memoized evaluation result.
type Cell struct {
	Raw       string
	Kind      ContentKind
	Number    float64 // ContentNumber
	Label     string  // ContentLabel, sigil stripped
	Align     Align
	Formula   string // ContentFormula, '='/'@' stripped; sign sigils kept
	Format    string // normalized format code, "" means general
	Protected bool

	Cached   Value
	HasCache bool
}

func New(text string) *Cell {
	c := &Cell{}
	c.SetText(text)
	return c
}

// SetText replaces the raw text and re-resolves the content kind. A leading
// '=' or '@' always makes a formula; '+' or '-' only when the whole text is
// not a plain number (in which case the sign stays part of the body). The
// label sigils ' " ^ \ pick the alignment.
func (c *Cell) SetText(text string) {
	c.Raw = text
	c.ClearCache()
	c.Kind = ContentEmpty
	c.Number = 0
	c.Label = ""
	c.Formula = ""
	c.Align = AlignLeft
	if text == "" {
		return
	}
	switch text[0] {
	case '=', '@':
		c.Kind = ContentFormula
		c.Formula = text[1:]
		return
	case '\'':
		c.setLabel(text[1:], AlignLeft)
		return
	case '"':
		c.setLabel(text[1:], AlignRight)
		return
	case '^':
		c.setLabel(text[1:], AlignCenter)
		return
	case '\\':
		c.setLabel(text[1:], AlignRepeat)
		return
	case '+', '-':
		if _, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err != nil {
			c.Kind = ContentFormula
			c.Formula = text
			return
		}
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(text), ",", ""), 64); err == nil {
		c.Kind = ContentNumber
		c.Number = f
		return
	}
	c.setLabel(text, AlignLeft)
}

func (c *Cell) setLabel(s string, a Align) {
	c.Kind = ContentLabel
	c.Label = s
	c.Align = a
}

func (c *Cell) IsFormula() bool { return c.Kind == ContentFormula }
func (c *Cell) IsEmpty() bool   { return c.Kind == ContentEmpty }

func (c *Cell) ClearCache() {
	c.Cached = Value{}
	c.HasCache = false
}

// LiteralValue is the value of a non-formula cell.
func (c *Cell) LiteralValue() Value {
	switch c.Kind {
	case ContentNumber:
		return Number(c.Number)
	case ContentLabel:
		return Text(c.Label)
	default:
		return Empty()
	}
}
