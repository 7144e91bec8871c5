package cell

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind tags the Value union.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindNumber
	KindText
	KindError
)

// ErrorKind is the closed set of value-level errors. They are data, not Go
// errors: a cell holding one still renders, saves and recalculates.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrDivZero
	ErrCircular
	ErrName
	ErrRef
	ErrGeneric
)

var errorTags = map[ErrorKind]string{
	ErrDivZero:  "#DIV/0!",
	ErrCircular: "#CIRC!",
	ErrName:     "#NAME?",
	ErrRef:      "#REF!",
	ErrGeneric:  "#ERR!",
}

// Tag returns the display string for the error, e.g. "#DIV/0!".
func (e ErrorKind) Tag() string {
	if t, ok := errorTags[e]; ok {
		return t
	}
	return "#ERR!"
}

// ErrorFromTag resolves a display tag back to its kind. Used by the lexer so
// that rewriter-injected "#REF!" markers evaluate to the matching error.
func ErrorFromTag(tag string) (ErrorKind, bool) {
	up := strings.ToUpper(tag)
	for k, t := range errorTags {
		if t == up {
			return k, true
		}
	}
	return ErrNone, false
}

// Value is the result of evaluating a cell.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Err  ErrorKind
}

func Empty() Value               { return Value{Kind: KindEmpty} }
func Number(f float64) Value     { return Value{Kind: KindNumber, Num: f} }
func Text(s string) Value        { return Value{Kind: KindText, Str: s} }
func Error(e ErrorKind) Value    { return Value{Kind: KindError, Err: e} }

func (v Value) IsError() bool  { return v.Kind == KindError }
func (v Value) IsEmpty() bool  { return v.Kind == KindEmpty }
func (v Value) IsNumber() bool { return v.Kind == KindNumber }

// Display renders the value with no format code applied (general format).
func (v Value) Display() string {
	switch v.Kind {
	case KindEmpty:
		return ""
	case KindNumber:
		return FormatNumber(v.Num)
	case KindText:
		return v.Str
	default:
		return v.Err.Tag()
	}
}

// FormatNumber renders a float the way the general format does: integral
// values without a decimal point, everything else with up to 10 significant
// digits.
func FormatNumber(f float64) string {
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'g', 10, 64)
}

// AsNumber coerces to float64. Empty counts as zero; text must parse
// (commas tolerated); errors pass through their kind.
func (v Value) AsNumber() (float64, ErrorKind) {
	switch v.Kind {
	case KindEmpty:
		return 0, ErrNone
	case KindNumber:
		return v.Num, ErrNone
	case KindText:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v.Str), ",", ""), 64)
		if err != nil {
			return 0, ErrGeneric
		}
		return f, ErrNone
	default:
		return 0, v.Err
	}
}

// AsText coerces to a string; errors render their tag.
func (v Value) AsText() string {
	return v.Display()
}

// Truthy reports logical truth: nonzero numbers and non-empty text are true.
func (v Value) Truthy() (bool, ErrorKind) {
	switch v.Kind {
	case KindEmpty:
		return false, ErrNone
	case KindNumber:
		return v.Num != 0, ErrNone
	case KindText:
		return v.Str != "", ErrNone
	default:
		return false, v.Err
	}
}
