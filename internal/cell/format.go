package cell

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatType is the base family of a Lotus format code.
type FormatType int

const (
	FormatGeneral FormatType = iota // G
	FormatFixed                     // F0-F15
	FormatScientific                // S0-S15
	FormatCurrency                  // C0-C15
	FormatComma                     // ,0-,15
	FormatPercent                   // P0-P15
	FormatDate                      // D1-D9
	FormatTime                      // T1-T4
	FormatHidden                    // H
	FormatPlusMinus                 // +
)

// FormatSpec is a parsed format code.
type FormatSpec struct {
	Type           FormatType
	Decimals       int
	Variant        int // date/time variant number
	CurrencySymbol string
}

// NormalizeFormatCode validates user input and returns the canonical code.
func NormalizeFormatCode(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	switch {
	case c == "" || c == "G":
		return "G", nil
	case c == "H" || c == "+":
		return c, nil
	}
	head, tail := c[:1], c[1:]
	switch head {
	case "F", "S", "C", "P", ",":
		if tail == "" {
			return head + "2", nil
		}
		if n, err := strconv.Atoi(tail); err == nil && n >= 0 && n <= 15 {
			return head + tail, nil
		}
	case "D":
		if tail == "" {
			return "D1", nil
		}
		if n, err := strconv.Atoi(tail); err == nil && n >= 1 && n <= 9 {
			return c, nil
		}
	case "T":
		if tail == "" {
			return "T1", nil
		}
		if n, err := strconv.Atoi(tail); err == nil && n >= 1 && n <= 4 {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid format code %q", code)
}

// ParseFormatCode parses a normalized code; anything unrecognized falls back
// to general.
func ParseFormatCode(code string) FormatSpec {
	c := strings.ToUpper(strings.TrimSpace(code))
	spec := FormatSpec{Type: FormatGeneral, Decimals: 2, CurrencySymbol: "$"}
	if c == "" || c == "G" {
		return spec
	}
	if c == "H" {
		spec.Type = FormatHidden
		return spec
	}
	if c == "+" {
		spec.Type = FormatPlusMinus
		return spec
	}
	n := 2
	if len(c) > 1 {
		if v, err := strconv.Atoi(c[1:]); err == nil {
			n = v
		}
	}
	switch c[0] {
	case 'F':
		spec.Type, spec.Decimals = FormatFixed, clampDec(n)
	case 'S':
		spec.Type, spec.Decimals = FormatScientific, clampDec(n)
	case 'C':
		spec.Type, spec.Decimals = FormatCurrency, clampDec(n)
	case ',':
		spec.Type, spec.Decimals = FormatComma, clampDec(n)
	case 'P':
		spec.Type, spec.Decimals = FormatPercent, clampDec(n)
	case 'D':
		spec.Type = FormatDate
		spec.Variant = n
		if n < 1 || n > 9 {
			spec.Variant = 1
		}
	case 'T':
		spec.Type = FormatTime
		spec.Variant = n
		if n < 1 || n > 4 {
			spec.Variant = 1
		}
	}
	return spec
}

// Format renders a value under this spec. Errors always show their tag and
// the hidden format suppresses everything else.
func (s FormatSpec) Format(v Value, width int) string {
	if s.Type == FormatHidden {
		return ""
	}
	if v.IsEmpty() {
		return ""
	}
	if v.IsError() {
		return v.Err.Tag()
	}
	if s.Type == FormatGeneral {
		return v.Display()
	}
	f, errk := v.AsNumber()
	if errk != ErrNone {
		// non-numeric under a numeric format: show the text as-is
		return v.Display()
	}
	switch s.Type {
	case FormatFixed:
		return strconv.FormatFloat(f, 'f', s.Decimals, 64)
	case FormatScientific:
		return strings.ToUpper(strconv.FormatFloat(f, 'E', s.Decimals, 64))
	case FormatCurrency:
		if f < 0 {
			return "(" + s.CurrencySymbol + groupThousands(-f, s.Decimals) + ")"
		}
		return s.CurrencySymbol + groupThousands(f, s.Decimals)
	case FormatComma:
		return groupThousands(f, s.Decimals)
	case FormatPercent:
		return strconv.FormatFloat(f*100, 'f', s.Decimals, 64) + "%"
	case FormatDate:
		return formatDate(f, s.Variant)
	case FormatTime:
		return formatTime(f, s.Variant)
	case FormatPlusMinus:
		return plusMinusBar(f, width)
	}
	return v.Display()
}

func clampDec(n int) int {
	if n < 0 {
		return 0
	}
	if n > 15 {
		return 15
	}
	return n
}

func groupThousands(f float64, decimals int) string {
	s := strconv.FormatFloat(f, 'f', decimals, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
		if len(intPart) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(intPart); i += 3 {
		b.WriteString(intPart[i : i+3])
		if i+3 < len(intPart) {
			b.WriteByte(',')
		}
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// Day 0 of the Lotus serial calendar is Dec 31, 1899. Serial 60 is the
// nonexistent Feb 29, 1900 (the 1900 leap-year quirk), so serials from 60 up
// are shifted down by one when converting.
var lotusEpoch = time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)

func SerialToDate(serial float64) time.Time {
	d := int(serial)
	if d >= 60 {
		d--
	}
	return lotusEpoch.AddDate(0, 0, d)
}

func DateToSerial(t time.Time) int {
	days := int(t.Sub(lotusEpoch).Hours() / 24)
	if days >= 60 {
		days++
	}
	return days
}

var dateLayouts = map[int]string{
	1: "02-Jan-06",
	2: "02-Jan",
	3: "Jan-06",
	4: "01/02/06",
	5: "01/02",
	6: "02-Jan-2006",
	7: "2006-01-02",
	8: "02/01/06",
	9: "02.01.2006",
}

func formatDate(serial float64, variant int) string {
	layout, ok := dateLayouts[variant]
	if !ok {
		layout = dateLayouts[1]
	}
	out := SerialToDate(serial).Format(layout)
	// the dash variants display month abbreviations in caps
	if strings.Contains(layout, "Jan") {
		out = strings.ToUpper(out)
	}
	return out
}

var timeLayouts = map[int]string{
	1: "03:04:05 PM",
	2: "03:04 PM",
	3: "15:04:05",
	4: "15:04",
}

func formatTime(serial float64, variant int) string {
	frac := serial - float64(int(serial))
	if frac < 0 {
		frac += 1
	}
	total := int(frac * 86400)
	t := time.Date(0, 1, 1, total/3600, (total%3600)/60, total%60, 0, time.UTC)
	layout, ok := timeLayouts[variant]
	if !ok {
		layout = timeLayouts[1]
	}
	return t.Format(layout)
}

// plusMinusBar draws the value as a row of + or - characters, the old
// horizontal bar-graph format. Magnitude 10 fills the cell.
func plusMinusBar(f float64, width int) string {
	if width < 2 {
		width = 10
	}
	mag := f
	if mag < 0 {
		mag = -mag
	}
	if mag > 10 {
		mag = 10
	}
	n := int(mag / 10 * float64(width-1))
	if f >= 0 {
		return strings.Repeat("+", n)
	}
	return strings.Repeat("-", n)
}
