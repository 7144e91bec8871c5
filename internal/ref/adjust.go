package ref

import "strings"

// Axis selects which dimension a structural edit shifts.
type Axis int

const (
	RowAxis Axis = iota
	ColAxis
)

// RefError replaces a reference invalidated by a structural delete. The
// formula lexer recognizes it as an error literal, so the cell evaluates to
// the reference error value instead of silently repointing.
const RefError = "#REF!"

// Adjust offsets the relative components of the reference, clamping to the
// sheet bounds. Absolute components never move.
func (r CellRef) Adjust(rowDelta, colDelta, maxRow, maxCol int) CellRef {
	out := r
	if !r.RowAbs {
		out.Row = clamp(r.Row+rowDelta, 0, maxRow)
	}
	if !r.ColAbs {
		out.Col = clamp(r.Col+colDelta, 0, maxCol)
	}
	return out
}

// AdjustFormula rewrites every reference in a formula body for a copy/fill
// offset. Text inside string literals is left alone.
func AdjustFormula(formula string, rowDelta, colDelta, maxRow, maxCol int) string {
	return rewriteRefs(formula, func(r CellRef) string {
		return r.Adjust(rowDelta, colDelta, maxRow, maxCol).String()
	})
}

// AdjustStructural rewrites references after a row/column insert (shift > 0)
// or delete (shift < 0) at the given boundary index. Absolute references
// shift too: they name a physical cell, and that cell moved. A reference
// into the deleted row/column, or pushed outside the sheet, becomes RefError.
func AdjustStructural(formula string, axis Axis, boundary, shift, maxRow, maxCol int) string {
	return rewriteRefs(formula, func(r CellRef) string {
		switch axis {
		case RowAxis:
			if shift < 0 && r.Row == boundary {
				return RefError
			}
			if r.Row >= boundary {
				n := r.Row + shift
				if n < 0 || n > maxRow {
					return RefError
				}
				r.Row = n
			}
		case ColAxis:
			if shift < 0 && r.Col == boundary {
				return RefError
			}
			if r.Col >= boundary {
				n := r.Col + shift
				if n < 0 || n > maxCol {
					return RefError
				}
				r.Col = n
			}
		}
		return r.String()
	})
}

// AdjustRangeStructural shifts a stored range (a named range, typically)
// across a row/column insert or delete. Inserting inside the box grows it,
// deleting inside shrinks it; the second result is false when nothing of the
// range survives.
func AdjustRangeStructural(rng RangeRef, axis Axis, boundary, shift, maxRow, maxCol int) (RangeRef, bool) {
	n := rng.Normalized()
	lo, hi := n.Start.Row, n.End.Row
	max := maxRow
	if axis == ColAxis {
		lo, hi = n.Start.Col, n.End.Col
		max = maxCol
	}
	if shift > 0 {
		if lo >= boundary {
			lo += shift
		}
		if hi >= boundary {
			hi += shift
		}
		if lo > max {
			return RangeRef{}, false
		}
		if hi > max {
			hi = max
		}
	} else {
		if lo > boundary {
			lo += shift
		}
		if hi >= boundary {
			hi += shift
		}
		if hi < lo {
			return RangeRef{}, false
		}
	}
	if axis == ColAxis {
		n.Start.Col, n.End.Col = lo, hi
	} else {
		n.Start.Row, n.End.Row = lo, hi
	}
	return n, true
}

// rewriteRefs scans formula text and feeds each cell reference through repl,
// copying everything else through verbatim.
func rewriteRefs(formula string, repl func(CellRef) string) string {
	var b strings.Builder
	b.Grow(len(formula))
	inStr := false
	for i := 0; i < len(formula); {
		c := formula[i]
		if c == '"' {
			inStr = !inStr
			b.WriteByte(c)
			i++
			continue
		}
		if !inStr && (c == '$' || isLetter(c)) && !midWord(formula, i) {
			if end, ok := matchRef(formula, i); ok {
				if r, err := ParseCell(formula[i:end]); err == nil {
					b.WriteString(repl(r))
					i = end
					continue
				}
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

// midWord reports whether position i continues an identifier already begun,
// so that the tail of a function name is never mistaken for a reference.
func midWord(s string, i int) bool {
	if i == 0 {
		return false
	}
	p := s[i-1]
	return isLetter(p) || (p >= '0' && p <= '9') || p == '$' || p == '_'
}

// matchRef matches [$]letters[$]digits starting at i and returns the end.
func matchRef(s string, i int) (int, bool) {
	j := i
	if j < len(s) && s[j] == '$' {
		j++
	}
	letters := 0
	for j < len(s) && isLetter(s[j]) {
		j++
		letters++
	}
	if letters == 0 {
		return 0, false
	}
	if j < len(s) && s[j] == '$' {
		j++
	}
	digits := 0
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	return j, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
