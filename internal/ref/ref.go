package ref

import (
	"fmt"
	"strconv"
	"strings"
)

// Sheet bounds, columns A through IV.
const (
	MaxRows = 65536
	MaxCols = 256
)

// Addr is a plain grid coordinate, used as the storage key for cells.
type Addr struct {
	Row int
	Col int
}

func (a Addr) String() string {
	return IndexToCol(a.Col) + strconv.Itoa(a.Row+1)
}

// CellRef is a parsed A1-style reference with absolute markers preserved.
type CellRef struct {
	Row    int
	Col    int
	RowAbs bool
	ColAbs bool
}

func (r CellRef) Addr() Addr {
	return Addr{Row: r.Row, Col: r.Col}
}

func (r CellRef) String() string {
	var b strings.Builder
	if r.ColAbs {
		b.WriteByte('$')
	}
	b.WriteString(IndexToCol(r.Col))
	if r.RowAbs {
		b.WriteByte('$')
	}
	b.WriteString(strconv.Itoa(r.Row + 1))
	return b.String()
}

// RangeRef is a rectangular block of cells.
type RangeRef struct {
	Start CellRef
	End   CellRef
}

func (r RangeRef) String() string {
	return r.Start.String() + ":" + r.End.String()
}

// Normalized returns the range with Start at the top-left corner.
func (r RangeRef) Normalized() RangeRef {
	n := r
	if n.Start.Row > n.End.Row {
		n.Start.Row, n.End.Row = n.End.Row, n.Start.Row
	}
	if n.Start.Col > n.End.Col {
		n.Start.Col, n.End.Col = n.End.Col, n.Start.Col
	}
	return n
}

func (r RangeRef) Contains(a Addr) bool {
	n := r.Normalized()
	return a.Row >= n.Start.Row && a.Row <= n.End.Row &&
		a.Col >= n.Start.Col && a.Col <= n.End.Col
}

func (r RangeRef) RowCount() int {
	n := r.Normalized()
	return n.End.Row - n.Start.Row + 1
}

func (r RangeRef) ColCount() int {
	n := r.Normalized()
	return n.End.Col - n.Start.Col + 1
}

// ColToIndex converts column letters to a 0-based index: A->0, Z->25, AA->26.
func ColToIndex(col string) int {
	n := 0
	for _, c := range strings.ToUpper(col) {
		n = n*26 + int(c-'A') + 1
	}
	return n - 1
}

// IndexToCol converts a 0-based index to column letters: 0->A, 25->Z, 26->AA.
func IndexToCol(idx int) string {
	if idx < 0 {
		return "?"
	}
	s := ""
	idx++
	for idx > 0 {
		idx--
		s = string(rune('A'+idx%26)) + s
		idx /= 26
	}
	return s
}

// ParseCell parses "A1", "$A1", "A$1" or "$A$1" into a CellRef.
func ParseCell(s string) (CellRef, error) {
	var r CellRef
	t := strings.TrimSpace(s)
	i := 0
	if i < len(t) && t[i] == '$' {
		r.ColAbs = true
		i++
	}
	colStart := i
	for i < len(t) && isLetter(t[i]) {
		i++
	}
	if i == colStart {
		return CellRef{}, fmt.Errorf("invalid cell reference %q", s)
	}
	col := t[colStart:i]
	if i < len(t) && t[i] == '$' {
		r.RowAbs = true
		i++
	}
	rowStart := i
	for i < len(t) && t[i] >= '0' && t[i] <= '9' {
		i++
	}
	if i != len(t) || rowStart == i {
		return CellRef{}, fmt.Errorf("invalid cell reference %q", s)
	}
	row, err := strconv.Atoi(t[rowStart:])
	if err != nil || row < 1 || row > MaxRows {
		return CellRef{}, fmt.Errorf("row out of range in %q", s)
	}
	r.Row = row - 1
	r.Col = ColToIndex(col)
	if r.Col >= MaxCols {
		return CellRef{}, fmt.Errorf("column out of range in %q", s)
	}
	return r, nil
}

// ParseAddr parses a reference and drops the absolute markers.
func ParseAddr(s string) (Addr, error) {
	r, err := ParseCell(s)
	if err != nil {
		return Addr{}, err
	}
	return r.Addr(), nil
}

// ParseRange parses "A1:B10" (absolute markers allowed on either end).
func ParseRange(s string) (RangeRef, error) {
	start, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return RangeRef{}, fmt.Errorf("invalid range %q", s)
	}
	a, err := ParseCell(start)
	if err != nil {
		return RangeRef{}, err
	}
	b, err := ParseCell(rest)
	if err != nil {
		return RangeRef{}, err
	}
	return RangeRef{Start: a, End: b}, nil
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
