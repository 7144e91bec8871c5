package ref

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjustFormulaRelativeAndAbsolute(t *testing.T) {
	maxR, maxC := MaxRows-1, MaxCols-1
	tests := []struct {
		name string
		in   string
		dr   int
		dc   int
		want string
	}{
		{name: "relative shifts every ref", in: "A1+B1", dr: 1, dc: 0, want: "A2+B2"},
		{name: "anchored stays", in: "$A$1+B1", dr: 1, dc: 1, want: "$A$1+C2"},
		{name: "mixed anchor", in: "$A1+A$1", dr: 2, dc: 3, want: "$A3+D$1"},
		{name: "column shift", in: "SUM(A1:A3)", dr: 0, dc: 1, want: "SUM(B1:B3)"},
		{name: "clamps at zero", in: "A1+A2", dr: -5, dc: 0, want: "A1+A1"},
		{name: "function name untouched", in: "SUM(A1)", dr: 0, dc: 1, want: "SUM(B1)"},
		{name: "string literal untouched", in: "CONCATENATE(\"A1\",B1)", dr: 1, dc: 0, want: "CONCATENATE(\"A1\",B2)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AdjustFormula(tc.in, tc.dr, tc.dc, maxR, maxC))
		})
	}
}

func TestAdjustStructural(t *testing.T) {
	maxR, maxC := MaxRows-1, MaxCols-1
	tests := []struct {
		name     string
		in       string
		axis     Axis
		boundary int
		shift    int
		want     string
	}{
		{name: "insert row shifts below", in: "A1+A5", axis: RowAxis, boundary: 2, shift: 1, want: "A1+A6"},
		{name: "insert row at top shifts all", in: "A1+1", axis: RowAxis, boundary: 0, shift: 1, want: "A2+1"},
		{name: "delete row invalidates", in: "A3*2", axis: RowAxis, boundary: 2, shift: -1, want: "#REF!*2"},
		{name: "delete row shifts later rows", in: "A5*2", axis: RowAxis, boundary: 2, shift: -1, want: "A4*2"},
		{name: "absolute shifts too", in: "$A$5", axis: RowAxis, boundary: 0, shift: 1, want: "$A$6"},
		{name: "insert col", in: "B1+C1", axis: ColAxis, boundary: 1, shift: 1, want: "C1+D1"},
		{name: "delete col invalidates", in: "B1+C1", axis: ColAxis, boundary: 1, shift: -1, want: "#REF!+B1"},
		{name: "rows before boundary untouched", in: "A1+A2", axis: RowAxis, boundary: 5, shift: -1, want: "A1+A2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AdjustStructural(tc.in, tc.axis, tc.boundary, tc.shift, maxR, maxC))
		})
	}
}

func TestAdjustRangeStructural(t *testing.T) {
	maxR, maxC := MaxRows-1, MaxCols-1
	box := func(r1, c1, r2, c2 int) RangeRef {
		return RangeRef{Start: CellRef{Row: r1, Col: c1}, End: CellRef{Row: r2, Col: c2}}
	}
	tests := []struct {
		name     string
		in       RangeRef
		axis     Axis
		boundary int
		shift    int
		want     RangeRef
		ok       bool
	}{
		{name: "insert inside grows", in: box(0, 0, 2, 0), axis: RowAxis, boundary: 1, shift: 1, want: box(0, 0, 3, 0), ok: true},
		{name: "insert before shifts", in: box(2, 0, 4, 0), axis: RowAxis, boundary: 0, shift: 1, want: box(3, 0, 5, 0), ok: true},
		{name: "insert after leaves alone", in: box(0, 0, 2, 0), axis: RowAxis, boundary: 5, shift: 1, want: box(0, 0, 2, 0), ok: true},
		{name: "delete inside shrinks", in: box(0, 0, 2, 0), axis: RowAxis, boundary: 1, shift: -1, want: box(0, 0, 1, 0), ok: true},
		{name: "delete before shifts", in: box(2, 0, 4, 0), axis: RowAxis, boundary: 0, shift: -1, want: box(1, 0, 3, 0), ok: true},
		{name: "delete whole range unbinds", in: box(1, 0, 1, 0), axis: RowAxis, boundary: 1, shift: -1, ok: false},
		{name: "column axis", in: box(0, 1, 0, 3), axis: ColAxis, boundary: 2, shift: 1, want: box(0, 1, 0, 4), ok: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := AdjustRangeStructural(tc.in, tc.axis, tc.boundary, tc.shift, maxR, maxC)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestAdjustStructuralOffSheet(t *testing.T) {
	got := AdjustStructural("A65536", RowAxis, 0, 1, MaxRows-1, MaxCols-1)
	assert.Equal(t, "#REF!", got)
}
