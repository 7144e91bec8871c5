package ref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColIndexRoundTrip(t *testing.T) {
	cases := map[string]int{
		"A":  0,
		"Z":  25,
		"AA": 26,
		"AZ": 51,
		"BA": 52,
		"IV": 255,
	}
	for col, idx := range cases {
		assert.Equal(t, idx, ColToIndex(col), col)
		assert.Equal(t, col, IndexToCol(idx), col)
	}
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		in      string
		want    CellRef
		wantErr bool
	}{
		{in: "A1", want: CellRef{Row: 0, Col: 0}},
		{in: "b2", want: CellRef{Row: 1, Col: 1}},
		{in: "$C3", want: CellRef{Row: 2, Col: 2, ColAbs: true}},
		{in: "C$3", want: CellRef{Row: 2, Col: 2, RowAbs: true}},
		{in: "$D$4", want: CellRef{Row: 3, Col: 3, RowAbs: true, ColAbs: true}},
		{in: "IV65536", want: CellRef{Row: 65535, Col: 255}},
		{in: "IW1", wantErr: true},
		{in: "A65537", wantErr: true},
		{in: "A0", wantErr: true},
		{in: "1A", wantErr: true},
		{in: "A", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCell(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCellRefString(t *testing.T) {
	for _, s := range []string{"A1", "$A1", "A$1", "$A$1", "AB12"} {
		r, err := ParseCell(s)
		require.NoError(t, err)
		assert.Equal(t, s, r.String())
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("B2:A1")
	require.NoError(t, err)
	n := r.Normalized()
	assert.Equal(t, 0, n.Start.Row)
	assert.Equal(t, 0, n.Start.Col)
	assert.Equal(t, 1, n.End.Row)
	assert.Equal(t, 1, n.End.Col)
	assert.Equal(t, 2, n.RowCount())
	assert.Equal(t, 2, n.ColCount())
	assert.True(t, r.Contains(Addr{Row: 1, Col: 0}))
	assert.False(t, r.Contains(Addr{Row: 2, Col: 0}))

	_, err = ParseRange("A1")
	assert.Error(t, err)
}
