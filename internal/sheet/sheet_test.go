package sheet

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotus/internal/cell"
	"lotus/internal/ref"
)

func set(t *testing.T, s *Spreadsheet, at, text string) {
	t.Helper()
	a, err := ref.ParseAddr(at)
	require.NoError(t, err)
	require.NoError(t, s.SetCell(a.Row, a.Col, text))
}

func valAt(t *testing.T, s *Spreadsheet, at string) cell.Value {
	t.Helper()
	a, err := ref.ParseAddr(at)
	require.NoError(t, err)
	return s.GetValue(a.Row, a.Col)
}

func numAt(t *testing.T, s *Spreadsheet, at string) float64 {
	t.Helper()
	v := valAt(t, s, at)
	require.Equal(t, cell.KindNumber, v.Kind, "%s: %+v", at, v)
	return v.Num
}

func TestSimpleSum(t *testing.T) {
	s := New()
	set(t, s, "A1", "10")
	set(t, s, "B1", "20")
	set(t, s, "C1", "=A1+B1")
	assert.Equal(t, 30.0, numAt(t, s, "C1"))
}

func TestCircularPair(t *testing.T) {
	s := New()
	set(t, s, "A1", "=B1")
	set(t, s, "B1", "=A1")
	v := valAt(t, s, "A1")
	require.True(t, v.IsError())
	assert.Equal(t, cell.ErrCircular, v.Err)
	assert.True(t, s.HasCircularRefs())

	// breaking the cycle clears the flag
	set(t, s, "B1", "5")
	assert.Equal(t, 5.0, numAt(t, s, "A1"))
	assert.False(t, s.HasCircularRefs())
}

func TestAutomaticPropagation(t *testing.T) {
	s := New()
	set(t, s, "A1", "10")
	set(t, s, "A2", "=A1*2")
	assert.Equal(t, 20.0, numAt(t, s, "A2"))

	set(t, s, "A1", "20")
	// no explicit recalculate
	assert.Equal(t, 40.0, numAt(t, s, "A2"))
	assert.False(t, s.NeedsRecalc())
}

func TestSumSkipsNonNumeric(t *testing.T) {
	s := New()
	set(t, s, "A1", "=SUM(B1:B3)")
	set(t, s, "B1", "1")
	set(t, s, "B2", "2")
	set(t, s, "B3", "x")
	assert.Equal(t, 3.0, numAt(t, s, "A1"))
}

func TestManualMode(t *testing.T) {
	s := New()
	set(t, s, "A1", "10")
	set(t, s, "A2", "=A1*2")
	require.Equal(t, 20.0, numAt(t, s, "A2"))

	s.SetRecalcMode(Manual)
	set(t, s, "A1", "30")
	// the dependent keeps its last computed value until the pass runs
	assert.Equal(t, 20.0, numAt(t, s, "A2"))
	assert.True(t, s.NeedsRecalc())

	s.Recalculate()
	assert.Equal(t, 60.0, numAt(t, s, "A2"))
	assert.False(t, s.NeedsRecalc())
}

func TestSwitchingBackToAutomaticRecalculates(t *testing.T) {
	s := New()
	set(t, s, "A1", "1")
	set(t, s, "A2", "=A1+1")
	s.SetRecalcMode(Manual)
	set(t, s, "A1", "5")
	require.True(t, s.NeedsRecalc())
	s.SetRecalcMode(Automatic)
	assert.False(t, s.NeedsRecalc())
	assert.Equal(t, 6.0, numAt(t, s, "A2"))
}

func TestIdempotentEvaluation(t *testing.T) {
	s := New()
	set(t, s, "A1", "2")
	set(t, s, "A2", "=A1*3")
	first := valAt(t, s, "A2")
	second := valAt(t, s, "A2")
	assert.Equal(t, first, second)

	// nothing is dirty, so a pass does no work
	stats := s.Recalculate()
	assert.Zero(t, stats.CellsEvaluated)
}

func TestDependencySoundness(t *testing.T) {
	s := New()
	set(t, s, "C1", "=A1+SUM(B1:B2)")
	deps := s.Graph().Edges(ref.Addr{Row: 0, Col: 2})
	require.Len(t, deps, 2)
	assert.Equal(t, ref.Addr{Row: 0, Col: 0}, deps[0].Cell.Addr())
	assert.True(t, deps[1].IsRange)

	// a new formula replaces the edges wholesale
	set(t, s, "C1", "=D1")
	deps = s.Graph().Edges(ref.Addr{Row: 0, Col: 2})
	require.Len(t, deps, 1)
	assert.Equal(t, ref.Addr{Row: 0, Col: 3}, deps[0].Cell.Addr())

	// and clearing the cell drops them
	set(t, s, "C1", "")
	assert.Empty(t, s.Graph().Edges(ref.Addr{Row: 0, Col: 2}))
}

func TestLongCycleTerminates(t *testing.T) {
	s := New()
	s.SetRecalcMode(Manual)
	const n = 200
	for i := 0; i < n; i++ {
		next := (i+1)%n + 1
		set(t, s, fmt.Sprintf("A%d", i+1), fmt.Sprintf("=A%d", next))
	}
	s.Recalculate()
	v := valAt(t, s, "A1")
	require.True(t, v.IsError())
	assert.Equal(t, cell.ErrCircular, v.Err)
	assert.True(t, s.HasCircularRefs())
}

func TestOrderEquivalence(t *testing.T) {
	build := func(order RecalcOrder) float64 {
		s := New()
		s.SetRecalcMode(Manual)
		s.SetRecalcOrder(order)
		// dependents deliberately placed before their dependencies in scan order
		set(t, s, "A1", "=B2+1")
		set(t, s, "B1", "=B2*2")
		set(t, s, "B2", "=C3+1")
		set(t, s, "C3", "4")
		s.Recalculate()
		return numAt(t, s, "A1") + numAt(t, s, "B1")
	}
	natural := build(Natural)
	assert.Equal(t, natural, build(ColumnWise))
	assert.Equal(t, natural, build(RowWise))
	assert.Equal(t, 16.0, natural) // 6 + 10
}

func TestErrorIsLocal(t *testing.T) {
	s := New()
	set(t, s, "A1", "=1/0")
	set(t, s, "B1", "=A1+1")
	set(t, s, "C1", "=2+3")

	v := valAt(t, s, "A1")
	require.True(t, v.IsError())
	assert.Equal(t, cell.ErrDivZero, v.Err)

	v = valAt(t, s, "B1")
	require.True(t, v.IsError())
	assert.Equal(t, cell.ErrDivZero, v.Err)

	// an independent cell still computes
	assert.Equal(t, 5.0, numAt(t, s, "C1"))
}

func TestRangeObserverDirtiesAggregate(t *testing.T) {
	s := New()
	set(t, s, "C1", "=SUM(A1:A3)")
	require.Equal(t, 0.0, numAt(t, s, "C1"))
	// writing inside the observed box reaches the aggregate
	set(t, s, "A2", "7")
	assert.Equal(t, 7.0, numAt(t, s, "C1"))
}

func TestProtectedCell(t *testing.T) {
	s := New()
	set(t, s, "A1", "1")
	require.NoError(t, s.SetProtected(0, 0, true))
	err := s.SetCell(0, 0, "2")
	require.Error(t, err)
	assert.Equal(t, 1.0, numAt(t, s, "A1"))

	require.NoError(t, s.SetProtected(0, 0, false))
	require.NoError(t, s.SetCell(0, 0, "2"))
	assert.Equal(t, 2.0, numAt(t, s, "A1"))
}

func TestBoundsChecking(t *testing.T) {
	s := New()
	assert.Error(t, s.SetCell(-1, 0, "x"))
	assert.Error(t, s.SetCell(0, ref.MaxCols, "x"))
	assert.Error(t, s.SetCell(ref.MaxRows, 0, "x"))
	assert.NoError(t, s.SetCell(ref.MaxRows-1, ref.MaxCols-1, "x"))
}

func TestGetRange(t *testing.T) {
	s := New()
	set(t, s, "A1", "1")
	set(t, s, "B1", "2")
	set(t, s, "A2", "3")
	set(t, s, "B2", "=A1+B1")
	rng, err := ref.ParseRange("A1:B2")
	require.NoError(t, err)

	grid := s.GetRange(rng)
	require.Len(t, grid, 2)
	assert.Equal(t, 3.0, grid[0][0].Num+grid[0][1].Num)
	assert.Equal(t, 3.0, grid[1][1].Num)

	flat := s.GetRangeFlat(rng)
	require.Len(t, flat, 4)
}

func TestDisplayValueUsesFormat(t *testing.T) {
	s := New()
	set(t, s, "A1", "1234.5")
	require.NoError(t, s.SetFormat(0, 0, "C2"))
	assert.Equal(t, "$1,234.50", s.GetDisplayValue(0, 0))

	set(t, s, "B1", "=1/0")
	assert.Equal(t, "#DIV/0!", s.GetDisplayValue(0, 1))

	assert.Error(t, s.SetFormat(0, 0, "Z9"))
}

func TestLabelAndEmptyValues(t *testing.T) {
	s := New()
	set(t, s, "A1", "'hello")
	v := valAt(t, s, "A1")
	assert.Equal(t, cell.Text("hello"), v)
	assert.True(t, valAt(t, s, "Z9").IsEmpty())
}

func TestCellStates(t *testing.T) {
	s := New()
	s.SetRecalcMode(Manual)
	set(t, s, "A1", "1")
	set(t, s, "A2", "=A1")
	assert.Equal(t, Dirty, s.State(0, 0))
	s.Recalculate()
	assert.Equal(t, Clean, s.State(0, 0))
	assert.Equal(t, Clean, s.State(1, 0))

	set(t, s, "A2", "=A2")
	s.Recalculate()
	assert.Equal(t, CircularDetected, s.State(1, 0))
}
