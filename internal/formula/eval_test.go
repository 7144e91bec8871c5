package formula

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotus/internal/cell"
	"lotus/internal/ref"
)

// mapResolver serves values from a map keyed by plain A1 addresses and
// remembers every read.
type mapResolver struct {
	vals  map[string]cell.Value
	names map[string]ref.RangeRef
	reads []string
}

func (m *mapResolver) CellValue(r ref.CellRef) cell.Value {
	a := r.Addr().String()
	m.reads = append(m.reads, a)
	if v, ok := m.vals[a]; ok {
		return v
	}
	return cell.Empty()
}

func (m *mapResolver) NameRange(name string) (ref.RangeRef, bool) {
	rng, ok := m.names[strings.ToUpper(name)]
	return rng, ok
}

func (m *mapResolver) RangeValues(rng ref.RangeRef) []cell.Value {
	n := rng.Normalized()
	var out []cell.Value
	for r := n.Start.Row; r <= n.End.Row; r++ {
		for c := n.Start.Col; c <= n.End.Col; c++ {
			out = append(out, m.CellValue(ref.CellRef{Row: r, Col: c}))
		}
	}
	return out
}

func evalText(text string, res Resolver) cell.Value {
	if res == nil {
		res = &mapResolver{}
	}
	return Eval(Tokenize(text), res)
}

func num(t *testing.T, v cell.Value) float64 {
	t.Helper()
	require.Equal(t, cell.KindNumber, v.Kind, "value: %+v", v)
	return v.Num
}

func TestArithmeticPrecedence(t *testing.T) {
	tests := map[string]float64{
		"1+2*3":     7,
		"(1+2)*3":   9,
		"10-4-3":    3,
		"2^3^2":     512, // right-associative
		"-2^2":      4,   // unary binds tighter
		"7%4":       3,
		"2*3^2":     18,
		"1+2=3":     1, // comparisons bind loosest
		"1+1>3":     0,
		"10/4":      2.5,
		"--5":       5,
		"2<=2":      1,
		"3<>3":      0,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, num(t, evalText(in, nil)))
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	for _, in := range []string{"1/0", "5%0", "MOD(3,0)"} {
		v := evalText(in, nil)
		require.True(t, v.IsError(), in)
		assert.Equal(t, cell.ErrDivZero, v.Err, in)
	}
}

func TestCellAndRangeResolution(t *testing.T) {
	res := &mapResolver{vals: map[string]cell.Value{
		"A1": cell.Number(10),
		"A2": cell.Number(20),
		"A3": cell.Text("x"),
	}}
	assert.Equal(t, 30.0, num(t, evalText("A1+A2", res)))
	assert.ElementsMatch(t, []string{"A1", "A2"}, res.reads)

	res.reads = nil
	assert.Equal(t, 30.0, num(t, evalText("SUM(A1:A3)", res)))
	assert.ElementsMatch(t, []string{"A1", "A2", "A3"}, res.reads)
}

func TestRangeInScalarPosition(t *testing.T) {
	res := &mapResolver{vals: map[string]cell.Value{"A1": cell.Number(1)}}
	v := evalText("A1:A3+1", res)
	require.True(t, v.IsError())
	assert.Equal(t, cell.ErrGeneric, v.Err)
}

func TestErrorPropagation(t *testing.T) {
	res := &mapResolver{vals: map[string]cell.Value{
		"A1": cell.Error(cell.ErrDivZero),
		"B1": cell.Number(2),
	}}
	v := evalText("A1+B1", res)
	require.True(t, v.IsError())
	assert.Equal(t, cell.ErrDivZero, v.Err)

	// an error inside a range poisons the aggregate
	v = evalText("SUM(A1:B1)", res)
	require.True(t, v.IsError())
	assert.Equal(t, cell.ErrDivZero, v.Err)
}

func TestErrorLiteralEvaluates(t *testing.T) {
	v := evalText("#REF!*2", nil)
	require.True(t, v.IsError())
	assert.Equal(t, cell.ErrRef, v.Err)
}

func TestScientificNotationEvaluates(t *testing.T) {
	res := &mapResolver{}
	assert.Equal(t, 1500.0, num(t, evalText("1.5E3", res)))
	// the exponent marker never turns into a cell reference
	assert.Empty(t, res.reads)
	assert.InDelta(t, 0.03, num(t, evalText("2e-2+1E-2", nil)), 1e-12)
}

func TestNamedRanges(t *testing.T) {
	res := &mapResolver{
		vals: map[string]cell.Value{
			"A1": cell.Number(1),
			"A2": cell.Number(2),
			"B1": cell.Number(5),
		},
		names: map[string]ref.RangeRef{
			"SALES": {Start: ref.CellRef{Row: 0, Col: 0}, End: ref.CellRef{Row: 1, Col: 0}},
			"RATE":  {Start: ref.CellRef{Row: 0, Col: 1}, End: ref.CellRef{Row: 0, Col: 1}},
		},
	}
	assert.Equal(t, 3.0, num(t, evalText("SUM(SALES)", res)))
	// a single-cell name works in scalar position, case-insensitively
	assert.Equal(t, 10.0, num(t, evalText("rate*2", res)))

	// a multi-cell name in scalar position is still an error
	v := evalText("SALES+1", res)
	require.True(t, v.IsError())
	assert.Equal(t, cell.ErrGeneric, v.Err)
}

func TestExtractDepsResolvesNames(t *testing.T) {
	names := map[string]ref.RangeRef{
		"SALES": {Start: ref.CellRef{Row: 0, Col: 0}, End: ref.CellRef{Row: 2, Col: 0}},
		"RATE":  {Start: ref.CellRef{Row: 0, Col: 1}, End: ref.CellRef{Row: 0, Col: 1}},
	}
	lookup := func(n string) (ref.RangeRef, bool) {
		rng, ok := names[n]
		return rng, ok
	}
	deps := ExtractDeps(Tokenize("SUM(SALES)+RATE+UNBOUND"), lookup)
	require.Len(t, deps, 2)
	assert.True(t, deps[0].IsRange)
	assert.Equal(t, 2, deps[0].Rng.End.Row)
	assert.False(t, deps[1].IsRange)
	assert.Equal(t, ref.Addr{Row: 0, Col: 1}, deps[1].Cell.Addr())
}

func TestUnknownFunctionAndIdent(t *testing.T) {
	v := evalText("FROBNICATE(1)", nil)
	require.True(t, v.IsError())
	assert.Equal(t, cell.ErrName, v.Err)

	v = evalText("BOGUS", nil)
	require.True(t, v.IsError())
	assert.Equal(t, cell.ErrName, v.Err)
}

func TestAggregates(t *testing.T) {
	res := &mapResolver{vals: map[string]cell.Value{
		"A1": cell.Number(1),
		"A2": cell.Number(2),
		"A3": cell.Text("x"),
	}}
	tests := map[string]float64{
		"SUM(A1:A4)":    3, // text and empty skipped
		"COUNT(A1:A4)":  2,
		"COUNTA(A1:A4)": 3,
		"MIN(A1:A2)":    1,
		"MAX(A1:A2, 9)": 9,
		"AVG(A1:A2)":    1.5,
		"AVERAGE(A1:A2)": 1.5,
		"AND(A1, A2)":   1,
		"OR(0, A1)":     1,
		"AND(A1, 0)":    0,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, num(t, evalText(in, res)))
		})
	}

	v := evalText("AVG(A3:A4)", res)
	require.True(t, v.IsError())
	assert.Equal(t, cell.ErrDivZero, v.Err)
}

func TestScalarFunctions(t *testing.T) {
	tests := map[string]float64{
		"ABS(-3)":        3,
		"INT(2.9)":       2,
		"INT(-2.9)":      -2,
		"ROUND(1.2345,2)": 1.23,
		"ROUND(2.5)":     3,
		"SQRT(16)":       4,
		"POWER(2,10)":    1024,
		"MOD(-3,2)":      1, // sign follows the divisor
		"LEN(\"abcd\")":  4,
		"VALUE(\"12.5\")": 12.5,
		"NOT(0)":         1,
		"LOG(100)":       2,
		"EXP(0)":         1,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.InDelta(t, want, num(t, evalText(in, nil)), 1e-9)
		})
	}

	assert.InDelta(t, 3.14159265, num(t, evalText("PI()", nil)), 1e-6)
}

func TestTextFunctions(t *testing.T) {
	tests := map[string]string{
		"LEFT(\"hello\",2)":           "he",
		"RIGHT(\"hello\",3)":          "llo",
		"MID(\"hello\",2,3)":          "ell",
		"UPPER(\"abc\")":              "ABC",
		"LOWER(\"ABC\")":              "abc",
		"TRIM(\"  x  \")":             "x",
		"CONCATENATE(\"a\",1,\"b\")":  "a1b",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			v := evalText(in, nil)
			require.Equal(t, cell.KindText, v.Kind)
			assert.Equal(t, want, v.Str)
		})
	}
}

func TestIfEvaluatesAllBranchReferences(t *testing.T) {
	res := &mapResolver{vals: map[string]cell.Value{
		"A1": cell.Number(10),
		"B1": cell.Number(1),
		"C1": cell.Number(2),
	}}
	v := evalText("IF(A1>5, B1, C1)", res)
	assert.Equal(t, 1.0, num(t, v))
	// both branches were read, so the dependency set stays complete
	assert.ElementsMatch(t, []string{"A1", "B1", "C1"}, res.reads)
}

func TestSqrtOfNegative(t *testing.T) {
	v := evalText("SQRT(-1)", nil)
	require.True(t, v.IsError())
	assert.Equal(t, cell.ErrGeneric, v.Err)
}

func TestEmptyFormula(t *testing.T) {
	assert.True(t, evalText("", nil).IsEmpty())
	// pure junk degrades to an error value, not a panic
	assert.True(t, evalText("~~~", nil).IsEmpty() || evalText("~~~", nil).IsError())
}

func TestRegisterExtendsTable(t *testing.T) {
	Register("DOUBLE", func(args []Arg) cell.Value {
		f, ek := numArg(args, 0)
		if ek != cell.ErrNone {
			return cell.Error(ek)
		}
		return cell.Number(f * 2)
	})
	assert.Equal(t, 10.0, num(t, evalText("DOUBLE(5)", nil)))
}

func TestExtractDeps(t *testing.T) {
	deps := ExtractDeps(Tokenize("A1+SUM(B1:B3)+$C$2"), nil)
	require.Len(t, deps, 3)
	assert.False(t, deps[0].IsRange)
	assert.Equal(t, ref.Addr{Row: 0, Col: 0}, deps[0].Cell.Addr())
	assert.True(t, deps[1].IsRange)
	assert.Equal(t, 2, deps[1].Rng.Normalized().End.Row)
	assert.Equal(t, ref.Addr{Row: 1, Col: 2}, deps[2].Cell.Addr())
}
