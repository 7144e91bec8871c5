package formula

import (
	"math"
	"strings"

	"lotus/internal/cell"
)

// Func is a builtin implementation. Args arrive already evaluated; ranges
// arrive flattened.
type Func func(args []Arg) cell.Value

// Call dispatches a function by name. Unknown names are a name error, never
// a crash.
func Call(name string, args []Arg) cell.Value {
	fn, ok := builtins[strings.ToUpper(name)]
	if !ok {
		return cell.Error(cell.ErrName)
	}
	return fn(args)
}

// Register installs or replaces a builtin. The function set is a plain
// dispatch table, so callers can extend it.
func Register(name string, fn Func) {
	builtins[strings.ToUpper(name)] = fn
}

var builtins map[string]Func

func init() {
	builtins = map[string]Func{
		"SUM":         fnSum,
		"AVG":         fnAvg,
		"AVERAGE":     fnAvg,
		"MIN":         fnMin,
		"MAX":         fnMax,
		"COUNT":       fnCount,
		"COUNTA":      fnCountA,
		"AND":         fnAnd,
		"OR":          fnOr,
		"IF":          fnIf,
		"NOT":         fnNot,
		"ABS":         numeric1(math.Abs),
		"INT":         numeric1(math.Trunc),
		"ROUND":       fnRound,
		"LEN":         fnLen,
		"LEFT":        fnLeft,
		"RIGHT":       fnRight,
		"MID":         fnMid,
		"UPPER":       text1(strings.ToUpper),
		"LOWER":       text1(strings.ToLower),
		"TRIM":        text1(strings.TrimSpace),
		"CONCATENATE": fnConcatenate,
		"VALUE":       fnValue,
		"SQRT":        fnSqrt,
		"SIN":         numeric1(math.Sin),
		"COS":         numeric1(math.Cos),
		"TAN":         numeric1(math.Tan),
		"LOG":         fnLog,
		"LN":          fnLn,
		"EXP":         numeric1(math.Exp),
		"PI":          fnPi,
		"POWER":       fnPower,
		"MOD":         fnMod,
	}
}

// flatten expands range arguments into one value sequence, in argument
// order.
func flatten(args []Arg) []cell.Value {
	var out []cell.Value
	for _, a := range args {
		if a.IsRange {
			out = append(out, a.List...)
		} else {
			out = append(out, a.Val)
		}
	}
	return out
}

// firstError propagates an error member; aggregates never swallow one.
func firstError(vals []cell.Value) (cell.Value, bool) {
	for _, v := range vals {
		if v.IsError() {
			return v, true
		}
	}
	return cell.Value{}, false
}

// numbersOf keeps the numeric members, silently skipping text and empties —
// SUM over a range with a stray label still adds up the numbers.
func numbersOf(vals []cell.Value) []float64 {
	var nums []float64
	for _, v := range vals {
		if v.IsNumber() {
			nums = append(nums, v.Num)
		}
	}
	return nums
}

func fnSum(args []Arg) cell.Value {
	vals := flatten(args)
	if e, ok := firstError(vals); ok {
		return e
	}
	total := 0.0
	for _, n := range numbersOf(vals) {
		total += n
	}
	return cell.Number(total)
}

func fnAvg(args []Arg) cell.Value {
	vals := flatten(args)
	if e, ok := firstError(vals); ok {
		return e
	}
	nums := numbersOf(vals)
	if len(nums) == 0 {
		return cell.Error(cell.ErrDivZero)
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return cell.Number(total / float64(len(nums)))
}

func fnMin(args []Arg) cell.Value {
	return extremum(args, func(a, b float64) bool { return a < b })
}

func fnMax(args []Arg) cell.Value {
	return extremum(args, func(a, b float64) bool { return a > b })
}

func extremum(args []Arg, better func(a, b float64) bool) cell.Value {
	vals := flatten(args)
	if e, ok := firstError(vals); ok {
		return e
	}
	nums := numbersOf(vals)
	if len(nums) == 0 {
		return cell.Error(cell.ErrGeneric)
	}
	best := nums[0]
	for _, n := range nums[1:] {
		if better(n, best) {
			best = n
		}
	}
	return cell.Number(best)
}

func fnCount(args []Arg) cell.Value {
	vals := flatten(args)
	if e, ok := firstError(vals); ok {
		return e
	}
	return cell.Number(float64(len(numbersOf(vals))))
}

func fnCountA(args []Arg) cell.Value {
	vals := flatten(args)
	n := 0
	for _, v := range vals {
		if !v.IsEmpty() {
			n++
		}
	}
	return cell.Number(float64(n))
}

func fnAnd(args []Arg) cell.Value {
	vals := flatten(args)
	if e, ok := firstError(vals); ok {
		return e
	}
	for _, v := range vals {
		if v.IsEmpty() {
			continue
		}
		t, ek := v.Truthy()
		if ek != cell.ErrNone {
			return cell.Error(ek)
		}
		if !t {
			return boolValue(false)
		}
	}
	return boolValue(true)
}

func fnOr(args []Arg) cell.Value {
	vals := flatten(args)
	if e, ok := firstError(vals); ok {
		return e
	}
	for _, v := range vals {
		if v.IsEmpty() {
			continue
		}
		t, ek := v.Truthy()
		if ek != cell.ErrNone {
			return cell.Error(ek)
		}
		if t {
			return boolValue(true)
		}
	}
	return boolValue(false)
}

func fnIf(args []Arg) cell.Value {
	if len(args) < 2 {
		return cell.Error(cell.ErrGeneric)
	}
	cond := args[0].Scalar()
	if cond.IsError() {
		return cond
	}
	t, ek := cond.Truthy()
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	if t {
		return args[1].Scalar()
	}
	if len(args) >= 3 {
		return args[2].Scalar()
	}
	return cell.Empty()
}

func fnNot(args []Arg) cell.Value {
	v, ek := scalarArg(args, 0)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	t, ek := v.Truthy()
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	return boolValue(!t)
}

func fnRound(args []Arg) cell.Value {
	x, ek := numArg(args, 0)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	places := 0.0
	if len(args) > 1 {
		places, ek = numArg(args, 1)
		if ek != cell.ErrNone {
			return cell.Error(ek)
		}
	}
	scale := math.Pow(10, math.Trunc(places))
	return cell.Number(math.Round(x*scale) / scale)
}

func fnLen(args []Arg) cell.Value {
	s, ek := strArg(args, 0)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	return cell.Number(float64(len([]rune(s))))
}

func fnLeft(args []Arg) cell.Value {
	s, ek := strArg(args, 0)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	n := 1.0
	if len(args) > 1 {
		n, ek = numArg(args, 1)
		if ek != cell.ErrNone {
			return cell.Error(ek)
		}
	}
	r := []rune(s)
	k := clampIndex(int(n), len(r))
	return cell.Text(string(r[:k]))
}

func fnRight(args []Arg) cell.Value {
	s, ek := strArg(args, 0)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	n := 1.0
	if len(args) > 1 {
		n, ek = numArg(args, 1)
		if ek != cell.ErrNone {
			return cell.Error(ek)
		}
	}
	r := []rune(s)
	k := clampIndex(int(n), len(r))
	return cell.Text(string(r[len(r)-k:]))
}

// MID uses a 1-based start position.
func fnMid(args []Arg) cell.Value {
	s, ek := strArg(args, 0)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	start, ek := numArg(args, 1)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	count, ek := numArg(args, 2)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	r := []rune(s)
	from := int(start) - 1
	if from < 0 || from >= len(r) || count < 0 {
		return cell.Text("")
	}
	to := from + int(count)
	if to > len(r) {
		to = len(r)
	}
	return cell.Text(string(r[from:to]))
}

func fnConcatenate(args []Arg) cell.Value {
	var b strings.Builder
	for _, a := range args {
		v := a.Scalar()
		if v.IsError() {
			return v
		}
		b.WriteString(v.AsText())
	}
	return cell.Text(b.String())
}

func fnValue(args []Arg) cell.Value {
	v, ek := scalarArg(args, 0)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	f, ek := v.AsNumber()
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	return cell.Number(f)
}

func fnSqrt(args []Arg) cell.Value {
	x, ek := numArg(args, 0)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	if x < 0 {
		return cell.Error(cell.ErrGeneric)
	}
	return cell.Number(math.Sqrt(x))
}

func fnLog(args []Arg) cell.Value {
	x, ek := numArg(args, 0)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	if x <= 0 {
		return cell.Error(cell.ErrGeneric)
	}
	return cell.Number(math.Log10(x))
}

func fnLn(args []Arg) cell.Value {
	x, ek := numArg(args, 0)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	if x <= 0 {
		return cell.Error(cell.ErrGeneric)
	}
	return cell.Number(math.Log(x))
}

func fnPi(args []Arg) cell.Value {
	return cell.Number(math.Pi)
}

func fnPower(args []Arg) cell.Value {
	x, ek := numArg(args, 0)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	y, ek := numArg(args, 1)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	return cell.Number(math.Pow(x, y))
}

// MOD follows the divisor's sign, matching the classic spreadsheet @MOD.
func fnMod(args []Arg) cell.Value {
	x, ek := numArg(args, 0)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	y, ek := numArg(args, 1)
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	if y == 0 {
		return cell.Error(cell.ErrDivZero)
	}
	return cell.Number(x - y*math.Floor(x/y))
}

func numeric1(f func(float64) float64) Func {
	return func(args []Arg) cell.Value {
		x, ek := numArg(args, 0)
		if ek != cell.ErrNone {
			return cell.Error(ek)
		}
		return cell.Number(f(x))
	}
}

func text1(f func(string) string) Func {
	return func(args []Arg) cell.Value {
		s, ek := strArg(args, 0)
		if ek != cell.ErrNone {
			return cell.Error(ek)
		}
		return cell.Text(f(s))
	}
}

func scalarArg(args []Arg, i int) (cell.Value, cell.ErrorKind) {
	if i >= len(args) {
		return cell.Value{}, cell.ErrGeneric
	}
	v := args[i].Scalar()
	if v.IsError() {
		return cell.Value{}, v.Err
	}
	return v, cell.ErrNone
}

func numArg(args []Arg, i int) (float64, cell.ErrorKind) {
	v, ek := scalarArg(args, i)
	if ek != cell.ErrNone {
		return 0, ek
	}
	return v.AsNumber()
}

func strArg(args []Arg, i int) (string, cell.ErrorKind) {
	v, ek := scalarArg(args, i)
	if ek != cell.ErrNone {
		return "", ek
	}
	return v.AsText(), cell.ErrNone
}

func clampIndex(n, max int) int {
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}
