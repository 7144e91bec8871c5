package formula

import (
	"math"

	"lotus/internal/cell"
	"lotus/internal/ref"
)

// Resolver supplies cell and range values during evaluation. Implementations
// record every call as a dependency of the cell being evaluated.
type Resolver interface {
	CellValue(ref.CellRef) cell.Value
	RangeValues(ref.RangeRef) []cell.Value
	NameRange(name string) (ref.RangeRef, bool)
}

// NameLookup resolves a defined range name outside of evaluation.
type NameLookup func(name string) (ref.RangeRef, bool)

// Arg is one evaluated operand: a scalar value or a flattened range.
type Arg struct {
	Val     cell.Value
	List    []cell.Value
	IsRange bool
}

// Scalar collapses the operand for use in scalar position. A range where a
// single value is required is an error, not a silent first-cell pick.
func (a Arg) Scalar() cell.Value {
	if a.IsRange {
		return cell.Error(cell.ErrGeneric)
	}
	return a.Val
}

// Dep is a single dependency extracted from a formula's tokens.
type Dep struct {
	Cell    ref.CellRef
	Rng     ref.RangeRef
	IsRange bool
}

// ExtractDeps scans tokens for cell references, range references and defined
// range names. Ranges stay as bounding boxes. Used at write time so graph
// edges always mirror the current formula text, even before the cell is first
// evaluated.
func ExtractDeps(toks []Token, names NameLookup) []Dep {
	var deps []Dep
	for i := 0; i < len(toks); i++ {
		if toks[i].Kind == TokIdent && names != nil {
			if rng, ok := names(toks[i].Text); ok {
				deps = append(deps, nameDep(rng))
			}
			continue
		}
		if toks[i].Kind != TokCell {
			continue
		}
		start, err := ref.ParseCell(toks[i].Text)
		if err != nil {
			continue
		}
		if i+2 < len(toks) && toks[i+1].Kind == TokColon && toks[i+2].Kind == TokCell {
			if end, err := ref.ParseCell(toks[i+2].Text); err == nil {
				deps = append(deps, Dep{Rng: ref.RangeRef{Start: start, End: end}, IsRange: true})
				i += 2
				continue
			}
		}
		deps = append(deps, Dep{Cell: start})
	}
	return deps
}

func nameDep(rng ref.RangeRef) Dep {
	n := rng.Normalized()
	if n.Start.Row == n.End.Row && n.Start.Col == n.End.Col {
		return Dep{Cell: n.Start}
	}
	return Dep{Rng: n, IsRange: true}
}

// Eval runs a token stream against a resolver and produces a value. It never
// panics and never returns a Go error: anything that goes wrong becomes an
// error value scoped to this one cell.
func Eval(toks []Token, res Resolver) cell.Value {
	if len(toks) == 0 {
		return cell.Empty()
	}
	p := &evaluator{toks: toks, res: res}
	out := p.comparison().Scalar()
	return out
}

type evaluator struct {
	toks []Token
	pos  int
	res  Resolver
}

func (p *evaluator) peek() (Token, bool) {
	if p.pos >= len(p.toks) {
		return Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *evaluator) next() (Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// comparison is the lowest precedence level: = <> != < > <= >=
func (p *evaluator) comparison() Arg {
	left := p.addSub()
	for {
		t, ok := p.peek()
		if !ok || t.Kind != TokComparison {
			return left
		}
		p.pos++
		right := p.addSub()
		left = Arg{Val: compare(left.Scalar(), right.Scalar(), t.Text)}
	}
}

func (p *evaluator) addSub() Arg {
	left := p.mulDiv()
	for {
		t, ok := p.peek()
		if !ok || t.Kind != TokOperator || (t.Text != "+" && t.Text != "-") {
			return left
		}
		p.pos++
		right := p.mulDiv()
		left = Arg{Val: arith(left.Scalar(), right.Scalar(), t.Text)}
	}
}

func (p *evaluator) mulDiv() Arg {
	left := p.power()
	for {
		t, ok := p.peek()
		if !ok || t.Kind != TokOperator || (t.Text != "*" && t.Text != "/" && t.Text != "%") {
			return left
		}
		p.pos++
		right := p.power()
		left = Arg{Val: arith(left.Scalar(), right.Scalar(), t.Text)}
	}
}

// power is right-associative: 2^3^2 is 2^(3^2).
func (p *evaluator) power() Arg {
	left := p.unary()
	t, ok := p.peek()
	if !ok || t.Kind != TokOperator || t.Text != "^" {
		return left
	}
	p.pos++
	right := p.power()
	return Arg{Val: arith(left.Scalar(), right.Scalar(), "^")}
}

func (p *evaluator) unary() Arg {
	t, ok := p.peek()
	if ok && t.Kind == TokOperator && (t.Text == "+" || t.Text == "-") {
		p.pos++
		v := p.unary().Scalar()
		if t.Text == "-" {
			return Arg{Val: negate(v)}
		}
		return Arg{Val: v}
	}
	return p.primary()
}

func (p *evaluator) primary() Arg {
	t, ok := p.next()
	if !ok {
		return Arg{Val: cell.Error(cell.ErrGeneric)}
	}
	switch t.Kind {
	case TokNumber:
		return Arg{Val: cell.Number(t.Num)}
	case TokString:
		return Arg{Val: cell.Text(t.Text)}
	case TokError:
		return Arg{Val: cell.Error(t.Err)}
	case TokCell:
		return p.cellOrRange(t)
	case TokFunc:
		return p.call(t.Text)
	case TokIdent:
		return p.name(t.Text)
	case TokLParen:
		inner := p.comparison()
		if nt, ok := p.peek(); ok && nt.Kind == TokRParen {
			p.pos++
		}
		return inner
	default:
		return Arg{Val: cell.Error(cell.ErrGeneric)}
	}
}

func (p *evaluator) cellOrRange(t Token) Arg {
	start, err := ref.ParseCell(t.Text)
	if err != nil {
		return Arg{Val: cell.Error(cell.ErrRef)}
	}
	if nt, ok := p.peek(); ok && nt.Kind == TokColon {
		if et, ok2 := p.peekAt(1); ok2 && et.Kind == TokCell {
			end, err := ref.ParseCell(et.Text)
			if err == nil {
				p.pos += 2
				rng := ref.RangeRef{Start: start, End: end}
				return Arg{List: p.res.RangeValues(rng), IsRange: true}
			}
		}
	}
	return Arg{Val: p.res.CellValue(start)}
}

// name resolves a defined range name. A single-cell name acts as a scalar
// reference, anything larger as a range; an unbound word is a name error.
func (p *evaluator) name(word string) Arg {
	rng, ok := p.res.NameRange(word)
	if !ok {
		return Arg{Val: cell.Error(cell.ErrName)}
	}
	n := rng.Normalized()
	if n.Start.Row == n.End.Row && n.Start.Col == n.End.Col {
		return Arg{Val: p.res.CellValue(n.Start)}
	}
	return Arg{List: p.res.RangeValues(n), IsRange: true}
}

func (p *evaluator) peekAt(n int) (Token, bool) {
	if p.pos+n >= len(p.toks) {
		return Token{}, false
	}
	return p.toks[p.pos+n], true
}

// call parses "NAME(arg, arg, …)" — the name token is already consumed.
// Arguments evaluate eagerly, left to right, so every reference in every
// branch of an IF is still seen by the resolver.
func (p *evaluator) call(name string) Arg {
	t, ok := p.next()
	if !ok || t.Kind != TokLParen {
		return Arg{Val: cell.Error(cell.ErrGeneric)}
	}
	var args []Arg
	if nt, ok := p.peek(); ok && nt.Kind == TokRParen {
		p.pos++
		return Arg{Val: Call(name, args)}
	}
	for {
		args = append(args, p.comparison())
		t, ok := p.next()
		if !ok {
			break
		}
		if t.Kind == TokRParen {
			break
		}
		if t.Kind != TokComma {
			// tolerate junk between arguments; lexing was total, so keep going
			continue
		}
	}
	return Arg{Val: Call(name, args)}
}

func arith(a, b cell.Value, op string) cell.Value {
	x, ek := a.AsNumber()
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	y, ek := b.AsNumber()
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	switch op {
	case "+":
		return cell.Number(x + y)
	case "-":
		return cell.Number(x - y)
	case "*":
		return cell.Number(x * y)
	case "/":
		if y == 0 {
			return cell.Error(cell.ErrDivZero)
		}
		return cell.Number(x / y)
	case "%":
		if y == 0 {
			return cell.Error(cell.ErrDivZero)
		}
		return cell.Number(math.Mod(x, y))
	case "^":
		return cell.Number(math.Pow(x, y))
	}
	return cell.Error(cell.ErrGeneric)
}

func negate(v cell.Value) cell.Value {
	f, ek := v.AsNumber()
	if ek != cell.ErrNone {
		return cell.Error(ek)
	}
	return cell.Number(-f)
}

func compare(a, b cell.Value, op string) cell.Value {
	if a.IsError() {
		return a
	}
	if b.IsError() {
		return b
	}
	var cmp int
	an, ae := a.AsNumber()
	bn, be := b.AsNumber()
	if ae == cell.ErrNone && be == cell.ErrNone {
		switch {
		case an < bn:
			cmp = -1
		case an > bn:
			cmp = 1
		}
	} else {
		as, bs := a.AsText(), b.AsText()
		switch {
		case as < bs:
			cmp = -1
		case as > bs:
			cmp = 1
		}
	}
	var out bool
	switch op {
	case "=":
		out = cmp == 0
	case "<>", "!=":
		out = cmp != 0
	case "<":
		out = cmp < 0
	case ">":
		out = cmp > 0
	case "<=":
		out = cmp <= 0
	case ">=":
		out = cmp >= 0
	}
	return boolValue(out)
}

func boolValue(b bool) cell.Value {
	if b {
		return cell.Number(1)
	}
	return cell.Number(0)
}
