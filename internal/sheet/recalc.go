package sheet

import (
	"sort"
	"time"

	"lotus/internal/cell"
	"lotus/internal/formula"
	"lotus/internal/ref"
)

// RecalcMode controls when dirty cells recompute.
type RecalcMode int

const (
	Automatic RecalcMode = iota
	Manual
)

// RecalcOrder controls the visit sequence of a recalculation pass. Natural
// follows dependencies; ColumnWise and RowWise replay the legacy scan
// orders. Evaluation is pull-based either way, so scan orders stay correct —
// they only change which cell pulls first.
type RecalcOrder int

const (
	Natural RecalcOrder = iota
	ColumnWise
	RowWise
)

// CellState is the recalculation state of one cell.
type CellState int

const (
	Clean CellState = iota
	Dirty
	Recalculating
	CircularDetected
)

// RecalcStats summarizes one recalculation pass.
type RecalcStats struct {
	CellsEvaluated int
	CircularRefs   int
	Errors         int
	Elapsed        time.Duration
}

// recalcSession is the per-pass state: the in-progress sentinel that bounds
// cycles and the evaluated set that bounds work to once per cell. It lives
// on the engine, not in a package global, so independent sheets never share
// it.
type recalcSession struct {
	inProgress map[ref.Addr]struct{}
	evaluated  map[ref.Addr]struct{}
	stats      RecalcStats
}

func newSession() *recalcSession {
	return &recalcSession{
		inProgress: make(map[ref.Addr]struct{}),
		evaluated:  make(map[ref.Addr]struct{}),
	}
}

func (s *Spreadsheet) SetRecalcMode(m RecalcMode) {
	s.mode = m
	if m == Automatic && len(s.dirty) > 0 {
		s.Recalculate()
	}
}

func (s *Spreadsheet) RecalcMode() RecalcMode { return s.mode }

func (s *Spreadsheet) SetRecalcOrder(o RecalcOrder) { s.order = o }

func (s *Spreadsheet) RecalcOrder() RecalcOrder { return s.order }

// NeedsRecalc reports whether any cell is out of date.
func (s *Spreadsheet) NeedsRecalc() bool { return len(s.dirty) > 0 }

// HasCircularRefs reports whether the last computations hit a cycle.
func (s *Spreadsheet) HasCircularRefs() bool { return len(s.circular) > 0 }

// State reports the recalculation state of a cell.
func (s *Spreadsheet) State(row, col int) CellState {
	a := ref.Addr{Row: row, Col: col}
	if s.active != nil {
		if _, ok := s.active.inProgress[a]; ok {
			return Recalculating
		}
	}
	if _, ok := s.circular[a]; ok {
		return CircularDetected
	}
	if s.isDirty(a) {
		return Dirty
	}
	return Clean
}

// GetValue returns the computed value of a cell. In manual mode a dirty cell
// keeps serving its last computed value; in automatic mode the cache is
// always current, so a dirty hit only happens for never-computed cells and
// evaluates on the spot.
func (s *Spreadsheet) GetValue(row, col int) cell.Value {
	a := ref.Addr{Row: row, Col: col}
	c, ok := s.cells[a]
	if !ok {
		return cell.Empty()
	}
	if c.HasCache && (!s.isDirty(a) || s.mode == Manual) {
		return c.Cached
	}
	sess := newSession()
	s.active = sess
	defer func() { s.active = nil }()
	return s.valueOf(a, sess)
}

// Recalculate runs one pass over the dirty set in the configured order and
// reports what happened. Manual mode calls this explicitly; automatic mode
// calls it from SetCell.
func (s *Spreadsheet) Recalculate() RecalcStats {
	start := time.Now()
	sess := newSession()
	s.active = sess
	defer func() { s.active = nil }()

	addrs := make([]ref.Addr, 0, len(s.dirty))
	for a := range s.dirty {
		addrs = append(addrs, a)
	}
	switch s.order {
	case ColumnWise:
		sort.Slice(addrs, func(i, j int) bool {
			if addrs[i].Col != addrs[j].Col {
				return addrs[i].Col < addrs[j].Col
			}
			return addrs[i].Row < addrs[j].Row
		})
	case RowWise:
		sort.Slice(addrs, func(i, j int) bool {
			if addrs[i].Row != addrs[j].Row {
				return addrs[i].Row < addrs[j].Row
			}
			return addrs[i].Col < addrs[j].Col
		})
	default:
		// Natural: dependency order when the graph allows it; on a cycle the
		// scan order below is just as correct, since pulling handles ordering
		// and the sentinel handles the cycle.
		if ord, err := s.graph.TopologicalOrder(addrs); err == nil {
			keep := ord[:0]
			for _, a := range ord {
				if s.isDirty(a) {
					keep = append(keep, a)
				}
			}
			addrs = keep
		} else {
			sort.Slice(addrs, func(i, j int) bool {
				if addrs[i].Row != addrs[j].Row {
					return addrs[i].Row < addrs[j].Row
				}
				return addrs[i].Col < addrs[j].Col
			})
		}
	}

	for _, a := range addrs {
		if s.isDirty(a) {
			s.valueOf(a, sess)
		}
	}

	sess.stats.CircularRefs = len(s.circular)
	sess.stats.Elapsed = time.Since(start)
	return sess.stats
}

// valueOf is the pull-based memoized evaluation of one cell. Re-entering a
// cell already in progress is the cycle sentinel: it returns the circular
// error instead of recursing forever.
func (s *Spreadsheet) valueOf(a ref.Addr, sess *recalcSession) cell.Value {
	c, ok := s.cells[a]
	if !ok {
		return cell.Empty()
	}
	if c.HasCache && !s.isDirty(a) {
		return c.Cached
	}
	if _, busy := sess.inProgress[a]; busy {
		s.circular[a] = struct{}{}
		return cell.Error(cell.ErrCircular)
	}
	if _, done := sess.evaluated[a]; done && c.HasCache {
		return c.Cached
	}

	if !c.IsFormula() {
		v := c.LiteralValue()
		s.finish(a, c, v, sess)
		return v
	}

	sess.inProgress[a] = struct{}{}
	res := &resolver{sheet: s, sess: sess}
	v := formula.Eval(formula.Tokenize(c.Formula), res)
	delete(sess.inProgress, a)

	// edges reflect exactly what this evaluation touched
	s.graph.Record(a, res.deps)
	s.finish(a, c, v, sess)
	return v
}

func (s *Spreadsheet) finish(a ref.Addr, c *cell.Cell, v cell.Value, sess *recalcSession) {
	c.Cached = v
	c.HasCache = true
	delete(s.dirty, a)
	sess.evaluated[a] = struct{}{}
	sess.stats.CellsEvaluated++
	if v.IsError() {
		sess.stats.Errors++
		if v.Err == cell.ErrCircular {
			s.circular[a] = struct{}{}
			return
		}
	}
	delete(s.circular, a)
}

// resolver feeds the evaluator and accumulates the dependency set as a side
// effect of the reads.
type resolver struct {
	sheet *Spreadsheet
	sess  *recalcSession
	deps  []formula.Dep
}

func (r *resolver) CellValue(c ref.CellRef) cell.Value {
	r.deps = append(r.deps, formula.Dep{Cell: c})
	return r.sheet.valueOf(c.Addr(), r.sess)
}

func (r *resolver) NameRange(name string) (ref.RangeRef, bool) {
	return r.sheet.NameRange(name)
}

func (r *resolver) RangeValues(rng ref.RangeRef) []cell.Value {
	r.deps = append(r.deps, formula.Dep{Rng: rng, IsRange: true})
	n := rng.Normalized()
	vals := make([]cell.Value, 0, n.RowCount()*n.ColCount())
	for row := n.Start.Row; row <= n.End.Row; row++ {
		for col := n.Start.Col; col <= n.End.Col; col++ {
			vals = append(vals, r.sheet.valueOf(ref.Addr{Row: row, Col: col}, r.sess))
		}
	}
	return vals
}
