package sheet

import (
	"fmt"

	"lotus/internal/formula"
	"lotus/internal/ref"
)

// rangeKey is a normalized bounding box usable as a map key.
type rangeKey struct {
	r1, c1, r2, c2 int
}

func keyOf(r ref.RangeRef) rangeKey {
	n := r.Normalized()
	return rangeKey{n.Start.Row, n.Start.Col, n.End.Row, n.End.Col}
}

func (k rangeKey) contains(a ref.Addr) bool {
	return a.Row >= k.r1 && a.Row <= k.r2 && a.Col >= k.c1 && a.Col <= k.c2
}

// DependencyGraph records which cells a formula reads. Ranges are kept as
// bounding boxes with an observer index rather than expanded per cell, so a
// formula over A1:A5000 costs one edge.
type DependencyGraph struct {
	deps     map[ref.Addr][]formula.Dep          // outgoing edges per dependent
	cellObs  map[ref.Addr]map[ref.Addr]struct{}  // cell -> cells reading it directly
	rangeObs map[rangeKey]map[ref.Addr]struct{}  // range -> cells reading it
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		deps:     make(map[ref.Addr][]formula.Dep),
		cellObs:  make(map[ref.Addr]map[ref.Addr]struct{}),
		rangeObs: make(map[rangeKey]map[ref.Addr]struct{}),
	}
}

// Record atomically replaces every outgoing edge of the dependent. An edit
// never leaves edges from the previous formula text behind.
func (g *DependencyGraph) Record(dependent ref.Addr, deps []formula.Dep) {
	g.drop(dependent)
	if len(deps) == 0 {
		return
	}
	g.deps[dependent] = deps
	for _, d := range deps {
		if d.IsRange {
			k := keyOf(d.Rng)
			if g.rangeObs[k] == nil {
				g.rangeObs[k] = make(map[ref.Addr]struct{})
			}
			g.rangeObs[k][dependent] = struct{}{}
		} else {
			a := d.Cell.Addr()
			if g.cellObs[a] == nil {
				g.cellObs[a] = make(map[ref.Addr]struct{})
			}
			g.cellObs[a][dependent] = struct{}{}
		}
	}
}

// Remove drops a cell from the graph entirely: its outgoing edges and its
// presence as an observer.
func (g *DependencyGraph) Remove(a ref.Addr) {
	g.drop(a)
	delete(g.cellObs, a)
}

func (g *DependencyGraph) drop(dependent ref.Addr) {
	for _, d := range g.deps[dependent] {
		if d.IsRange {
			k := keyOf(d.Rng)
			delete(g.rangeObs[k], dependent)
			if len(g.rangeObs[k]) == 0 {
				delete(g.rangeObs, k)
			}
		} else {
			a := d.Cell.Addr()
			delete(g.cellObs[a], dependent)
			if len(g.cellObs[a]) == 0 {
				delete(g.cellObs, a)
			}
		}
	}
	delete(g.deps, dependent)
}

// Edges returns the recorded dependencies of a cell.
func (g *DependencyGraph) Edges(dependent ref.Addr) []formula.Dep {
	return g.deps[dependent]
}

// Clear wipes the graph; structural edits rebuild it from scratch.
func (g *DependencyGraph) Clear() {
	g.deps = make(map[ref.Addr][]formula.Dep)
	g.cellObs = make(map[ref.Addr]map[ref.Addr]struct{})
	g.rangeObs = make(map[rangeKey]map[ref.Addr]struct{})
}

// observers returns the cells that read a directly or through a range.
func (g *DependencyGraph) observers(a ref.Addr) []ref.Addr {
	var out []ref.Addr
	for o := range g.cellObs[a] {
		out = append(out, o)
	}
	for k, obs := range g.rangeObs {
		if !k.contains(a) {
			continue
		}
		for o := range obs {
			out = append(out, o)
		}
	}
	return out
}

// AffectedBy walks reverse reachability: every cell whose value could change
// when a changes. The cell itself is not included.
func (g *DependencyGraph) AffectedBy(a ref.Addr) map[ref.Addr]struct{} {
	seen := make(map[ref.Addr]struct{})
	queue := g.observers(a)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		queue = append(queue, g.observers(n)...)
	}
	return seen
}

// dependsOn lists the graph nodes a cell's edges reach; range edges resolve
// to whichever nodes fall inside the box.
func (g *DependencyGraph) dependsOn(a ref.Addr) []ref.Addr {
	var out []ref.Addr
	for _, d := range g.deps[a] {
		if d.IsRange {
			k := keyOf(d.Rng)
			for n := range g.deps {
				if k.contains(n) {
					out = append(out, n)
				}
			}
		} else {
			out = append(out, d.Cell.Addr())
		}
	}
	return out
}

// TopologicalOrder sorts the given cells so that dependencies come before
// dependents, via a three-state depth-first walk. A cycle is an error naming
// the cell it was found at.
func (g *DependencyGraph) TopologicalOrder(roots []ref.Addr) ([]ref.Addr, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[ref.Addr]int)
	var order []ref.Addr

	var visit func(a ref.Addr) error
	visit = func(a ref.Addr) error {
		switch color[a] {
		case gray:
			return fmt.Errorf("circular reference at %s", a)
		case black:
			return nil
		}
		color[a] = gray
		for _, d := range g.dependsOn(a) {
			if d == a {
				return fmt.Errorf("circular reference at %s", a)
			}
			if err := visit(d); err != nil {
				return err
			}
		}
		color[a] = black
		order = append(order, a)
		return nil
	}

	for _, r := range roots {
		if err := visit(r); err != nil {
			return nil, err
		}
	}
	return order, nil
}
