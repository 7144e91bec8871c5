package sheet

import (
	"fmt"
	"sort"
	"strings"

	"lotus/internal/cell"
	"lotus/internal/formula"
	"lotus/internal/ref"
)

// Spreadsheet is the sparse cell store plus the recalculation machinery
// behind it. All methods are single-threaded; recalculation runs
// synchronously inside SetCell and Recalculate.
type Spreadsheet struct {
	cells    map[ref.Addr]*cell.Cell
	graph    *DependencyGraph
	names    map[string]ref.RangeRef
	mode     RecalcMode
	order    RecalcOrder
	dirty    map[ref.Addr]struct{}
	circular map[ref.Addr]struct{}
	active   *recalcSession // set only while a pass runs
}

func New() *Spreadsheet {
	return &Spreadsheet{
		cells:    make(map[ref.Addr]*cell.Cell),
		graph:    NewDependencyGraph(),
		names:    make(map[string]ref.RangeRef),
		mode:     Automatic,
		order:    Natural,
		dirty:    make(map[ref.Addr]struct{}),
		circular: make(map[ref.Addr]struct{}),
	}
}

func checkBounds(row, col int) error {
	if row < 0 || row >= ref.MaxRows {
		return fmt.Errorf("row %d out of range", row)
	}
	if col < 0 || col >= ref.MaxCols {
		return fmt.Errorf("column %d out of range", col)
	}
	return nil
}

// GetCell returns the cell at (row, col), creating an empty one if needed.
func (s *Spreadsheet) GetCell(row, col int) *cell.Cell {
	a := ref.Addr{Row: row, Col: col}
	if c, ok := s.cells[a]; ok {
		return c
	}
	c := cell.New("")
	s.cells[a] = c
	return c
}

// GetCellIfExists never creates.
func (s *Spreadsheet) GetCellIfExists(row, col int) *cell.Cell {
	return s.cells[ref.Addr{Row: row, Col: col}]
}

// SetCell writes raw text into a cell: the sigil resolves, the graph edges
// are replaced to match the new text, and the cell plus everything reading
// it goes dirty. In automatic mode the dirty set recomputes before return.
func (s *Spreadsheet) SetCell(row, col int, text string) error {
	if err := checkBounds(row, col); err != nil {
		return err
	}
	a := ref.Addr{Row: row, Col: col}
	c, exists := s.cells[a]
	if exists && c.Protected {
		return fmt.Errorf("cell %s is protected", a)
	}
	if text == "" {
		if !exists {
			return nil
		}
		s.graph.Record(a, nil)
		delete(s.cells, a)
	} else {
		if exists {
			c.SetText(text)
		} else {
			c = cell.New(text)
			s.cells[a] = c
		}
		if c.IsFormula() {
			s.graph.Record(a, formula.ExtractDeps(formula.Tokenize(c.Formula), s.NameRange))
		} else {
			s.graph.Record(a, nil)
		}
	}
	s.markDirty(a)
	if s.mode == Automatic {
		s.Recalculate()
	}
	return nil
}

// ClearCell empties a cell, protection permitting.
func (s *Spreadsheet) ClearCell(row, col int) error {
	return s.SetCell(row, col, "")
}

// SetFormat assigns a format code, normalizing it first.
func (s *Spreadsheet) SetFormat(row, col int, code string) error {
	if err := checkBounds(row, col); err != nil {
		return err
	}
	norm, err := cell.NormalizeFormatCode(code)
	if err != nil {
		return err
	}
	s.GetCell(row, col).Format = norm
	return nil
}

// SetProtected toggles write protection on a cell.
func (s *Spreadsheet) SetProtected(row, col int, protected bool) error {
	if err := checkBounds(row, col); err != nil {
		return err
	}
	s.GetCell(row, col).Protected = protected
	return nil
}

// GetDisplayValue renders the computed value under the cell's format code.
func (s *Spreadsheet) GetDisplayValue(row, col int) string {
	v := s.GetValue(row, col)
	code := ""
	if c := s.GetCellIfExists(row, col); c != nil {
		code = c.Format
	}
	return cell.ParseFormatCode(code).Format(v, 10)
}

// DefineName binds a range name usable in formulas in place of a reference.
// Names are case-insensitive. Rebinding an existing name replaces it, and
// every formula recomputes against the new binding.
func (s *Spreadsheet) DefineName(name string, rng ref.RangeRef) error {
	key, err := normalizeName(name)
	if err != nil {
		return err
	}
	n := rng.Normalized()
	if err := checkBounds(n.Start.Row, n.Start.Col); err != nil {
		return err
	}
	if err := checkBounds(n.End.Row, n.End.Col); err != nil {
		return err
	}
	s.names[key] = n
	s.rebuild()
	return nil
}

// DeleteName unbinds a range name; formulas using it fall back to the name
// error.
func (s *Spreadsheet) DeleteName(name string) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if _, ok := s.names[key]; !ok {
		return
	}
	delete(s.names, key)
	s.rebuild()
}

// NameRange resolves a defined range name.
func (s *Spreadsheet) NameRange(name string) (ref.RangeRef, bool) {
	rng, ok := s.names[strings.ToUpper(name)]
	return rng, ok
}

// Names lists the defined range names, sorted.
func (s *Spreadsheet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// normalizeName uppercases a range name and rejects anything the formula
// lexer would not see as a plain identifier, or that collides with the A1
// reference grammar.
func normalizeName(name string) (string, error) {
	up := strings.ToUpper(strings.TrimSpace(name))
	if up == "" {
		return "", fmt.Errorf("empty range name")
	}
	for i := 0; i < len(up); i++ {
		c := up[i]
		if (c >= 'A' && c <= 'Z') || c == '_' || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return "", fmt.Errorf("invalid range name %q", name)
	}
	if _, err := ref.ParseCell(up); err == nil {
		return "", fmt.Errorf("range name %q reads as a cell reference", name)
	}
	return up, nil
}

// GetRange evaluates a rectangular block row-major.
func (s *Spreadsheet) GetRange(rng ref.RangeRef) [][]cell.Value {
	n := rng.Normalized()
	out := make([][]cell.Value, 0, n.RowCount())
	for r := n.Start.Row; r <= n.End.Row; r++ {
		row := make([]cell.Value, 0, n.ColCount())
		for c := n.Start.Col; c <= n.End.Col; c++ {
			row = append(row, s.GetValue(r, c))
		}
		out = append(out, row)
	}
	return out
}

// GetRangeFlat evaluates a block into one row-major sequence.
func (s *Spreadsheet) GetRangeFlat(rng ref.RangeRef) []cell.Value {
	n := rng.Normalized()
	out := make([]cell.Value, 0, n.RowCount()*n.ColCount())
	for r := n.Start.Row; r <= n.End.Row; r++ {
		for c := n.Start.Col; c <= n.End.Col; c++ {
			out = append(out, s.GetValue(r, c))
		}
	}
	return out
}

// Iter visits every stored cell. Order is unspecified.
func (s *Spreadsheet) Iter(fn func(a ref.Addr, c *cell.Cell)) {
	for a, c := range s.cells {
		fn(a, c)
	}
}

// Graph exposes the dependency graph for introspection.
func (s *Spreadsheet) Graph() *DependencyGraph { return s.graph }

// CellCount reports how many cells are materialized.
func (s *Spreadsheet) CellCount() int { return len(s.cells) }

// Extent returns the smallest (rows, cols) box holding every stored cell.
func (s *Spreadsheet) Extent() (rows, cols int) {
	for a := range s.cells {
		if a.Row+1 > rows {
			rows = a.Row + 1
		}
		if a.Col+1 > cols {
			cols = a.Col + 1
		}
	}
	return rows, cols
}

// markDirty flags a cell and its transitive dependents for recomputation.
// Dependents keep their cached values: manual mode keeps showing the last
// computed numbers until the next pass.
func (s *Spreadsheet) markDirty(a ref.Addr) {
	s.dirty[a] = struct{}{}
	for d := range s.graph.AffectedBy(a) {
		s.dirty[d] = struct{}{}
	}
}

func (s *Spreadsheet) isDirty(a ref.Addr) bool {
	_, ok := s.dirty[a]
	return ok
}
