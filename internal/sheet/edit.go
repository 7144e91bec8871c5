package sheet

import (
	"fmt"

	"lotus/internal/cell"
	"lotus/internal/formula"
	"lotus/internal/ref"
)

// InsertRow shifts rows at idx and below down by one, rewriting every
// formula to keep pointing at the same logical cells.
func (s *Spreadsheet) InsertRow(idx int) error {
	if idx < 0 || idx >= ref.MaxRows {
		return fmt.Errorf("row %d out of range", idx)
	}
	s.structural(ref.RowAxis, idx, 1)
	return nil
}

// DeleteRow removes row idx; formulas referencing it get the #REF! marker.
func (s *Spreadsheet) DeleteRow(idx int) error {
	if idx < 0 || idx >= ref.MaxRows {
		return fmt.Errorf("row %d out of range", idx)
	}
	s.structural(ref.RowAxis, idx, -1)
	return nil
}

// InsertCol shifts columns at idx and beyond right by one.
func (s *Spreadsheet) InsertCol(idx int) error {
	if idx < 0 || idx >= ref.MaxCols {
		return fmt.Errorf("column %d out of range", idx)
	}
	s.structural(ref.ColAxis, idx, 1)
	return nil
}

// DeleteCol removes column idx.
func (s *Spreadsheet) DeleteCol(idx int) error {
	if idx < 0 || idx >= ref.MaxCols {
		return fmt.Errorf("column %d out of range", idx)
	}
	s.structural(ref.ColAxis, idx, -1)
	return nil
}

// structural runs a geometry change in two phases — rewrite every formula
// against the new geometry, then renumber the cells — and finishes with a
// wholesale graph rebuild. Patching edges across a global index shift is
// where stale entries come from; rebuilding is cheap and atomic.
func (s *Spreadsheet) structural(axis ref.Axis, boundary, shift int) {
	for _, c := range s.cells {
		rewriteFormula(c, func(body string) string {
			return ref.AdjustStructural(body, axis, boundary, shift, ref.MaxRows-1, ref.MaxCols-1)
		})
	}

	// named ranges follow the geometry too; a name whose range is wholly
	// deleted unbinds, and formulas using it go to the name error
	for name, rng := range s.names {
		if adj, ok := ref.AdjustRangeStructural(rng, axis, boundary, shift, ref.MaxRows-1, ref.MaxCols-1); ok {
			s.names[name] = adj
		} else {
			delete(s.names, name)
		}
	}

	moved := make(map[ref.Addr]*cell.Cell, len(s.cells))
	for a, c := range s.cells {
		pos := a.Row
		if axis == ref.ColAxis {
			pos = a.Col
		}
		switch {
		case shift < 0 && pos == boundary:
			// the deleted row/column takes its cells with it
		case pos >= boundary:
			na := a
			if axis == ref.RowAxis {
				na.Row += shift
			} else {
				na.Col += shift
			}
			if na.Row >= ref.MaxRows || na.Col >= ref.MaxCols {
				continue // shifted off the sheet
			}
			moved[na] = c
		default:
			moved[a] = c
		}
	}
	s.cells = moved
	s.rebuild()
}

// rebuild reconstructs the dependency graph and invalidates every cache in
// one step, then recomputes if the mode calls for it.
func (s *Spreadsheet) rebuild() {
	s.graph.Clear()
	s.dirty = make(map[ref.Addr]struct{})
	s.circular = make(map[ref.Addr]struct{})
	for a, c := range s.cells {
		c.ClearCache()
		s.dirty[a] = struct{}{}
		if c.IsFormula() {
			s.graph.Record(a, formula.ExtractDeps(formula.Tokenize(c.Formula), s.NameRange))
		}
	}
	if s.mode == Automatic {
		s.Recalculate()
	}
}

// rewriteFormula replaces a formula cell's body, reattaching whatever sigil
// the raw text carried. Sign sigils live inside the body, so only '=' and
// '@' need putting back.
func rewriteFormula(c *cell.Cell, rewrite func(string) string) bool {
	if !c.IsFormula() {
		return false
	}
	body := rewrite(c.Formula)
	if body == c.Formula {
		return false
	}
	raw := body
	if len(c.Raw) > 0 && (c.Raw[0] == '=' || c.Raw[0] == '@') {
		raw = string(c.Raw[0]) + body
	}
	c.SetText(raw)
	return true
}

// CopyCell copies raw text and format from one cell to another. With
// adjustRefs, relative references shift by the copy offset and clamp at the
// sheet edge; anchored ones stay put.
func (s *Spreadsheet) CopyCell(srcRow, srcCol, dstRow, dstCol int, adjustRefs bool) error {
	if err := checkBounds(srcRow, srcCol); err != nil {
		return err
	}
	if err := checkBounds(dstRow, dstCol); err != nil {
		return err
	}
	src := s.GetCellIfExists(srcRow, srcCol)
	if src == nil {
		return s.ClearCell(dstRow, dstCol)
	}
	raw := src.Raw
	if adjustRefs && src.IsFormula() {
		body := ref.AdjustFormula(src.Formula, dstRow-srcRow, dstCol-srcCol, ref.MaxRows-1, ref.MaxCols-1)
		raw = body
		if len(src.Raw) > 0 && (src.Raw[0] == '=' || src.Raw[0] == '@') {
			raw = string(src.Raw[0]) + body
		}
	}
	if err := s.SetCell(dstRow, dstCol, raw); err != nil {
		return err
	}
	if src.Format != "" {
		s.GetCell(dstRow, dstCol).Format = src.Format
	}
	return nil
}

// CopyRange copies a block to a destination corner, cell by cell.
func (s *Spreadsheet) CopyRange(src ref.RangeRef, dstRow, dstCol int, adjustRefs bool) error {
	n := src.Normalized()
	for r := n.Start.Row; r <= n.End.Row; r++ {
		for c := n.Start.Col; c <= n.End.Col; c++ {
			dr := dstRow + (r - n.Start.Row)
			dc := dstCol + (c - n.Start.Col)
			if err := checkBounds(dr, dc); err != nil {
				continue // clip at the sheet edge
			}
			if err := s.CopyCell(r, c, dr, dc, adjustRefs); err != nil {
				return err
			}
		}
	}
	return nil
}
