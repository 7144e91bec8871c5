package sheet

import (
	"lotus/internal/cell"
	"lotus/internal/ref"
)

// FillType selects how a fill generates values.
type FillType int

const (
	FillLinear FillType = iota // constant step
	FillGrowth                 // constant ratio
	FillCopy                   // repeat the source edge
)

// FillSpec describes a series fill. Stop is optional: NaN-free zero value
// means unbounded (the range edge is the bound).
type FillSpec struct {
	Type    FillType
	Start   float64
	Step    float64
	Stop    float64
	HasStop bool
}

// FillSeries writes a generated series into the range, row-major. Linear
// fills add Step per cell, growth fills multiply by it, and an optional Stop
// cuts the series short.
func (s *Spreadsheet) FillSeries(rng ref.RangeRef, spec FillSpec) error {
	n := rng.Normalized()
	if spec.Type == FillCopy {
		return s.fillCopy(n)
	}
	v := spec.Start
	for r := n.Start.Row; r <= n.End.Row; r++ {
		for c := n.Start.Col; c <= n.End.Col; c++ {
			if spec.HasStop && passedStop(spec, v) {
				return nil
			}
			if err := s.SetCell(r, c, cell.FormatNumber(v)); err != nil {
				return err
			}
			if spec.Type == FillGrowth {
				v *= spec.Step
			} else {
				v += spec.Step
			}
		}
	}
	return nil
}

func passedStop(spec FillSpec, v float64) bool {
	if spec.Type == FillGrowth {
		if spec.Step > 1 {
			return v > spec.Stop
		}
		return v < spec.Stop
	}
	if spec.Step >= 0 {
		return v > spec.Stop
	}
	return v < spec.Stop
}

func (s *Spreadsheet) fillCopy(n ref.RangeRef) error {
	for c := n.Start.Col; c <= n.End.Col; c++ {
		src := s.GetCellIfExists(n.Start.Row, c)
		raw := ""
		if src != nil {
			raw = src.Raw
		}
		for r := n.Start.Row + 1; r <= n.End.Row; r++ {
			if err := s.SetCell(r, c, raw); err != nil {
				return err
			}
		}
	}
	return nil
}

// FillDown replicates the top row of the range into the rows below it,
// adjusting relative references as a copy would.
func (s *Spreadsheet) FillDown(rng ref.RangeRef) error {
	n := rng.Normalized()
	for c := n.Start.Col; c <= n.End.Col; c++ {
		if s.GetCellIfExists(n.Start.Row, c) == nil {
			continue
		}
		for r := n.Start.Row + 1; r <= n.End.Row; r++ {
			if err := s.CopyCell(n.Start.Row, c, r, c, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// FillRight replicates the left column of the range into the columns to its
// right, adjusting relative references.
func (s *Spreadsheet) FillRight(rng ref.RangeRef) error {
	n := rng.Normalized()
	for r := n.Start.Row; r <= n.End.Row; r++ {
		if s.GetCellIfExists(r, n.Start.Col) == nil {
			continue
		}
		for c := n.Start.Col + 1; c <= n.End.Col; c++ {
			if err := s.CopyCell(r, n.Start.Col, r, c, true); err != nil {
				return err
			}
		}
	}
	return nil
}
