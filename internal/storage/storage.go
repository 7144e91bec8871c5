package storage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"

	"lotus/internal/sheet"
)

// SaveCSV writes the sheet to a CSV file. With computed set, each field is
// the formatted display value; otherwise it is the raw cell text, so a
// round-trip through LoadCSV preserves formulas.
func SaveCSV(s *sheet.Spreadsheet, filename string, computed bool) error {
	rows, cols := s.Extent()
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	if rows == 0 || cols == 0 {
		return nil
	}
	out := make([][]string, rows)
	for r := 0; r < rows; r++ {
		out[r] = make([]string, cols)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cl := s.GetCellIfExists(r, c)
			if cl == nil {
				continue
			}
			if computed {
				out[r][c] = s.GetDisplayValue(r, c)
			} else {
				out[r][c] = cl.Raw
			}
		}
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(out); err != nil {
		return fmt.Errorf("error writing CSV: %w", err)
	}
	w.Flush()
	return w.Error()
}

// LoadCSV reads a CSV file into the sheet through SetCell, so formulas in
// the file wire themselves into the dependency graph as they load.
func LoadCSV(s *sheet.Spreadsheet, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return err
	}

	// defer recomputation until the whole file is in
	mode := s.RecalcMode()
	s.SetRecalcMode(sheet.Manual)
	for rIdx, row := range records {
		for cIdx, val := range row {
			if val == "" {
				continue
			}
			if err := s.SetCell(rIdx, cIdx, val); err != nil {
				s.SetRecalcMode(mode)
				return err
			}
		}
	}
	s.SetRecalcMode(mode)
	return nil
}
