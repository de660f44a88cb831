// Package parser turns weekly cinema-programming workbooks into structured
// film rows.  The stages are pure functions over an immutable cell grid:
// DetectLayout finds the table structure, Extract walks the data rows and
// Normalize resolves free-text fields against reference data.
package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Grid is an immutable snapshot of one worksheet.  Rows may have ragged
// lengths exactly as excelize returns them; CellAt hides that from callers.
type Grid struct {
	Rows [][]string
}

// CellAt returns the trimmed text of the cell at (row, col) or the empty
// string when the coordinate lies outside the grid.
func (g Grid) CellAt(row, col int) string {
	if row < 0 || row >= len(g.Rows) {
		return ""
	}
	r := g.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// RowCount returns the number of rows in the grid.
func (g Grid) RowCount() int { return len(g.Rows) }

// Sheet couples a worksheet's position and name with its cell grid.
// CinemaID is stamped by the caller when the sheet has been mapped to a
// target cinema; the parser carries it through untouched.
type Sheet struct {
	Index    int
	Name     string
	CinemaID uint64
	Grid     Grid
}

// Workbook is the parsed form of one uploaded program file.
type Workbook struct {
	Sheets []Sheet
}

// OpenWorkbook reads an xlsx stream into memory.  The upload is transient:
// nothing is written to disk and the excelize handle is closed before
// returning, so only the extracted grids survive.
func OpenWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var wb Workbook
	for i, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, Sheet{Index: i, Name: name, Grid: Grid{Rows: rows}})
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook contains no sheets")
	}
	return &wb, nil
}

// SheetSummary is the cheap preflight view of one sheet: enough for a caller
// to decide which sheets to map to which cinemas before running a parse.
type SheetSummary struct {
	Index      int        `json:"index"`
	Name       string     `json:"name"`
	RowCount   int        `json:"rowCount"`
	DateRange  *DateRange `json:"dateRange,omitempty"`
	SampleData [][]string `json:"sampleData"`
}

// Summarize builds a SheetSummary without running structure detection beyond
// the date-range scan.  At most sampleRows rows of raw cells are included.
func Summarize(s Sheet, sampleRows int) SheetSummary {
	sum := SheetSummary{Index: s.Index, Name: s.Name, RowCount: s.Grid.RowCount()}
	for i := 0; i < s.Grid.RowCount() && i < sampleRows; i++ {
		row := make([]string, len(s.Grid.Rows[i]))
		for j := range s.Grid.Rows[i] {
			row[j] = strings.TrimSpace(s.Grid.Rows[i][j])
		}
		sum.SampleData = append(sum.SampleData, row)
	}
	for i := 0; i < s.Grid.RowCount() && i < scanWindow; i++ {
		for j := range s.Grid.Rows[i] {
			if dr, ok := ParseDateRange(s.Grid.CellAt(i, j)); ok {
				sum.DateRange = &dr
				return sum
			}
		}
	}
	return sum
}
