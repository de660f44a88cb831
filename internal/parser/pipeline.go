package parser

import (
	"sync"
	"time"
)

// SheetResult is the outcome of running the full read-only pipeline
// (detect, extract, normalize) over one sheet.
type SheetResult struct {
	SheetIndex int              `json:"sheetIndex"`
	SheetName  string           `json:"sheetName"`
	CinemaID   uint64           `json:"cinemaId"`
	Skipped    bool             `json:"skipped"` // true when the sheet has no weekday header
	DateRange  *DateRange       `json:"dateRange,omitempty"`
	Films      []NormalizedFilm `json:"films"`
}

// ParseSheet runs structure detection, extraction and normalization over one
// sheet.  A sheet outside the layout family comes back Skipped with zero
// films; that is the expected way to ignore cover sheets and legends.
func ParseSheet(s Sheet, refs ReferenceData, loc *time.Location, p Profile) SheetResult {
	res := SheetResult{SheetIndex: s.Index, SheetName: s.Name, CinemaID: s.CinemaID}
	layout := DetectLayout(s.Grid)
	if layout.HeaderRow < 0 {
		res.Skipped = true
		return res
	}
	res.DateRange = layout.DateRange
	for _, row := range Extract(s.Grid, layout, p) {
		res.Films = append(res.Films, Normalize(row, layout.DateRange, refs, loc))
	}
	return res
}

// ParseSheets runs ParseSheet concurrently over several sheets of a
// cinema-group workbook.  Each sheet only reads the shared reference data
// and writes its own result slot, so no synchronization beyond the
// WaitGroup is needed.  Results come back in input order.
func ParseSheets(sheets []Sheet, refs ReferenceData, loc *time.Location, p Profile) []SheetResult {
	results := make([]SheetResult, len(sheets))
	var wg sync.WaitGroup
	for i, s := range sheets {
		wg.Add(1)
		go func(i int, s Sheet) {
			defer wg.Done()
			results[i] = ParseSheet(s, refs, loc, p)
		}(i, s)
	}
	wg.Wait()
	return results
}
