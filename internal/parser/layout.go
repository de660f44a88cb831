package parser

import (
	"strings"
	"time"
)

// scanWindow bounds structure detection to the top of the sheet.  The layout
// family always places its header rows first; scanning further only risks
// misreading data cells as headers.
const scanWindow = 10

// defaultFilmColumn is used when no header cell literally says "film".
const defaultFilmColumn = 1

// SheetLayout describes the detected table structure of one sheet.
// HeaderRow == -1 means the sheet does not belong to the weekly-program
// layout family and must be skipped; that is not an error.
type SheetLayout struct {
	HeaderRow  int                  // row index of the weekday header, -1 when undetected
	DayColumns map[int]time.Weekday // column index -> weekday of its header cell
	FilmColumn int                  // column carrying the film title
	DateRange  *DateRange           // program week, when a date-range cell was found
}

// weekdays maps the header spellings used across the layout family to
// canonical weekdays.  The source sheets mix the standard three-letter
// abbreviations with the longer "Tues"/"Thurs" forms.
var weekdays = map[string]time.Weekday{
	"mon":   time.Monday,
	"tue":   time.Tuesday,
	"tues":  time.Tuesday,
	"wed":   time.Wednesday,
	"thu":   time.Thursday,
	"thurs": time.Thursday,
	"fri":   time.Friday,
	"sat":   time.Saturday,
	"sun":   time.Sunday,
}

// DetectLayout scans the first scanWindow rows of the grid for the two
// structural rows of the layout family: a date-range row (any cell holding
// two dash-separated dates with a year) and a day-columns row (cells whose
// trimmed text is exactly a weekday abbreviation).  The first match of each
// wins; finding the day-columns row ends the scan.  The film column is the
// header cell equal to "film" (case-insensitive), defaulting to column 1.
func DetectLayout(g Grid) SheetLayout {
	layout := SheetLayout{HeaderRow: -1, FilmColumn: defaultFilmColumn}

	for row := 0; row < g.RowCount() && row < scanWindow; row++ {
		cols := len(g.Rows[row])
		days := map[int]time.Weekday{}
		filmCol := -1
		for col := 0; col < cols; col++ {
			cell := g.CellAt(row, col)
			if cell == "" {
				continue
			}
			if layout.DateRange == nil {
				if dr, ok := ParseDateRange(cell); ok {
					layout.DateRange = &dr
				}
			}
			lower := strings.ToLower(cell)
			if wd, ok := weekdays[lower]; ok {
				days[col] = wd
			} else if lower == "film" {
				filmCol = col
			}
		}
		if len(days) > 0 {
			layout.HeaderRow = row
			layout.DayColumns = days
			if filmCol >= 0 {
				layout.FilmColumn = filmCol
			}
			return layout
		}
	}
	return layout
}
