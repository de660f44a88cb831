package parser

// Cell classification used by the preview endpoint.  The annotated grid lets
// a human check what the detector saw before committing to a parser run.
const (
	CellEmpty     = "empty"
	CellHeader    = "header"
	CellMovie     = "movie"
	CellTime      = "time"
	CellDateRange = "date-range"
	CellData      = "data"
)

// AnnotatedCell is one grid cell tagged with the role the detector assigned
// to it.
type AnnotatedCell struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// Annotate classifies every cell of the grid against the detected layout.
// Header cells are those on the day-columns row; below it, the film column
// is "movie" and any cell containing a showtime is "time".  Cells matching a
// date-range pattern are tagged wherever they appear in the scan window.
func Annotate(g Grid, layout SheetLayout) []AnnotatedCell {
	var out []AnnotatedCell
	for row := 0; row < g.RowCount(); row++ {
		for col := 0; col < len(g.Rows[row]); col++ {
			text := g.CellAt(row, col)
			c := AnnotatedCell{Row: row, Col: col, Text: text, Type: CellData}
			switch {
			case text == "":
				c.Type = CellEmpty
			case layout.HeaderRow >= 0 && row == layout.HeaderRow:
				c.Type = CellHeader
			case row < scanWindow && isDateRangeCell(text):
				c.Type = CellDateRange
			case layout.HeaderRow >= 0 && row > layout.HeaderRow && col == layout.FilmColumn:
				c.Type = CellMovie
			case layout.HeaderRow >= 0 && row > layout.HeaderRow && len(ExtractTimes(text)) > 0:
				c.Type = CellTime
			}
			out = append(out, c)
		}
	}
	return out
}

func isDateRangeCell(text string) bool {
	_, ok := ParseDateRange(text)
	return ok
}
