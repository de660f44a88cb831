package parser

import (
	"regexp"
	"time"
)

// Profile carries the per-parser tuning knobs of the extractor.  Cinema
// chains drift in how they lay out their sheets, so the quirks are settings
// rather than hard-coded rules.
type Profile struct {
	// ShiftFallback enables reading one column to the left when a day
	// column's cell is empty.  Some chains right-align merged time cells so
	// the text lands a column before its weekday header.  The fallback is
	// tried exactly once per cell, never further left.
	ShiftFallback bool
	// MinTitleLen is the shortest trimmed title treated as a film row;
	// shorter cells are separators or stray notes.
	MinTitleLen int
}

// DefaultProfile matches the behavior observed across the known layout
// family.
func DefaultProfile() Profile {
	return Profile{ShiftFallback: true, MinTitleLen: 4}
}

// timeRe matches 24-hour H:MM or HH:MM times.  A cell may carry several,
// usually newline-separated.
var timeRe = regexp.MustCompile(`\b(?:[01]?[0-9]|2[0-3]):[0-5][0-9]\b`)

// ExtractTimes returns every H:MM / HH:MM substring of a cell in order of
// appearance.
func ExtractTimes(cell string) []string {
	return timeRe.FindAllString(cell, -1)
}

// FilmRow is one extracted film line: the raw title plus the showtimes read
// under each matched weekday column.  It is a transient value, consumed by
// Normalize and never persisted.
type FilmRow struct {
	Title string
	Times map[time.Weekday][]string
}

// Extract walks every row below the layout's header and collects film rows.
// A row qualifies when its film-column cell is at least MinTitleLen long and
// at least one weekday column yields a time; titled rows with zero times are
// section headers misaligned into the data area and are dropped silently.
func Extract(g Grid, layout SheetLayout, p Profile) []FilmRow {
	if layout.HeaderRow < 0 {
		return nil
	}
	var out []FilmRow
	for row := layout.HeaderRow + 1; row < g.RowCount(); row++ {
		title := g.CellAt(row, layout.FilmColumn)
		if len([]rune(title)) < p.MinTitleLen {
			continue
		}
		times := map[time.Weekday][]string{}
		total := 0
		for col, wd := range layout.DayColumns {
			cell := g.CellAt(row, col)
			if cell == "" && p.ShiftFallback {
				// One column left, exactly once, and never a cell that
				// belongs to another day column or the film column: the
				// quirk this covers is a showtime landing just before its
				// own header, not borrowing a neighbor's showtimes.
				if left := col - 1; left != layout.FilmColumn {
					if _, taken := layout.DayColumns[left]; !taken {
						cell = g.CellAt(row, left)
					}
				}
			}
			if cell == "" {
				continue
			}
			if ts := ExtractTimes(cell); len(ts) > 0 {
				times[wd] = append(times[wd], ts...)
				total += len(ts)
			}
		}
		if total == 0 {
			continue
		}
		out = append(out, FilmRow{Title: title, Times: times})
	}
	return out
}
