package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRefs() ReferenceData {
	return ReferenceData{
		Formats:      map[string]uint64{"2d": 1, "3d": 2, "imax": 3},
		Technologies: map[string]uint64{"atmos": 10},
		Languages:    map[string]uint64{"en": 1, "fr": 2, "de": 3},
		LanguageMap:  map[string]string{"vo": "en", "vf": "fr", "french": "fr"},
	}
}

func TestNormalizeTokens(t *testing.T) {
	row := FilmRow{Title: "Amélie (VF) (3D) (ATMOS) (2h 2m) (2001) (12+)"}
	f := Normalize(row, nil, testRefs(), time.UTC)

	assert.Equal(t, "Amélie (VF) (3D) (ATMOS) (2h 2m) (2001) (12+)", f.ImportTitle)
	assert.Equal(t, "Amélie", f.MovieName)
	assert.Equal(t, "fr", f.LanguageCode)
	assert.Equal(t, "3d", f.FormatCode)
	assert.ElementsMatch(t, []string{"3d", "atmos"}, f.FormatCodes)
	assert.Equal(t, 122, f.DurationMinutes)
	assert.Equal(t, 2001, f.ProductionYear)
	assert.Equal(t, "12+", f.AgeRating)
	assert.Empty(t, f.VersionString)
}

func TestNormalizeUnresolvedTokensKept(t *testing.T) {
	row := FilmRow{Title: "Metropolis (restored cut, VO, ST FR)"}
	f := Normalize(row, nil, testRefs(), time.UTC)

	assert.Equal(t, "Metropolis", f.MovieName)
	assert.Equal(t, "en", f.LanguageCode, "VO maps through the language alias table")
	assert.Equal(t, []string{"fr"}, f.SubtitleLanguageCodes)
	// The cut description matches nothing and is preserved for the reviewer.
	assert.Equal(t, "restored cut", f.VersionString)
}

func TestNormalizeDurationForms(t *testing.T) {
	cases := map[string]int{
		"2h 15m":      135,
		"2h":          120,
		"135 min":     135,
		"95'":         95,
		"1h 05min":    65,
		"over 2 hours": 0, // unparseable durations stay unknown, not fatal
	}
	for text, want := range cases {
		assert.Equal(t, want, parseDuration(text), "duration %q", text)
	}
}

func TestNormalizeUnknownFormatKeptRaw(t *testing.T) {
	row := FilmRow{Title: "Dune: Part Two (70MM)"}
	f := Normalize(row, nil, testRefs(), time.UTC)
	assert.Equal(t, "Dune: Part Two", f.MovieName)
	assert.Equal(t, []string{"70mm"}, f.FormatCodes)
	assert.Empty(t, f.FormatCode, "raw tokens do not resolve to a format code")
}

func TestNormalizeDirector(t *testing.T) {
	row := FilmRow{Title: "Persona (dir. Ingmar Bergman)"}
	f := Normalize(row, nil, testRefs(), time.UTC)
	assert.Equal(t, "Persona", f.MovieName)
	assert.Equal(t, "Ingmar Bergman", f.Director)
}

func TestNormalizeShowings(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	dr := &DateRange{Start: date(2025, time.May, 28), End: date(2025, time.June, 3)}
	row := FilmRow{
		Title: "Dune: Part Two",
		Times: map[time.Weekday][]string{
			time.Thursday: {"14:00", "20:00"},
			time.Saturday: {"18:30"},
		},
	}
	f := Normalize(row, dr, testRefs(), loc)
	require.Len(t, f.Showings, 3)

	assert.Equal(t, date(2025, time.May, 29), f.Showings[0].Date)
	assert.Equal(t, "14:00", f.Showings[0].TimeOfDay)
	assert.Equal(t, time.Date(2025, time.May, 29, 14, 0, 0, 0, loc), f.Showings[0].StartsAt)

	assert.Equal(t, "20:00", f.Showings[1].TimeOfDay)
	assert.Equal(t, date(2025, time.May, 31), f.Showings[2].Date)
	assert.Equal(t, "18:30", f.Showings[2].TimeOfDay)

	// Every datetime agrees with its date + time-of-day in the local zone.
	for _, s := range f.Showings {
		assert.Equal(t, s.Date.Day(), s.StartsAt.Day())
		assert.Equal(t, s.TimeOfDay, s.StartsAt.Format("15:04"))
	}
}

func TestNormalizeShowingsSingleDigitHourOrder(t *testing.T) {
	// "9:15" must sort before "18:30" on the same day even though it is
	// lexically greater.
	dr := &DateRange{Start: date(2025, time.May, 28), End: date(2025, time.June, 3)}
	row := FilmRow{
		Title: "Paddington",
		Times: map[time.Weekday][]string{
			time.Saturday: {"18:30", "9:15", "11:00"},
		},
	}
	f := Normalize(row, dr, testRefs(), time.UTC)
	require.Len(t, f.Showings, 3)
	assert.Equal(t, "9:15", f.Showings[0].TimeOfDay)
	assert.Equal(t, "11:00", f.Showings[1].TimeOfDay)
	assert.Equal(t, "18:30", f.Showings[2].TimeOfDay)
	assert.Equal(t, 9, f.Showings[0].StartsAt.Hour())
}

func TestNormalizeUnresolvedWeekdayDate(t *testing.T) {
	// Two-day range: a Sunday showtime has no calendar date to land on.
	dr := &DateRange{Start: date(2025, time.May, 28), End: date(2025, time.May, 29)}
	row := FilmRow{
		Title: "Nosferatu",
		Times: map[time.Weekday][]string{time.Sunday: {"22:00"}},
	}
	f := Normalize(row, dr, testRefs(), time.UTC)
	require.Len(t, f.Showings, 1)
	assert.True(t, f.Showings[0].Date.IsZero(), "unresolved weekday keeps an empty date for review")
	assert.Equal(t, "22:00", f.Showings[0].TimeOfDay)
	assert.True(t, f.Showings[0].StartsAt.IsZero())
}
