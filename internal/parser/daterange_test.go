package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDateRange(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		start time.Time
		end   time.Time
	}{
		{
			name:  "weekday prefixes and full months",
			text:  "Wednesday, 28 May 2025 - Tuesday, 3 June 2025",
			start: date(2025, time.May, 28),
			end:   date(2025, time.June, 3),
		},
		{
			name:  "month day order",
			text:  "May 28, 2025 - June 3, 2025",
			start: date(2025, time.May, 28),
			end:   date(2025, time.June, 3),
		},
		{
			name:  "year only on right side",
			text:  "28 May - 3 June 2025",
			start: date(2025, time.May, 28),
			end:   date(2025, time.June, 3),
		},
		{
			name:  "year only on left side",
			text:  "28 May 2025 - 3 June",
			start: date(2025, time.May, 28),
			end:   date(2025, time.June, 3),
		},
		{
			name:  "en dash and abbreviations",
			text:  "Program 28 May 2025 – 3 Jun 2025",
			start: date(2025, time.May, 28),
			end:   date(2025, time.June, 3),
		},
		{
			name:  "single day range",
			text:  "1 January 2025 - 1 January 2025",
			start: date(2025, time.January, 1),
			end:   date(2025, time.January, 1),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, ok := ParseDateRange(tc.text)
			require.True(t, ok)
			assert.Equal(t, tc.start, r.Start)
			assert.Equal(t, tc.end, r.End)
			assert.False(t, r.End.Before(r.Start))
		})
	}
}

func TestParseDateRangeRejects(t *testing.T) {
	for _, text := range []string{
		"",
		"Dune: Part Two",
		"Mon - Fri",                // no year anywhere
		"28 May 2025",              // no dash
		"28 May 2025 - sometime",   // right side not a date
		"3 June 2025 - 28 May 2025", // end before start
	} {
		_, ok := ParseDateRange(text)
		assert.False(t, ok, "%q should not parse", text)
	}
}

func TestDateRangeDates(t *testing.T) {
	r := DateRange{Start: date(2025, time.May, 28), End: date(2025, time.June, 3)}
	days := r.Dates()
	require.Len(t, days, 7)
	assert.Equal(t, r.Start, days[0])
	assert.Equal(t, r.End, days[6])
	// Each generated day carries the right weekday.
	assert.Equal(t, time.Wednesday, days[0].Weekday())
	assert.Equal(t, time.Tuesday, days[6].Weekday())

	thu, ok := r.DateFor(time.Thursday)
	require.True(t, ok)
	assert.Equal(t, date(2025, time.May, 29), thu)

	short := DateRange{Start: date(2025, time.May, 28), End: date(2025, time.May, 29)}
	_, ok = short.DateFor(time.Sunday)
	assert.False(t, ok)
}
