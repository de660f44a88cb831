package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateRange is the program week declared in a sheet header, e.g.
// "Wednesday, 28 May 2025 - Tuesday, 3 June 2025".  Both endpoints are
// whole calendar dates with no time component.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Dates expands the range into the inclusive list of calendar days.
func (r DateRange) Dates() []time.Time {
	var out []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// DateFor returns the calendar date inside the range that falls on the given
// weekday.  A range longer than seven days returns the first hit.  The bool
// is false when no day of the range has that weekday.
func (r DateRange) DateFor(wd time.Weekday) (time.Time, bool) {
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == wd {
			return d, true
		}
	}
	return time.Time{}, false
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	// "28 May" order, optional ordinal suffix on the day.
	dayMonthRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`)
	// "May 28" order.
	monthDayRe = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	yearRe     = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	dashSplit  = regexp.MustCompile(`\s*[-–—]\s*`)
)

// endpoint is one half of a range before year inference.
type endpoint struct {
	day   int
	month time.Month
	year  int // 0 when the side did not carry a year
}

func parseEndpoint(s string) (endpoint, bool) {
	var ep endpoint
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		ep.day, _ = strconv.Atoi(m[1])
		ep.month = months[strings.ToLower(m[2])]
	} else if m := monthDayRe.FindStringSubmatch(s); m != nil {
		ep.month = months[strings.ToLower(m[1])]
		ep.day, _ = strconv.Atoi(m[2])
	} else {
		return ep, false
	}
	if y := yearRe.FindString(s); y != "" {
		ep.year, _ = strconv.Atoi(y)
	}
	return ep, ep.day >= 1 && ep.day <= 31
}

// ParseDateRange parses a date-range header cell.  Both "28 May 2025" and
// "May 28, 2025" orders are accepted; weekday names and punctuation around
// the dates are ignored.  A year missing from one side is taken from the
// other side, and when neither side carries one the current year is used.
// The text must contain at least one 4-digit year to qualify, which keeps
// plain "Mon - Fri" style cells from being misread as ranges.
func ParseDateRange(text string) (DateRange, bool) {
	if !yearRe.MatchString(text) {
		return DateRange{}, false
	}
	parts := dashSplit.Split(text, 2)
	if len(parts) != 2 {
		return DateRange{}, false
	}
	from, ok := parseEndpoint(parts[0])
	if !ok {
		return DateRange{}, false
	}
	to, ok := parseEndpoint(parts[1])
	if !ok {
		return DateRange{}, false
	}
	switch {
	case from.year == 0 && to.year == 0:
		y := time.Now().Year()
		from.year, to.year = y, y
	case from.year == 0:
		from.year = to.year
	case to.year == 0:
		to.year = from.year
	}
	r := DateRange{
		Start: time.Date(from.year, from.month, from.day, 0, 0, 0, 0, time.UTC),
		End:   time.Date(to.year, to.month, to.day, 0, 0, 0, 0, time.UTC),
	}
	if r.End.Before(r.Start) {
		return DateRange{}, false
	}
	return r, true
}
