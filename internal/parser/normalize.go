package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ReferenceData carries the active reference rows a normalization run
// resolves against.  It is built by the caller per request and passed by
// value so concurrent imports with different active sets cannot interfere.
type ReferenceData struct {
	Formats      map[string]uint64 // lowercased format code -> formats.id
	Technologies map[string]uint64 // lowercased technology code -> technologies.id
	Languages    map[string]uint64 // lowercased language code -> languages.id
	LanguageMap  map[string]string // lowercased alias (e.g. "vf") -> language code
}

// Showing is one resolved showtime.  Date is the zero time when the sheet's
// range had no day for the showtime's weekday; such showings are staged for
// review and must be corrected before materialization.
type Showing struct {
	Weekday   time.Weekday
	Date      time.Time
	TimeOfDay string // "HH:MM", 24-hour
	StartsAt  time.Time
}

// NormalizedFilm is the typed form of one extracted film row.  Zero values
// mean "unknown": the pipeline stages unknowns for review instead of
// failing on them.
type NormalizedFilm struct {
	ImportTitle           string
	MovieName             string
	Director              string
	ProductionYear        int
	LanguageCode          string
	SubtitleLanguageCodes []string
	DurationMinutes       int
	FormatCode            string   // first format token resolved against reference data
	FormatCodes           []string // every format/technology token, resolved or raw
	AgeRating             string
	VersionString         string // unresolved tokens, preserved for the reviewer
	Showings              []Showing
}

var (
	parenRe    = regexp.MustCompile(`\(([^()]*)\)\s*$`)
	hoursMinRe = regexp.MustCompile(`(?i)^(\d{1,2})\s*h(?:ours?)?\s*(?:(\d{1,2})\s*m(?:in(?:s|utes)?)?)?$`)
	minutesRe  = regexp.MustCompile(`(?i)^(\d{1,3})\s*(?:min(?:s|utes)?|')$`)
	yearTokRe  = regexp.MustCompile(`^(?:19|20)\d{2}$`)
	ratingRe   = regexp.MustCompile(`(?i)^(?:\d{1,2}\+|PG(?:-?13)?|12A|15A|R|U|G|18|16)$`)
	subRe      = regexp.MustCompile(`(?i)^(?:vost|st|subs?)\s*[.\-]?\s*([a-z]{2,3})?$`)
	directorRe = regexp.MustCompile(`(?i)^dir\.?\s+(.+)$`)
)

// knownFormatTokens are format/technology markers that appear in titles even
// when the venue's reference data does not list them; they are kept raw so a
// reviewer can map them later.
var knownFormatTokens = map[string]bool{
	"2d": true, "3d": true, "imax": true, "atmos": true, "4dx": true,
	"70mm": true, "35mm": true, "screenx": true, "dolby": true,
}

// parseDuration converts "2h 15m", "135 min" or "135'" to whole minutes.
// Zero is returned for anything else; an unparseable duration is soft.
func parseDuration(s string) int {
	if m := hoursMinRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins := 0
		if m[2] != "" {
			mins, _ = strconv.Atoi(m[2])
		}
		return h*60 + mins
	}
	if m := minutesRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// clockMinutes converts an "H:MM" or "HH:MM" time of day to minutes since
// midnight.  Sheets mix both widths, so lexical comparison misorders them.
func clockMinutes(tod string) int {
	i := strings.Index(tod, ":")
	if i < 0 {
		return 0
	}
	hh, _ := strconv.Atoi(tod[:i])
	mm, _ := strconv.Atoi(tod[i+1:])
	return hh*60 + mm
}

// consumeToken classifies one parenthetical token and folds it into the
// film.  It reports false when the token was not recognized, in which case
// the caller keeps it as part of the version string.
func consumeToken(f *NormalizedFilm, refs ReferenceData, tok string) bool {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return true
	}
	lower := strings.ToLower(tok)

	if d := parseDuration(tok); d > 0 {
		if f.DurationMinutes == 0 {
			f.DurationMinutes = d
		}
		return true
	}
	if yearTokRe.MatchString(tok) {
		if f.ProductionYear == 0 {
			f.ProductionYear, _ = strconv.Atoi(tok)
		}
		return true
	}
	if ratingRe.MatchString(tok) {
		if f.AgeRating == "" {
			f.AgeRating = strings.ToUpper(tok)
		}
		return true
	}
	if m := directorRe.FindStringSubmatch(tok); m != nil {
		if f.Director == "" {
			f.Director = strings.TrimSpace(m[1])
		}
		return true
	}
	if m := subRe.FindStringSubmatch(lower); m != nil {
		if m[1] != "" {
			code := m[1]
			if mapped, ok := refs.LanguageMap[code]; ok {
				code = mapped
			}
			f.SubtitleLanguageCodes = append(f.SubtitleLanguageCodes, code)
		}
		return true
	}
	if _, ok := refs.Formats[lower]; ok {
		f.FormatCodes = append(f.FormatCodes, lower)
		if f.FormatCode == "" {
			f.FormatCode = lower
		}
		return true
	}
	if _, ok := refs.Technologies[lower]; ok {
		f.FormatCodes = append(f.FormatCodes, lower)
		return true
	}
	if knownFormatTokens[lower] {
		// Not in the active reference set; kept raw for manual mapping.
		f.FormatCodes = append(f.FormatCodes, lower)
		return true
	}
	if mapped, ok := refs.LanguageMap[lower]; ok {
		if f.LanguageCode == "" {
			f.LanguageCode = mapped
		}
		return true
	}
	if _, ok := refs.Languages[lower]; ok {
		if f.LanguageCode == "" {
			f.LanguageCode = lower
		}
		return true
	}
	return false
}

// Normalize cleans one extracted film row into typed fields and resolves its
// showtimes to calendar datetimes in the cinema's timezone.  Trailing
// parentheticals are peeled off the title one at a time; tokens nobody
// recognizes end up in VersionString rather than being dropped.
func Normalize(row FilmRow, dr *DateRange, refs ReferenceData, loc *time.Location) NormalizedFilm {
	f := NormalizedFilm{ImportTitle: row.Title}
	if loc == nil {
		loc = time.UTC
	}

	name := strings.TrimSpace(row.Title)
	var unresolved []string
	for {
		m := parenRe.FindStringSubmatchIndex(name)
		if m == nil {
			break
		}
		content := name[m[2]:m[3]]
		name = strings.TrimSpace(name[:m[0]])
		for _, tok := range strings.FieldsFunc(content, func(r rune) bool { return r == ',' || r == '/' || r == ';' }) {
			if !consumeToken(&f, refs, tok) {
				unresolved = append(unresolved, strings.TrimSpace(tok))
			}
		}
	}
	f.MovieName = name
	f.VersionString = strings.Join(unresolved, ", ")

	for wd, times := range row.Times {
		var date time.Time
		if dr != nil {
			if d, ok := dr.DateFor(wd); ok {
				date = d
			}
		}
		for _, tod := range times {
			s := Showing{Weekday: wd, Date: date, TimeOfDay: tod}
			if !date.IsZero() {
				mins := clockMinutes(tod)
				s.StartsAt = time.Date(date.Year(), date.Month(), date.Day(), mins/60, mins%60, 0, 0, loc)
			}
			f.Showings = append(f.Showings, s)
		}
	}
	// Chronological order with unresolved dates last keeps staging and API
	// payloads deterministic regardless of map iteration.
	sort.Slice(f.Showings, func(i, j int) bool {
		a, b := f.Showings[i], f.Showings[j]
		if a.Date.IsZero() != b.Date.IsZero() {
			return !a.Date.IsZero()
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return clockMinutes(a.TimeOfDay) < clockMinutes(b.TimeOfDay)
	})
	return f
}
