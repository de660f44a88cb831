package model

import "time"

// Review states of a staged conflict.  to_verify and verified are live,
// rejected and processed are terminal.  A conflict can only become processed
// from verified, and only the materializer performs that transition.
const (
	StateToVerify  = "to_verify"
	StateVerified  = "verified"
	StateRejected  = "rejected"
	StateProcessed = "processed"
)

// ConflictMovie is the staged, human-reviewable unit produced per distinct
// film row of an import job.  MatchedMovieID is set when the matcher (or a
// reviewer) resolved the row to an existing catalog movie; nil means "create
// a new movie on materialization" once verified.
type ConflictMovie struct {
	ID             uint64    // conflict_movies.id
	ImportJobID    uint64    // conflict_movies.import_job_id
	CinemaID       uint64    // conflict_movies.cinema_id
	CinemaGroupID  uint64    // conflict_movies.cinema_group_id (0 when cinema has no group)
	ImportTitle    string    // raw title as it appeared in the sheet
	MovieName      string    // cleaned title after normalization
	MatchedMovieID *uint64   // catalog movie the row resolved to, nil when unresolved
	State          string    // review state, see constants above
	CreatedAt      time.Time // conflict_movies.created_at

	Editions []ConflictEdition `json:"editions,omitempty"`
	Sessions []ConflictSession `json:"sessions,omitempty"`
}

// ConflictEdition is the staged presentable version (language/format
// combination) derived from one film row.  Unresolved format codes are kept
// raw so a reviewer can map them later.
type ConflictEdition struct {
	ID              uint64 // conflict_editions.id
	ConflictMovieID uint64 // conflict_editions.conflict_movie_id
	FullTitle       string // title including version tokens
	LanguageCode    string // resolved language code, "" when unknown
	FormatCodes     string // comma-joined format/technology tokens
	DurationMinutes int    // 0 when the sheet carried no parsable duration
	AgeRating       string // "" when unknown
	VersionString   string // unresolved tokens preserved for review
	State           string
}

// ConflictSession is one staged showtime.  Date and StartsAt are nil when
// the showtime's weekday had no calendar date inside the sheet's range; such
// sessions must be corrected by a reviewer and are refused by the
// materializer.
type ConflictSession struct {
	ID                uint64     // conflict_sessions.id
	ConflictMovieID   uint64     // conflict_sessions.conflict_movie_id
	ConflictEditionID uint64     // conflict_sessions.conflict_edition_id
	CinemaID          uint64     // conflict_sessions.cinema_id
	Date              *time.Time // calendar date, nil when unresolved
	TimeOfDay         string     // "HH:MM"
	StartsAt          *time.Time // Date + TimeOfDay in the cinema's timezone
	State             string
}
