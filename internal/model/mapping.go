package model

import "time"

// TitleMapping is the learned cache mapping an import-provided title string
// to a catalog movie for one cinema group.  It is consulted before any fuzzy
// search and written whenever a reviewer confirms a match, so recurring
// titles stop needing review.  Keyed uniquely by (CinemaGroupID, ImportTitle).
type TitleMapping struct {
	ID              uint64    // title_mappings.id
	CinemaGroupID   uint64    // title_mappings.cinema_group_id
	ImportTitle     string    // exact title string as imported
	NormalizedTitle string    // title with parentheticals and format tokens stripped
	MovieID         *uint64   // mapped catalog movie
	EditionID       *uint64   // mapped catalog edition, nil when only the movie is known
	LanguageCode    string    // language the mapping implies, "" when none
	FormatCode      string    // format the mapping implies, "" when none
	IsVerified      bool      // true once a human confirmed the mapping
	LastUsedAt      time.Time // bumped on every lookup hit
	CreatedAt       time.Time
}
