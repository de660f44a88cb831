package model

import "time"

// Movie is a catalog entry.  The import pipeline reads the catalog to match
// extracted titles and creates new movies only during materialization of
// verified conflicts that resolved to nothing.
type Movie struct {
	ID             uint64    // movies.id
	Title          string    // movies.title
	OriginalTitle  string    // movies.original_title, "" when same as Title
	DurationMin    int       // movies.duration_min, 0 when unknown
	ProductionYear int       // movies.production_year, 0 when unknown
	Director       string    // movies.director
	AgeRating      string    // movies.age_rating
	CreatedAt      time.Time // movies.created_at
}

// MovieEdition is a distinct presentable version of a movie: a language and
// format/technology combination a cinema can program.
type MovieEdition struct {
	ID           uint64    // movie_editions.id
	MovieID      uint64    // movie_editions.movie_id
	FullTitle    string    // movie_editions.full_title
	LanguageCode string    // movie_editions.language_code
	FormatCodes  string    // movie_editions.format_codes (comma-joined)
	CreatedAt    time.Time // movie_editions.created_at
}
