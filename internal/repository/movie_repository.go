package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/cinema-program-import/internal/model"
)

// MovieRepo reads the movie catalog for matching and creates movies and
// editions during materialization.  Catalog CRUD screens live elsewhere;
// this repository only covers what the import pipeline needs.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

// DB exposes the underlying sql.DB.
func (r *MovieRepo) DB() *sql.DB {
	return r.db
}

// GetByID retrieves a movie or ErrMovieNotFound.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	const q = `SELECT id, title, COALESCE(original_title, ''), COALESCE(duration_min, 0),
	                  COALESCE(production_year, 0), COALESCE(director, ''), COALESCE(age_rating, ''), created_at
	           FROM movies WHERE id = ?`
	var m model.Movie
	err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Title, &m.OriginalTitle,
		&m.DurationMin, &m.ProductionYear, &m.Director, &m.AgeRating, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

// SearchCandidates returns catalog movies whose title or original title
// contains any of the given words.  The SQL cut is deliberately broad; the
// matcher narrows the candidates with folded and stemmed comparison in Go,
// where diacritic handling is reliable.
func (r *MovieRepo) SearchCandidates(ctx context.Context, words []string) ([]model.Movie, error) {
	if len(words) == 0 {
		return nil, nil
	}
	var conds []string
	var args []any
	for _, w := range words {
		conds = append(conds, `(title LIKE ? OR original_title LIKE ?)`)
		pat := "%" + w + "%"
		args = append(args, pat, pat)
	}
	q := `SELECT id, title, COALESCE(original_title, ''), COALESCE(duration_min, 0),
	             COALESCE(production_year, 0), COALESCE(director, ''), COALESCE(age_rating, ''), created_at
	      FROM movies WHERE ` + strings.Join(conds, " OR ") + ` LIMIT 200`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Movie
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.OriginalTitle, &m.DurationMin,
			&m.ProductionYear, &m.Director, &m.AgeRating, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Create inserts a new catalog movie and assigns the generated ID back.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	const q = `INSERT INTO movies (title, original_title, duration_min, production_year, director, age_rating)
	           VALUES (?, NULLIF(?, ''), NULLIF(?, 0), NULLIF(?, 0), NULLIF(?, ''), NULLIF(?, ''))`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.OriginalTitle, m.DurationMin, m.ProductionYear, m.Director, m.AgeRating)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// FindOrCreateEdition returns the edition of a movie with the same language
// and format combination, creating it when absent.  Editions are the unit
// screenings attach to, so materializing the same conflict content twice
// reuses the existing row.
func (r *MovieRepo) FindOrCreateEdition(ctx context.Context, e *model.MovieEdition) error {
	const sel = `SELECT id FROM movie_editions
	             WHERE movie_id = ? AND COALESCE(language_code, '') = ? AND COALESCE(format_codes, '') = ?`
	err := r.db.QueryRowContext(ctx, sel, e.MovieID, e.LanguageCode, e.FormatCodes).Scan(&e.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	const ins = `INSERT INTO movie_editions (movie_id, full_title, language_code, format_codes)
	             VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''))`
	res, err := r.db.ExecContext(ctx, ins, e.MovieID, e.FullTitle, e.LanguageCode, e.FormatCodes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}
