// Package repository contains the data access layer of the import service.
// Every repository wraps a *sql.DB, issues hand-written SQL with context,
// and reports misses through the sentinel errors in errors.go.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/cinema-program-import/internal/model"
	"github.com/iliyamo/cinema-program-import/internal/parser"
)

// ReferenceRepo loads the read-only reference rows the normalizer resolves
// against: formats, technologies, languages and the language alias table.
type ReferenceRepo struct {
	db *sql.DB
}

// NewReferenceRepo constructs a ReferenceRepo with the given DB handle.
func NewReferenceRepo(db *sql.DB) *ReferenceRepo {
	return &ReferenceRepo{db: db}
}

// LoadReferenceData reads every active reference row and builds the lookup
// maps used by normalization.  The result is a value: callers thread it
// through the pipeline and concurrent imports never share mutable state.
func (r *ReferenceRepo) LoadReferenceData(ctx context.Context) (parser.ReferenceData, error) {
	refs := parser.ReferenceData{
		Formats:      map[string]uint64{},
		Technologies: map[string]uint64{},
		Languages:    map[string]uint64{},
		LanguageMap:  map[string]string{},
	}

	load := func(query string, fill func(id uint64, a, b string)) error {
		rows, err := r.db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id uint64
			var a, b string
			if err := rows.Scan(&id, &a, &b); err != nil {
				return err
			}
			fill(id, a, b)
		}
		return rows.Err()
	}

	if err := load(`SELECT id, code, name FROM formats WHERE is_active = 1`, func(id uint64, code, _ string) {
		refs.Formats[strings.ToLower(code)] = id
	}); err != nil {
		return refs, err
	}
	if err := load(`SELECT id, code, name FROM technologies WHERE is_active = 1`, func(id uint64, code, _ string) {
		refs.Technologies[strings.ToLower(code)] = id
	}); err != nil {
		return refs, err
	}
	if err := load(`SELECT id, code, name FROM languages WHERE is_active = 1`, func(id uint64, code, _ string) {
		refs.Languages[strings.ToLower(code)] = id
	}); err != nil {
		return refs, err
	}
	if err := load(`SELECT id, alias, code FROM language_aliases`, func(_ uint64, alias, code string) {
		refs.LanguageMap[strings.ToLower(alias)] = strings.ToLower(code)
	}); err != nil {
		return refs, err
	}
	return refs, nil
}

// GetCinema retrieves a cinema by id. It returns ErrCinemaNotFound when no
// matching row exists.
func (r *ReferenceRepo) GetCinema(ctx context.Context, id uint64) (*model.Cinema, error) {
	const q = `SELECT id, COALESCE(cinema_group_id, 0), name FROM cinemas WHERE id = ?`
	var c model.Cinema
	err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.CinemaGroupID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCinemaNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListGroupCinemas returns all cinemas belonging to a cinema group, used to
// validate the sheet mappings of a group import.
func (r *ReferenceRepo) ListGroupCinemas(ctx context.Context, groupID uint64) ([]model.Cinema, error) {
	const q = `SELECT id, COALESCE(cinema_group_id, 0), name FROM cinemas WHERE cinema_group_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Cinema
	for rows.Next() {
		var c model.Cinema
		if err := rows.Scan(&c.ID, &c.CinemaGroupID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
