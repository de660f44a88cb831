package matcher

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/cinema-program-import/internal/model"
	"github.com/iliyamo/cinema-program-import/internal/repository"
)

// Catalog is the read-only view of the movie catalog the matcher needs.
// *repository.MovieRepo satisfies it; tests substitute a fake.
type Catalog interface {
	SearchCandidates(ctx context.Context, words []string) ([]model.Movie, error)
}

// Mappings is the learned-cache surface the matcher needs.
// *repository.MappingRepo satisfies it.
type Mappings interface {
	Lookup(ctx context.Context, groupID uint64, importTitle string) (*model.TitleMapping, error)
	Upsert(ctx context.Context, m *model.TitleMapping) error
}

// Result is the outcome of one match attempt.  Auto means the conflict may
// start in the verified state without reviewer action: either the learned
// mapping hit, or the catalog search produced exactly one candidate.
type Result struct {
	MovieID     *uint64
	EditionID   *uint64
	Auto        bool
	FromMapping bool
}

// Matcher resolves film titles against the catalog.
type Matcher struct {
	catalog  Catalog
	mappings Mappings
}

// New constructs a Matcher.
func New(catalog Catalog, mappings Mappings) *Matcher {
	return &Matcher{catalog: catalog, mappings: mappings}
}

// Match resolves one normalized film.  The mapping for (cinemaGroupID,
// importTitle) is checked before any search: a hit is exact, returns the
// mapped movie directly and needs no re-verification.  On a miss the
// catalog is searched for titles equal to, containing or word-overlapping
// the movie name (case- and diacritic-insensitive); exactly one candidate
// is an automatic match, while zero or several leave the conflict for
// review.  Ambiguity is never auto-resolved.
func (m *Matcher) Match(ctx context.Context, cinemaGroupID uint64, importTitle, movieName string) (Result, error) {
	if cinemaGroupID != 0 {
		mp, err := m.mappings.Lookup(ctx, cinemaGroupID, importTitle)
		switch {
		case err == nil && mp.MovieID != nil:
			return Result{MovieID: mp.MovieID, EditionID: mp.EditionID, Auto: true, FromMapping: true}, nil
		case err != nil && !errors.Is(err, repository.ErrMappingNotFound):
			return Result{}, err
		}
	}

	words := Words(movieName)
	if len(words) == 0 {
		return Result{}, nil
	}
	pool, err := m.catalog.SearchCandidates(ctx, words)
	if err != nil {
		return Result{}, err
	}

	var candidates []model.Movie
	for _, mv := range pool {
		if titleMatches(movieName, mv.Title) || (mv.OriginalTitle != "" && titleMatches(movieName, mv.OriginalTitle)) {
			candidates = append(candidates, mv)
		}
	}
	if len(candidates) == 1 {
		id := candidates[0].ID
		return Result{MovieID: &id, Auto: true}, nil
	}
	return Result{}, nil
}

// Learn records a reviewer-confirmed match so the exact same import title
// for that cinema group resolves instantly on the next run.
func (m *Matcher) Learn(ctx context.Context, cinemaGroupID uint64, importTitle string, movieID, editionID *uint64, languageCode, formatCode string) error {
	if cinemaGroupID == 0 {
		return nil // independent cinemas have no group scope to learn under
	}
	return m.mappings.Upsert(ctx, &model.TitleMapping{
		CinemaGroupID:   cinemaGroupID,
		ImportTitle:     importTitle,
		NormalizedTitle: NormalizeTitle(importTitle),
		MovieID:         movieID,
		EditionID:       editionID,
		LanguageCode:    languageCode,
		FormatCode:      formatCode,
		IsVerified:      true,
	})
}

// titleMatches reports whether a catalog title matches the extracted name:
// folded equality, folded containment either way, or stemmed word overlap
// where the shorter title's words all occur in the longer one.
func titleMatches(name, title string) bool {
	fn, ft := Fold(name), Fold(title)
	if fn == "" || ft == "" {
		return false
	}
	if fn == ft || strings.Contains(ft, fn) || strings.Contains(fn, ft) {
		return true
	}
	return stemSubset(Stems(name), Stems(title)) || stemSubset(Stems(title), Stems(name))
}

// stemSubset reports whether every stem of a occurs in b.
func stemSubset(a, b []string) bool {
	if len(a) == 0 {
		return false
	}
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	for _, s := range a {
		if !set[s] {
			return false
		}
	}
	return true
}
