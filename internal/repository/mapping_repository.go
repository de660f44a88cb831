package repository

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-program-import/internal/model"
)

// mappingCacheTTL bounds staleness of cached lookups; the authoritative row
// always lives in MySQL and writes invalidate the cache key.
const mappingCacheTTL = 10 * time.Minute

// MappingRepo manages the learned title mappings.  Reads go through Redis
// when a client is configured; a nil client degrades to plain MySQL, the
// same graceful fallback the rest of the service uses for Redis.
type MappingRepo struct {
	db  *sql.DB
	rdb *redis.Client
}

// NewMappingRepo constructs a MappingRepo.  rdb may be nil.
func NewMappingRepo(db *sql.DB, rdb *redis.Client) *MappingRepo {
	return &MappingRepo{db: db, rdb: rdb}
}

func cacheKey(groupID uint64, importTitle string) string {
	sum := sha1.Sum([]byte(importTitle))
	return fmt.Sprintf("mapping:%d:%x", groupID, sum[:])
}

const mappingCols = `id, cinema_group_id, import_title, normalized_title,
	movie_id, edition_id, COALESCE(language_code, ''), COALESCE(format_code, ''),
	is_verified, last_used_at, created_at`

func scanMapping(row interface{ Scan(...any) error }) (*model.TitleMapping, error) {
	var m model.TitleMapping
	var movieID, editionID sql.NullInt64
	err := row.Scan(&m.ID, &m.CinemaGroupID, &m.ImportTitle, &m.NormalizedTitle,
		&movieID, &editionID, &m.LanguageCode, &m.FormatCode,
		&m.IsVerified, &m.LastUsedAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if movieID.Valid {
		id := uint64(movieID.Int64)
		m.MovieID = &id
	}
	if editionID.Valid {
		id := uint64(editionID.Int64)
		m.EditionID = &id
	}
	return &m, nil
}

// Lookup returns the mapping for (cinemaGroupID, importTitle) or
// ErrMappingNotFound.  Hits bump last_used_at.  The Redis layer is a pure
// read-through: a cache miss or error falls back to MySQL silently.
func (r *MappingRepo) Lookup(ctx context.Context, groupID uint64, importTitle string) (*model.TitleMapping, error) {
	key := cacheKey(groupID, importTitle)
	if r.rdb != nil {
		if bs, err := r.rdb.Get(ctx, key).Bytes(); err == nil {
			var m model.TitleMapping
			if json.Unmarshal(bs, &m) == nil {
				go r.touch(m.ID)
				return &m, nil
			}
		}
	}
	const q = `SELECT ` + mappingCols + ` FROM title_mappings WHERE cinema_group_id = ? AND import_title = ?`
	m, err := scanMapping(r.db.QueryRowContext(ctx, q, groupID, importTitle))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}
	go r.touch(m.ID)
	if r.rdb != nil {
		if bs, err := json.Marshal(m); err == nil {
			r.rdb.Set(ctx, key, bs, mappingCacheTTL)
		}
	}
	return m, nil
}

// touch bumps last_used_at outside the request path; a failed bump is
// harmless and only logged by the driver.
func (r *MappingRepo) touch(id uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = r.db.ExecContext(ctx, `UPDATE title_mappings SET last_used_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
}

// Upsert creates or replaces the mapping for its (cinema_group_id,
// import_title) key.  Concurrent writers are last-write-wins; the unique
// key guarantees a single surviving row.  The cache entry is refreshed.
func (r *MappingRepo) Upsert(ctx context.Context, m *model.TitleMapping) error {
	const q = `INSERT INTO title_mappings
	           (cinema_group_id, import_title, normalized_title, movie_id, edition_id,
	            language_code, format_code, is_verified, last_used_at)
	           VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, CURRENT_TIMESTAMP)
	           ON DUPLICATE KEY UPDATE
	             normalized_title = VALUES(normalized_title),
	             movie_id = VALUES(movie_id),
	             edition_id = VALUES(edition_id),
	             language_code = VALUES(language_code),
	             format_code = VALUES(format_code),
	             is_verified = VALUES(is_verified),
	             last_used_at = CURRENT_TIMESTAMP`
	res, err := r.db.ExecContext(ctx, q,
		m.CinemaGroupID, m.ImportTitle, m.NormalizedTitle, m.MovieID, m.EditionID,
		m.LanguageCode, m.FormatCode, m.IsVerified)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		m.ID = uint64(id)
	}
	m.LastUsedAt = time.Now().UTC()
	if r.rdb != nil {
		if bs, err := json.Marshal(m); err == nil {
			r.rdb.Set(ctx, cacheKey(m.CinemaGroupID, m.ImportTitle), bs, mappingCacheTTL)
		}
	}
	return nil
}

// List returns a page of mappings, optionally filtered by cinema group
// and/or verification flag (pass verified = nil for both).
func (r *MappingRepo) List(ctx context.Context, groupID uint64, verified *bool, limit, offset int) ([]model.TitleMapping, int, error) {
	where, args := " WHERE 1=1", []any{}
	if groupID != 0 {
		where += " AND cinema_group_id = ?"
		args = append(args, groupID)
	}
	if verified != nil {
		where += " AND is_verified = ?"
		args = append(args, *verified)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM title_mappings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + mappingCols + ` FROM title_mappings` + where + ` ORDER BY last_used_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.TitleMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}

// Delete removes a mapping by id and drops its cache entry.  It returns
// ErrMappingNotFound when the row does not exist.
func (r *MappingRepo) Delete(ctx context.Context, id uint64) error {
	const sel = `SELECT cinema_group_id, import_title FROM title_mappings WHERE id = ?`
	var groupID uint64
	var title string
	if err := r.db.QueryRowContext(ctx, sel, id).Scan(&groupID, &title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMappingNotFound
		}
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM title_mappings WHERE id = ?`, id); err != nil {
		return err
	}
	if r.rdb != nil {
		r.rdb.Del(ctx, cacheKey(groupID, title))
	}
	return nil
}
