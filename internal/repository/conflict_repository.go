package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/cinema-program-import/internal/model"
)

// ConflictRepo manages persistence for staged conflicts: the movie row plus
// its editions and sessions.  Staging one film is transactional; partial
// films are never left behind.
type ConflictRepo struct {
	db *sql.DB
}

// NewConflictRepo constructs a ConflictRepo with the given DB handle.
func NewConflictRepo(db *sql.DB) *ConflictRepo {
	return &ConflictRepo{db: db}
}

// DB exposes the underlying sql.DB for callers that need transaction
// control spanning multiple repositories.
func (r *ConflictRepo) DB() *sql.DB {
	return r.db
}

// Stage atomically inserts one ConflictMovie with its editions and
// sessions.  Either the whole film lands or none of it does; a failure here
// is reported per film by the staging service and does not abort the job.
// The return is named so the deferred commit can surface its error.
func (r *ConflictRepo) Stage(ctx context.Context, cm *model.ConflictMovie) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	const qm = `INSERT INTO conflict_movies
	            (import_job_id, cinema_id, cinema_group_id, import_title, movie_name, matched_movie_id, state)
	            VALUES (?, ?, NULLIF(?, 0), ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, qm,
		cm.ImportJobID, cm.CinemaID, cm.CinemaGroupID, cm.ImportTitle, cm.MovieName, cm.MatchedMovieID, cm.State)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	cm.ID = uint64(id)
	cm.CreatedAt = time.Now().UTC()

	const qe = `INSERT INTO conflict_editions
	            (conflict_movie_id, full_title, language_code, format_codes, duration_minutes, age_rating, version_string, state)
	            VALUES (?, ?, ?, ?, NULLIF(?, 0), ?, ?, ?)`
	for i := range cm.Editions {
		e := &cm.Editions[i]
		e.ConflictMovieID = cm.ID
		e.State = cm.State
		res, err = tx.ExecContext(ctx, qe,
			cm.ID, e.FullTitle, e.LanguageCode, e.FormatCodes, e.DurationMinutes, e.AgeRating, e.VersionString, e.State)
		if err != nil {
			return err
		}
		eid, err2 := res.LastInsertId()
		if err2 != nil {
			err = err2
			return err
		}
		e.ID = uint64(eid)
	}

	const qs = `INSERT INTO conflict_sessions
	            (conflict_movie_id, conflict_edition_id, cinema_id, date, time_of_day, starts_at, state)
	            VALUES (?, NULLIF(?, 0), ?, ?, ?, ?, ?)`
	for i := range cm.Sessions {
		s := &cm.Sessions[i]
		s.ConflictMovieID = cm.ID
		if s.ConflictEditionID == 0 && len(cm.Editions) > 0 {
			s.ConflictEditionID = cm.Editions[0].ID
		}
		s.State = cm.State
		res, err = tx.ExecContext(ctx, qs,
			cm.ID, s.ConflictEditionID, s.CinemaID, s.Date, s.TimeOfDay, s.StartsAt, s.State)
		if err != nil {
			return err
		}
		sid, err2 := res.LastInsertId()
		if err2 != nil {
			err = err2
			return err
		}
		s.ID = uint64(sid)
	}
	return nil
}

// scanConflict reads one conflict_movies row.
func scanConflict(row interface{ Scan(...any) error }) (*model.ConflictMovie, error) {
	var cm model.ConflictMovie
	var matched sql.NullInt64
	err := row.Scan(&cm.ID, &cm.ImportJobID, &cm.CinemaID, &cm.CinemaGroupID,
		&cm.ImportTitle, &cm.MovieName, &matched, &cm.State, &cm.CreatedAt)
	if err != nil {
		return nil, err
	}
	if matched.Valid {
		id := uint64(matched.Int64)
		cm.MatchedMovieID = &id
	}
	return &cm, nil
}

const conflictCols = `id, import_job_id, cinema_id, COALESCE(cinema_group_id, 0),
	import_title, movie_name, matched_movie_id, state, created_at`

// GetByID retrieves a conflict movie without its children.  It returns
// ErrConflictNotFound if there is no matching row.
func (r *ConflictRepo) GetByID(ctx context.Context, id uint64) (*model.ConflictMovie, error) {
	cm, err := scanConflict(r.db.QueryRowContext(ctx,
		`SELECT `+conflictCols+` FROM conflict_movies WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConflictNotFound
		}
		return nil, err
	}
	return cm, nil
}

// GetDetailed retrieves a conflict movie together with its editions and
// sessions, as the materializer and the review listing need them.
func (r *ConflictRepo) GetDetailed(ctx context.Context, id uint64) (*model.ConflictMovie, error) {
	cm, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, cm); err != nil {
		return nil, err
	}
	return cm, nil
}

func (r *ConflictRepo) loadChildren(ctx context.Context, cm *model.ConflictMovie) error {
	const qe = `SELECT id, conflict_movie_id, full_title, COALESCE(language_code, ''),
	                   COALESCE(format_codes, ''), COALESCE(duration_minutes, 0),
	                   COALESCE(age_rating, ''), COALESCE(version_string, ''), state
	            FROM conflict_editions WHERE conflict_movie_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, qe, cm.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var e model.ConflictEdition
		if err := rows.Scan(&e.ID, &e.ConflictMovieID, &e.FullTitle, &e.LanguageCode,
			&e.FormatCodes, &e.DurationMinutes, &e.AgeRating, &e.VersionString, &e.State); err != nil {
			return err
		}
		cm.Editions = append(cm.Editions, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	const qs = `SELECT id, conflict_movie_id, COALESCE(conflict_edition_id, 0), cinema_id,
	                   date, time_of_day, starts_at, state
	            FROM conflict_sessions WHERE conflict_movie_id = ? ORDER BY starts_at IS NULL, starts_at, id`
	srows, err := r.db.QueryContext(ctx, qs, cm.ID)
	if err != nil {
		return err
	}
	defer srows.Close()
	for srows.Next() {
		var s model.ConflictSession
		var d, at sql.NullTime
		if err := srows.Scan(&s.ID, &s.ConflictMovieID, &s.ConflictEditionID, &s.CinemaID,
			&d, &s.TimeOfDay, &at, &s.State); err != nil {
			return err
		}
		if d.Valid {
			s.Date = &d.Time
		}
		if at.Valid {
			s.StartsAt = &at.Time
		}
		cm.Sessions = append(cm.Sessions, s)
	}
	return srows.Err()
}

// List returns a page of conflicts filtered by cinema, cinema group and/or
// state, newest first, each with joined editions and sessions.
func (r *ConflictRepo) List(ctx context.Context, cinemaID, groupID uint64, state string, limit, offset int) ([]model.ConflictMovie, int, error) {
	where, args := " WHERE 1=1", []any{}
	if cinemaID != 0 {
		where += " AND cinema_id = ?"
		args = append(args, cinemaID)
	}
	if groupID != 0 {
		where += " AND cinema_group_id = ?"
		args = append(args, groupID)
	}
	if state != "" {
		where += " AND state = ?"
		args = append(args, state)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conflict_movies`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + conflictCols + ` FROM conflict_movies` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.ConflictMovie
	for rows.Next() {
		cm, err := scanConflict(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *cm)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range out {
		if err := r.loadChildren(ctx, &out[i]); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// Transition applies a single review state change.  The WHERE clause
// encodes the legal transitions, so an illegal change affects zero rows and
// is reported as ErrInvalidTransition (or ErrConflictNotFound when the row
// does not exist at all).
func (r *ConflictRepo) Transition(ctx context.Context, id uint64, from []string, to string, matchedMovieID *uint64) error {
	q := `UPDATE conflict_movies SET state = ?`
	args := []any{to}
	if matchedMovieID != nil {
		q += `, matched_movie_id = ?`
		args = append(args, *matchedMovieID)
	}
	q += ` WHERE id = ? AND state IN (?` + strings.Repeat(",?", len(from)-1) + `)`
	args = append(args, id)
	for _, s := range from {
		args = append(args, s)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		// Children follow the movie's state so listings stay consistent.
		if _, err := r.db.ExecContext(ctx, `UPDATE conflict_editions SET state = ? WHERE conflict_movie_id = ?`, to, id); err != nil {
			return err
		}
		_, err = r.db.ExecContext(ctx, `UPDATE conflict_sessions SET state = ? WHERE conflict_movie_id = ?`, to, id)
		return err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}

// DeletePendingBefore removes this cinema's to_verify conflicts created
// before the cutoff, including children.  Used by the cleanupOldData execute
// option to clear stale staging rows.
func (r *ConflictRepo) DeletePendingBefore(ctx context.Context, cinemaID uint64, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	var done bool
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()
	const sel = `SELECT id FROM conflict_movies WHERE cinema_id = ? AND state = ? AND created_at < ?`
	rows, err := tx.QueryContext(ctx, sel, cinemaID, model.StateToVerify, cutoff)
	if err != nil {
		return 0, err
	}
	var ids []any
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		done = true
		return 0, tx.Commit()
	}
	in := `(?` + strings.Repeat(",?", len(ids)-1) + `)`
	if _, err := tx.ExecContext(ctx, `DELETE FROM conflict_sessions WHERE conflict_movie_id IN `+in, ids...); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conflict_editions WHERE conflict_movie_id IN `+in, ids...); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conflict_movies WHERE id IN `+in, ids...); err != nil {
		return 0, err
	}
	done = true
	return int64(len(ids)), tx.Commit()
}

// UpdateSessionDate lets a reviewer resolve a session whose weekday had no
// calendar date in the sheet's range.  The session must belong to the given
// conflict; ids from other conflicts match zero rows.
func (r *ConflictRepo) UpdateSessionDate(ctx context.Context, conflictID, sessionID uint64, date, startsAt time.Time) error {
	const q = `UPDATE conflict_sessions SET date = ?, starts_at = ? WHERE id = ? AND conflict_movie_id = ?`
	res, err := r.db.ExecContext(ctx, q, date, startsAt, sessionID, conflictID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflictNotFound
	}
	return nil
}
