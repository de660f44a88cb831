package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-program-import/internal/model"
)

// ScreeningRepo persists the canonical schedule: screenings, session days
// and session times.  All three writers are find-or-create so materializing
// overlapping verified conflicts never duplicates canonical rows.
type ScreeningRepo struct {
	db *sql.DB
}

// NewScreeningRepo constructs a ScreeningRepo with the given DB handle.
func NewScreeningRepo(db *sql.DB) *ScreeningRepo {
	return &ScreeningRepo{db: db}
}

// DB exposes the underlying sql.DB.
func (r *ScreeningRepo) DB() *sql.DB {
	return r.db
}

// FindOrCreateScreening returns the screening for (cinema, edition, week
// start), creating an ACTIVE one when absent.  It reports whether a new row
// was created so callers can count materialized screenings.
func (r *ScreeningRepo) FindOrCreateScreening(ctx context.Context, s *model.Screening) (bool, error) {
	const sel = `SELECT id, state FROM screenings
	             WHERE cinema_id = ? AND movie_edition_id = ? AND start_week_day = ?`
	err := r.db.QueryRowContext(ctx, sel, s.CinemaID, s.MovieEditionID, s.StartWeekDay).Scan(&s.ID, &s.State)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	const ins = `INSERT INTO screenings (cinema_id, movie_edition_id, start_week_day, state) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, ins, s.CinemaID, s.MovieEditionID, s.StartWeekDay, model.ScreeningActive)
	if err != nil {
		return false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	s.ID = uint64(id)
	s.State = model.ScreeningActive
	return true, nil
}

// FindOrCreateSessionDay returns the session day for (screening, date),
// creating it when absent.
func (r *ScreeningRepo) FindOrCreateSessionDay(ctx context.Context, d *model.SessionDay) error {
	const sel = `SELECT id FROM session_days WHERE screening_id = ? AND date = ?`
	err := r.db.QueryRowContext(ctx, sel, d.ScreeningID, d.Date).Scan(&d.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	const ins = `INSERT INTO session_days (screening_id, date) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, ins, d.ScreeningID, d.Date)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// InsertSessionTime adds one showtime under a session day unless a row with
// the same time-of-day already exists.  It reports whether a row was
// actually created, which the materializer counts.
func (r *ScreeningRepo) InsertSessionTime(ctx context.Context, t *model.SessionTime) (bool, error) {
	const sel = `SELECT id FROM session_times WHERE session_day_id = ? AND time_of_day = ?`
	err := r.db.QueryRowContext(ctx, sel, t.SessionDayID, t.TimeOfDay).Scan(&t.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	const ins = `INSERT INTO session_times (session_day_id, time_of_day, start_datetime, end_datetime)
	             VALUES (?, ?, ?, ?)`
	var end any
	if t.EndDatetime != nil {
		end = *t.EndDatetime
	}
	res, err := r.db.ExecContext(ctx, ins, t.SessionDayID, t.TimeOfDay, t.StartDatetime, end)
	if err != nil {
		return false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	t.ID = uint64(id)
	return true, nil
}

// CountSessionTimes returns the number of canonical showtimes under a
// screening, used by tests and summary endpoints.
func (r *ScreeningRepo) CountSessionTimes(ctx context.Context, screeningID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM session_times st
	           JOIN session_days sd ON sd.id = st.session_day_id
	           WHERE sd.screening_id = ?`
	var n int
	err := r.db.QueryRowContext(ctx, q, screeningID).Scan(&n)
	return n, err
}

// WeekStart returns the Monday of the ISO week containing d, date only.
// Screenings group their session days by this anchor.
func WeekStart(d time.Time) time.Time {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	wd := int(day.Weekday())
	if wd == 0 {
		wd = 7 // Sunday belongs to the week started the previous Monday
	}
	return day.AddDate(0, 0, -(wd - 1))
}
