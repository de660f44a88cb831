package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-program-import/internal/model"
)

// ImportJobRepo manages persistence for import jobs and their per-record
// error messages.
type ImportJobRepo struct {
	db *sql.DB
}

// NewImportJobRepo constructs an ImportJobRepo with the given DB handle.
func NewImportJobRepo(db *sql.DB) *ImportJobRepo {
	return &ImportJobRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *ImportJobRepo) DB() *sql.DB {
	return r.db
}

// Create inserts a new pending job and assigns the generated ID back to the
// struct.  Reference must be set by the caller before insertion.
func (r *ImportJobRepo) Create(ctx context.Context, j *model.ImportJob) error {
	const q = `INSERT INTO import_jobs
	           (reference, cinema_id, cinema_group_id, parser_id, user_id, status)
	           VALUES (?, NULLIF(?, 0), NULLIF(?, 0), ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, j.Reference, j.CinemaID, j.CinemaGroupID, j.ParserID, j.UserID, model.JobPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	j.ID = uint64(id)
	j.Status = model.JobPending
	j.CreatedAt = time.Now().UTC()
	return nil
}

// SetStatus moves a job to a new status without touching its counters.
func (r *ImportJobRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	const q = `UPDATE import_jobs SET status = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Finish writes the final counters, status and completion timestamp of a
// job, plus one import_job_errors row per collected message.  After this
// call the job is immutable.
func (r *ImportJobRepo) Finish(ctx context.Context, j *model.ImportJob) error {
	now := time.Now().UTC()
	const q = `UPDATE import_jobs
	           SET status = ?, total_records = ?, processed_records = ?,
	               success_records = ?, error_records = ?, completed_at = ?
	           WHERE id = ? AND completed_at IS NULL`
	res, err := r.db.ExecContext(ctx, q,
		j.Status, j.TotalRecords, j.ProcessedRecords, j.SuccessRecords, j.ErrorRecords, now, j.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrJobNotFound
	}
	j.CompletedAt = &now
	const qe = `INSERT INTO import_job_errors (import_job_id, message) VALUES (?, ?)`
	for _, msg := range j.Errors {
		if _, err := r.db.ExecContext(ctx, qe, j.ID, msg); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a job together with its error messages.  It returns
// ErrJobNotFound if there is no matching row.
func (r *ImportJobRepo) GetByID(ctx context.Context, id uint64) (*model.ImportJob, error) {
	const q = `SELECT id, reference, COALESCE(cinema_id, 0), COALESCE(cinema_group_id, 0),
	                  parser_id, user_id, status, total_records, processed_records,
	                  success_records, error_records, created_at, completed_at
	           FROM import_jobs WHERE id = ?`
	var j model.ImportJob
	var completed sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&j.ID, &j.Reference, &j.CinemaID, &j.CinemaGroupID,
		&j.ParserID, &j.UserID, &j.Status, &j.TotalRecords, &j.ProcessedRecords,
		&j.SuccessRecords, &j.ErrorRecords, &j.CreatedAt, &completed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if completed.Valid {
		j.CompletedAt = &completed.Time
	}
	const qe = `SELECT message FROM import_job_errors WHERE import_job_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, qe, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, err
		}
		j.Errors = append(j.Errors, msg)
	}
	return &j, rows.Err()
}

// List returns a page of jobs, newest first, optionally filtered by cinema.
// The total count is returned alongside for pagination headers.
func (r *ImportJobRepo) List(ctx context.Context, cinemaID uint64, limit, offset int) ([]model.ImportJob, int, error) {
	where, args := "", []any{}
	if cinemaID != 0 {
		where = " WHERE cinema_id = ?"
		args = append(args, cinemaID)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM import_jobs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT id, reference, COALESCE(cinema_id, 0), COALESCE(cinema_group_id, 0),
	             parser_id, user_id, status, total_records, processed_records,
	             success_records, error_records, created_at, completed_at
	      FROM import_jobs` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.ImportJob
	for rows.Next() {
		var j model.ImportJob
		var completed sql.NullTime
		if err := rows.Scan(
			&j.ID, &j.Reference, &j.CinemaID, &j.CinemaGroupID,
			&j.ParserID, &j.UserID, &j.Status, &j.TotalRecords, &j.ProcessedRecords,
			&j.SuccessRecords, &j.ErrorRecords, &j.CreatedAt, &completed,
		); err != nil {
			return nil, 0, err
		}
		if completed.Valid {
			j.CompletedAt = &completed.Time
		}
		out = append(out, j)
	}
	return out, total, rows.Err()
}
