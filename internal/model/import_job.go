package model

import "time"

// ImportJob statuses.  A job is created `pending`, moves to `processing`
// while staging runs, and ends `completed` (possibly with per-record errors)
// or `failed` when the pipeline broke before any record was processed.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// ImportJob tracks one run of the import pipeline over one uploaded
// workbook.  Reference is an opaque UUID callers use to poll history.
// A job is mutated only by the pipeline that owns it and becomes immutable
// once CompletedAt is set.
//
// Fields:
//  ID               – primary key identifier.
//  Reference        – external UUID for the job.
//  CinemaID         – target cinema for single-cinema imports.
//  CinemaGroupID    – owning group for multi-sheet group imports.
//  ParserID         – parser profile the sheets were parsed with.
//  UserID           – caller identity that started the import.
//  Status           – pending/processing/completed/failed.
//  TotalRecords     – film rows the job attempted to stage.
//  ProcessedRecords – film rows attempted so far.
//  SuccessRecords   – film rows staged successfully.
//  ErrorRecords     – film rows whose staging failed.
//  Errors           – human-readable per-record error messages.
type ImportJob struct {
	ID               uint64     // import_jobs.id
	Reference        string     // import_jobs.reference
	CinemaID         uint64     // import_jobs.cinema_id (0 = group import)
	CinemaGroupID    uint64     // import_jobs.cinema_group_id (0 = single cinema)
	ParserID         uint64     // import_jobs.parser_id
	UserID           uint64     // import_jobs.user_id
	Status           string     // import_jobs.status
	TotalRecords     int        // import_jobs.total_records
	ProcessedRecords int        // import_jobs.processed_records
	SuccessRecords   int        // import_jobs.success_records
	ErrorRecords     int        // import_jobs.error_records
	Errors           []string   // import_job_errors rows
	CreatedAt        time.Time  // import_jobs.created_at
	CompletedAt      *time.Time // import_jobs.completed_at, nil while running
}
