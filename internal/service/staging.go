package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cinema-program-import/internal/matcher"
	"github.com/iliyamo/cinema-program-import/internal/model"
	"github.com/iliyamo/cinema-program-import/internal/parser"
)

// JobStore is the slice of the import-job repository staging needs.
type JobStore interface {
	Create(ctx context.Context, j *model.ImportJob) error
	SetStatus(ctx context.Context, id uint64, status string) error
	Finish(ctx context.Context, j *model.ImportJob) error
}

// ConflictWriter stages one conflict with its editions and sessions.
type ConflictWriter interface {
	Stage(ctx context.Context, cm *model.ConflictMovie) error
	DeletePendingBefore(ctx context.Context, cinemaID uint64, cutoff time.Time) (int64, error)
}

// TitleMatcher resolves an extracted title against the catalog.
type TitleMatcher interface {
	Match(ctx context.Context, cinemaGroupID uint64, importTitle, movieName string) (matcher.Result, error)
}

// StageOptions are the caller-supplied knobs of one import run.
type StageOptions struct {
	PreviewOnly    bool       // match and count, write nothing
	CreateMovies   bool       // verify unmatched rows so new movies materialize without review
	CleanupOldData bool       // drop stale to_verify conflicts before staging
	CleanupBefore  *time.Time // cutoff for the cleanup, defaults to now
}

// StageSummary is what one import run produced.
type StageSummary struct {
	Job         *model.ImportJob `json:"job,omitempty"`
	Sheets      int              `json:"sheets"`
	Skipped     int              `json:"skippedSheets"`
	Films       int              `json:"films"`
	AutoMatched int              `json:"autoMatched"`
	ToVerify    int              `json:"toVerify"`
	Cleaned     int64            `json:"cleanedConflicts,omitempty"`
	Errors      []string         `json:"errors,omitempty"`
}

// StagingService turns parsed sheets into staged conflicts under one import
// job.  Failures are isolated per film row: a row that cannot be staged is
// recorded on the job and the run continues.
type StagingService struct {
	jobs      JobStore
	conflicts ConflictWriter
	match     TitleMatcher
}

func NewStagingService(jobs JobStore, conflicts ConflictWriter, match TitleMatcher) *StagingService {
	return &StagingService{jobs: jobs, conflicts: conflicts, match: match}
}

// Execute stages every film of every non-skipped sheet.  The job passed in
// carries the caller identity and cinema scope; Execute owns its lifecycle
// from creation to Finish.  With PreviewOnly set nothing is written: the
// matcher still runs so the summary reports how many rows would auto-verify.
func (s *StagingService) Execute(ctx context.Context, job *model.ImportJob, sheets []parser.SheetResult, opts StageOptions) (StageSummary, error) {
	sum := StageSummary{Sheets: len(sheets)}

	if opts.PreviewOnly {
		s.preview(ctx, job.CinemaGroupID, sheets, &sum)
		return sum, nil
	}

	job.Status = model.JobPending
	if err := s.jobs.Create(ctx, job); err != nil {
		return sum, fmt.Errorf("create import job: %w", err)
	}
	sum.Job = job
	if err := s.jobs.SetStatus(ctx, job.ID, model.JobProcessing); err != nil {
		return sum, err
	}
	job.Status = model.JobProcessing

	if opts.CleanupOldData {
		cutoff := time.Now()
		if opts.CleanupBefore != nil {
			cutoff = *opts.CleanupBefore
		}
		// A group import has no job-level cinema; every mapped sheet's
		// cinema gets its pending conflicts swept.
		for _, cinemaID := range cleanupCinemas(job, sheets) {
			n, err := s.conflicts.DeletePendingBefore(ctx, cinemaID, cutoff)
			if err != nil {
				job.Errors = append(job.Errors, fmt.Sprintf("cleanup cinema %d: %v", cinemaID, err))
				continue
			}
			sum.Cleaned += n
		}
	}

	for _, sheet := range sheets {
		if sheet.Skipped {
			sum.Skipped++
			continue
		}
		for _, film := range sheet.Films {
			job.TotalRecords++
			job.ProcessedRecords++
			sum.Films++

			auto, err := s.stageFilm(ctx, job, sheet.CinemaID, film, opts)
			if err != nil {
				job.ErrorRecords++
				msg := fmt.Sprintf("%s: %q: %v", sheet.SheetName, film.ImportTitle, err)
				job.Errors = append(job.Errors, msg)
				sum.Errors = append(sum.Errors, msg)
				continue
			}
			job.SuccessRecords++
			if auto {
				sum.AutoMatched++
			} else {
				sum.ToVerify++
			}
		}
	}

	if job.ProcessedRecords > 0 && job.SuccessRecords == 0 {
		job.Status = model.JobFailed
	} else {
		job.Status = model.JobCompleted
	}
	if err := s.jobs.Finish(ctx, job); err != nil {
		return sum, fmt.Errorf("finish import job: %w", err)
	}
	return sum, nil
}

// cleanupCinemas lists the distinct cinemas an execute writes to: the job's
// own cinema, or for group imports the targets of the non-skipped sheets.
func cleanupCinemas(job *model.ImportJob, sheets []parser.SheetResult) []uint64 {
	if job.CinemaID != 0 {
		return []uint64{job.CinemaID}
	}
	seen := make(map[uint64]bool)
	var ids []uint64
	for _, sh := range sheets {
		if sh.Skipped || sh.CinemaID == 0 || seen[sh.CinemaID] {
			continue
		}
		seen[sh.CinemaID] = true
		ids = append(ids, sh.CinemaID)
	}
	return ids
}

// stageFilm matches one film row and writes it as a conflict.  The matcher
// is advisory: a match error demotes the row to to_verify instead of
// failing it, only the write itself can fail the row.
func (s *StagingService) stageFilm(ctx context.Context, job *model.ImportJob, cinemaID uint64, film parser.NormalizedFilm, opts StageOptions) (bool, error) {
	res, err := s.match.Match(ctx, job.CinemaGroupID, film.ImportTitle, film.MovieName)
	if err != nil {
		res = matcher.Result{}
	}

	state := model.StateToVerify
	if res.Auto {
		state = model.StateVerified
	} else if opts.CreateMovies && res.MovieID == nil {
		// Caller opted in to creating unseen movies: stage them verified so
		// materialization can mint the catalog entry without a review stop.
		state = model.StateVerified
	}
	cm := buildConflict(job, cinemaID, film, state)
	cm.MatchedMovieID = res.MovieID
	if err := s.conflicts.Stage(ctx, cm); err != nil {
		return false, err
	}
	return res.Auto, nil
}

// preview runs the matcher over every film without touching storage.
func (s *StagingService) preview(ctx context.Context, groupID uint64, sheets []parser.SheetResult, sum *StageSummary) {
	for _, sheet := range sheets {
		if sheet.Skipped {
			sum.Skipped++
			continue
		}
		for _, film := range sheet.Films {
			sum.Films++
			res, err := s.match.Match(ctx, groupID, film.ImportTitle, film.MovieName)
			if err == nil && res.Auto {
				sum.AutoMatched++
			} else {
				sum.ToVerify++
			}
		}
	}
}

// buildConflict maps one normalized film row onto the staging tables.  Every
// row gets exactly one staged edition; all its sessions hang off that
// edition.
func buildConflict(job *model.ImportJob, cinemaID uint64, film parser.NormalizedFilm, state string) *model.ConflictMovie {
	cm := &model.ConflictMovie{
		ImportJobID:   job.ID,
		CinemaID:      cinemaID,
		CinemaGroupID: job.CinemaGroupID,
		ImportTitle:   film.ImportTitle,
		MovieName:     film.MovieName,
		State:         state,
	}
	cm.Editions = []model.ConflictEdition{{
		FullTitle:       film.ImportTitle,
		LanguageCode:    film.LanguageCode,
		FormatCodes:     strings.Join(film.FormatCodes, ","),
		DurationMinutes: film.DurationMinutes,
		AgeRating:       film.AgeRating,
		VersionString:   film.VersionString,
		State:           state,
	}}
	for _, sh := range film.Showings {
		cs := model.ConflictSession{
			CinemaID:  cinemaID,
			TimeOfDay: sh.TimeOfDay,
			State:     state,
		}
		if !sh.Date.IsZero() {
			d, at := sh.Date, sh.StartsAt
			cs.Date, cs.StartsAt = &d, &at
		}
		cm.Sessions = append(cm.Sessions, cs)
	}
	return cm
}
