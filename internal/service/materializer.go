package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cinema-program-import/internal/model"
	"github.com/iliyamo/cinema-program-import/internal/repository"
)

// CatalogStore is the slice of the movie repository materialization needs.
type CatalogStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
	Create(ctx context.Context, m *model.Movie) error
	FindOrCreateEdition(ctx context.Context, e *model.MovieEdition) error
}

// ScheduleStore writes the canonical screening tables.
type ScheduleStore interface {
	FindOrCreateScreening(ctx context.Context, s *model.Screening) (bool, error)
	FindOrCreateSessionDay(ctx context.Context, d *model.SessionDay) error
	InsertSessionTime(ctx context.Context, t *model.SessionTime) (bool, error)
}

// ConflictReader reads and finalizes staged conflicts.
type ConflictReader interface {
	GetDetailed(ctx context.Context, id uint64) (*model.ConflictMovie, error)
	Transition(ctx context.Context, id uint64, from []string, to string, matchedMovieID *uint64) error
}

// MaterializeResult reports one materialization batch.  Failed conflicts
// stay verified and are listed in Errors; nothing about a failed conflict
// is rolled forward.
type MaterializeResult struct {
	Processed         int      `json:"processed"`
	CreatedMovies     int      `json:"createdMovies"`
	CreatedScreenings int      `json:"createdScreenings"`
	CreatedSessions   int      `json:"createdSessions"`
	Errors            []string `json:"errors,omitempty"`
}

// Materializer turns verified conflicts into canonical catalog and schedule
// rows.  Processing is idempotent: screenings, session days and session
// times are find-or-create, so replaying a processed week changes nothing.
type Materializer struct {
	catalog   CatalogStore
	schedule  ScheduleStore
	conflicts ConflictReader
}

func NewMaterializer(catalog CatalogStore, schedule ScheduleStore, conflicts ConflictReader) *Materializer {
	return &Materializer{catalog: catalog, schedule: schedule, conflicts: conflicts}
}

// Process materializes the given conflicts one by one.  Each conflict is
// isolated: an error moves on to the next id after recording it.
func (m *Materializer) Process(ctx context.Context, ids []uint64) MaterializeResult {
	var res MaterializeResult
	for _, id := range ids {
		if err := m.processOne(ctx, id, &res); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("conflict %d: %v", id, err))
			continue
		}
		res.Processed++
	}
	return res
}

func (m *Materializer) processOne(ctx context.Context, id uint64, res *MaterializeResult) error {
	cm, err := m.conflicts.GetDetailed(ctx, id)
	if err != nil {
		return err
	}
	if cm.State != model.StateVerified {
		return fmt.Errorf("%w: state is %s, want %s", repository.ErrInvalidTransition, cm.State, model.StateVerified)
	}
	if len(cm.Editions) == 0 {
		return fmt.Errorf("no staged edition")
	}
	for _, cs := range cm.Sessions {
		if cs.Date == nil || cs.StartsAt == nil {
			return fmt.Errorf("session %d has no resolved date", cs.ID)
		}
	}

	movieID, err := m.resolveMovie(ctx, cm, res)
	if err != nil {
		return err
	}

	// Canonical edition per staged edition, keyed by the staged id so
	// sessions can follow their edition.
	editions := make(map[uint64]*model.MovieEdition, len(cm.Editions))
	durations := make(map[uint64]int, len(cm.Editions))
	for i := range cm.Editions {
		ce := &cm.Editions[i]
		ed := &model.MovieEdition{
			MovieID:      movieID,
			FullTitle:    ce.FullTitle,
			LanguageCode: ce.LanguageCode,
			FormatCodes:  ce.FormatCodes,
		}
		if err := m.catalog.FindOrCreateEdition(ctx, ed); err != nil {
			return fmt.Errorf("edition: %w", err)
		}
		editions[ce.ID] = ed
		durations[ce.ID] = ce.DurationMinutes
	}

	if err := m.writeSchedule(ctx, cm, editions, durations, res); err != nil {
		return err
	}
	return m.conflicts.Transition(ctx, id, []string{model.StateVerified}, model.StateProcessed, &movieID)
}

// resolveMovie returns the catalog movie a conflict materializes into,
// creating one from the staged data when the review left it unmatched.
func (m *Materializer) resolveMovie(ctx context.Context, cm *model.ConflictMovie, res *MaterializeResult) (uint64, error) {
	if cm.MatchedMovieID != nil {
		mv, err := m.catalog.GetByID(ctx, *cm.MatchedMovieID)
		if err != nil {
			return 0, fmt.Errorf("matched movie %d: %w", *cm.MatchedMovieID, err)
		}
		return mv.ID, nil
	}
	ed := cm.Editions[0]
	mv := &model.Movie{
		Title:       cm.MovieName,
		DurationMin: ed.DurationMinutes,
		AgeRating:   ed.AgeRating,
	}
	if mv.Title == "" {
		mv.Title = strings.TrimSpace(cm.ImportTitle)
	}
	if err := m.catalog.Create(ctx, mv); err != nil {
		return 0, fmt.Errorf("create movie: %w", err)
	}
	res.CreatedMovies++
	return mv.ID, nil
}

// writeSchedule groups the staged sessions into screenings per program week,
// session days per date and one session time per distinct showtime.
func (m *Materializer) writeSchedule(ctx context.Context, cm *model.ConflictMovie, editions map[uint64]*model.MovieEdition, durations map[uint64]int, res *MaterializeResult) error {
	type weekKey struct {
		editionID uint64
		monday    time.Time
	}
	screenings := make(map[weekKey]*model.Screening)
	days := make(map[uint64]map[string]*model.SessionDay)

	for _, cs := range cm.Sessions {
		ed, ok := editions[cs.ConflictEditionID]
		if !ok {
			return fmt.Errorf("session %d references unknown staged edition %d", cs.ID, cs.ConflictEditionID)
		}
		monday := repository.WeekStart(*cs.Date)

		wk := weekKey{editionID: ed.ID, monday: monday}
		scr, ok := screenings[wk]
		if !ok {
			scr = &model.Screening{
				CinemaID:       cs.CinemaID,
				MovieEditionID: ed.ID,
				StartWeekDay:   monday,
			}
			created, err := m.schedule.FindOrCreateScreening(ctx, scr)
			if err != nil {
				return fmt.Errorf("screening: %w", err)
			}
			if created {
				res.CreatedScreenings++
			}
			screenings[wk] = scr
			days[scr.ID] = make(map[string]*model.SessionDay)
		}

		date := cs.Date.Format("2006-01-02")
		day, ok := days[scr.ID][date]
		if !ok {
			day = &model.SessionDay{ScreeningID: scr.ID, Date: *cs.Date}
			if err := m.schedule.FindOrCreateSessionDay(ctx, day); err != nil {
				return fmt.Errorf("session day: %w", err)
			}
			days[scr.ID][date] = day
		}

		st := &model.SessionTime{
			SessionDayID:  day.ID,
			TimeOfDay:     cs.TimeOfDay,
			StartDatetime: *cs.StartsAt,
		}
		if d := durations[cs.ConflictEditionID]; d > 0 {
			end := cs.StartsAt.Add(time.Duration(d) * time.Minute)
			st.EndDatetime = &end
		}
		created, err := m.schedule.InsertSessionTime(ctx, st)
		if err != nil {
			return fmt.Errorf("session time: %w", err)
		}
		if created {
			res.CreatedSessions++
		}
	}
	return nil
}
