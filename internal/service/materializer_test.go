package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-program-import/internal/model"
	"github.com/iliyamo/cinema-program-import/internal/repository"
)

type fakeCatalogStore struct {
	movies   map[uint64]*model.Movie
	editions map[string]*model.MovieEdition
	nextID   uint64
}

func newFakeCatalogStore(movies ...*model.Movie) *fakeCatalogStore {
	f := &fakeCatalogStore{
		movies:   make(map[uint64]*model.Movie),
		editions: make(map[string]*model.MovieEdition),
		nextID:   100,
	}
	for _, m := range movies {
		f.movies[m.ID] = m
	}
	return f
}

func (f *fakeCatalogStore) GetByID(_ context.Context, id uint64) (*model.Movie, error) {
	m, ok := f.movies[id]
	if !ok {
		return nil, repository.ErrMovieNotFound
	}
	return m, nil
}

func (f *fakeCatalogStore) Create(_ context.Context, m *model.Movie) error {
	f.nextID++
	m.ID = f.nextID
	f.movies[m.ID] = m
	return nil
}

func (f *fakeCatalogStore) FindOrCreateEdition(_ context.Context, e *model.MovieEdition) error {
	key := fmt.Sprintf("%d|%s|%s", e.MovieID, e.LanguageCode, e.FormatCodes)
	if got, ok := f.editions[key]; ok {
		e.ID = got.ID
		return nil
	}
	f.nextID++
	e.ID = f.nextID
	f.editions[key] = e
	return nil
}

type fakeScheduleStore struct {
	screenings map[string]*model.Screening
	days       map[string]*model.SessionDay
	times      map[string]bool
	nextID     uint64
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{
		screenings: make(map[string]*model.Screening),
		days:       make(map[string]*model.SessionDay),
		times:      make(map[string]bool),
		nextID:     1000,
	}
}

func (f *fakeScheduleStore) FindOrCreateScreening(_ context.Context, s *model.Screening) (bool, error) {
	key := fmt.Sprintf("%d|%d|%s", s.CinemaID, s.MovieEditionID, s.StartWeekDay.Format("2006-01-02"))
	if got, ok := f.screenings[key]; ok {
		s.ID, s.State = got.ID, got.State
		return false, nil
	}
	f.nextID++
	s.ID = f.nextID
	s.State = model.ScreeningActive
	f.screenings[key] = s
	return true, nil
}

func (f *fakeScheduleStore) FindOrCreateSessionDay(_ context.Context, d *model.SessionDay) error {
	key := fmt.Sprintf("%d|%s", d.ScreeningID, d.Date.Format("2006-01-02"))
	if got, ok := f.days[key]; ok {
		d.ID = got.ID
		return nil
	}
	f.nextID++
	d.ID = f.nextID
	f.days[key] = d
	return nil
}

func (f *fakeScheduleStore) InsertSessionTime(_ context.Context, t *model.SessionTime) (bool, error) {
	key := fmt.Sprintf("%d|%s", t.SessionDayID, t.TimeOfDay)
	if f.times[key] {
		return false, nil
	}
	f.times[key] = true
	return true, nil
}

type fakeConflictReader struct {
	*fakeReviewStore
}

func (f *fakeConflictReader) GetDetailed(ctx context.Context, id uint64) (*model.ConflictMovie, error) {
	return f.GetByID(ctx, id)
}

func verifiedConflict(id uint64, matched *uint64, sessions ...model.ConflictSession) *model.ConflictMovie {
	return &model.ConflictMovie{
		ID:             id,
		CinemaID:       3,
		ImportTitle:    "Dune Part Two (IMAX, 166 min)",
		MovieName:      "Dune Part Two",
		MatchedMovieID: matched,
		State:          model.StateVerified,
		Editions: []model.ConflictEdition{{
			ID:              id*10 + 1,
			FullTitle:       "Dune Part Two (IMAX)",
			LanguageCode:    "en",
			FormatCodes:     "imax",
			DurationMinutes: 166,
		}},
		Sessions: sessions,
	}
}

func session(editionID uint64, day, clock string) model.ConflictSession {
	d, _ := time.Parse("2006-01-02", day)
	at, _ := time.Parse("2006-01-02 15:04", day+" "+clock)
	return model.ConflictSession{
		ConflictEditionID: editionID,
		CinemaID:          3,
		Date:              &d,
		TimeOfDay:         clock,
		StartsAt:          &at,
	}
}

func TestProcessMaterializesOneWeek(t *testing.T) {
	matched := uint64(7)
	cm := verifiedConflict(1, &matched,
		session(11, "2025-05-29", "14:00"),
		session(11, "2025-05-29", "20:00"),
		session(11, "2025-05-31", "18:30"),
	)
	reader := &fakeConflictReader{newFakeReviewStore(nil)}
	reader.conflicts[1] = cm
	catalog := newFakeCatalogStore(&model.Movie{ID: 7, Title: "Dune Part Two"})
	schedule := newFakeScheduleStore()

	res := NewMaterializer(catalog, schedule, reader).Process(context.Background(), []uint64{1})

	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, res.CreatedMovies)
	assert.Equal(t, 1, res.CreatedScreenings)
	assert.Equal(t, 3, res.CreatedSessions)
	assert.Len(t, schedule.days, 2)
	assert.Equal(t, model.StateProcessed, cm.State)

	// All sessions land in the program week starting Monday 2025-05-26.
	for _, s := range schedule.screenings {
		assert.Equal(t, "2025-05-26", s.StartWeekDay.Format("2006-01-02"))
	}
}

func TestProcessSplitsAcrossProgramWeeks(t *testing.T) {
	matched := uint64(7)
	cm := verifiedConflict(1, &matched,
		session(11, "2025-06-01", "20:00"), // Sunday
		session(11, "2025-06-02", "20:00"), // Monday, next week
	)
	reader := &fakeConflictReader{newFakeReviewStore(nil)}
	reader.conflicts[1] = cm
	schedule := newFakeScheduleStore()

	res := NewMaterializer(newFakeCatalogStore(&model.Movie{ID: 7}), schedule, reader).Process(context.Background(), []uint64{1})

	assert.Empty(t, res.Errors)
	assert.Equal(t, 2, res.CreatedScreenings)
}

func TestProcessCreatesMovieWhenUnmatched(t *testing.T) {
	cm := verifiedConflict(1, nil, session(11, "2025-05-29", "14:00"))
	reader := &fakeConflictReader{newFakeReviewStore(nil)}
	reader.conflicts[1] = cm
	catalog := newFakeCatalogStore()

	res := NewMaterializer(catalog, newFakeScheduleStore(), reader).Process(context.Background(), []uint64{1})

	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.CreatedMovies)
	require.NotNil(t, cm.MatchedMovieID)
	created := catalog.movies[*cm.MatchedMovieID]
	require.NotNil(t, created)
	assert.Equal(t, "Dune Part Two", created.Title)
	assert.Equal(t, 166, created.DurationMin)
}

func TestProcessRefusesUnresolvedDates(t *testing.T) {
	cm := verifiedConflict(1, nil, model.ConflictSession{ConflictEditionID: 11, CinemaID: 3, TimeOfDay: "20:00"})
	reader := &fakeConflictReader{newFakeReviewStore(nil)}
	reader.conflicts[1] = cm
	schedule := newFakeScheduleStore()

	res := NewMaterializer(newFakeCatalogStore(), schedule, reader).Process(context.Background(), []uint64{1})

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "no resolved date")
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, model.StateVerified, cm.State)
	assert.Empty(t, schedule.screenings)
}

func TestProcessRefusesNonVerifiedConflicts(t *testing.T) {
	reader := &fakeConflictReader{newFakeReviewStore(map[uint64]string{
		1: model.StateToVerify,
		2: model.StateProcessed,
	})}

	res := NewMaterializer(newFakeCatalogStore(), newFakeScheduleStore(), reader).Process(context.Background(), []uint64{1, 2})

	assert.Equal(t, 0, res.Processed)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, model.StateToVerify, reader.conflicts[1].State)
}

func TestProcessIsolatesBatchFailures(t *testing.T) {
	matched := uint64(7)
	cm := verifiedConflict(1, &matched, session(11, "2025-05-29", "14:00"))
	reader := &fakeConflictReader{newFakeReviewStore(nil)}
	reader.conflicts[1] = cm

	res := NewMaterializer(newFakeCatalogStore(&model.Movie{ID: 7}), newFakeScheduleStore(), reader).Process(context.Background(), []uint64{99, 1})

	assert.Equal(t, 1, res.Processed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "conflict 99")
	assert.Equal(t, model.StateProcessed, cm.State)
}

func TestProcessIsIdempotentOnExistingSchedule(t *testing.T) {
	matched := uint64(7)
	schedule := newFakeScheduleStore()
	catalog := newFakeCatalogStore(&model.Movie{ID: 7})
	reader := &fakeConflictReader{newFakeReviewStore(nil)}

	reader.conflicts[1] = verifiedConflict(1, &matched, session(11, "2025-05-29", "14:00"))
	first := NewMaterializer(catalog, schedule, reader).Process(context.Background(), []uint64{1})
	require.Equal(t, 1, first.Processed)

	// A second conflict staging the same showtime finds everything in place.
	reader.conflicts[2] = verifiedConflict(2, &matched, session(21, "2025-05-29", "14:00"))
	second := NewMaterializer(catalog, schedule, reader).Process(context.Background(), []uint64{2})

	assert.Empty(t, second.Errors)
	assert.Equal(t, 1, second.Processed)
	assert.Equal(t, 0, second.CreatedScreenings)
	assert.Equal(t, 0, second.CreatedSessions)
	assert.Len(t, schedule.screenings, 1)
}

func TestProcessMatchedMovieMissing(t *testing.T) {
	matched := uint64(404)
	cm := verifiedConflict(1, &matched, session(11, "2025-05-29", "14:00"))
	reader := &fakeConflictReader{newFakeReviewStore(nil)}
	reader.conflicts[1] = cm

	res := NewMaterializer(newFakeCatalogStore(), newFakeScheduleStore(), reader).Process(context.Background(), []uint64{1})

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "matched movie 404")
	assert.Equal(t, model.StateVerified, cm.State)
}
