package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/cinema-program-import/internal/config"
	"github.com/iliyamo/cinema-program-import/internal/matcher"
	"github.com/iliyamo/cinema-program-import/internal/model"
	"github.com/iliyamo/cinema-program-import/internal/parser"
	"github.com/iliyamo/cinema-program-import/internal/repository"
	"github.com/iliyamo/cinema-program-import/internal/service"
)

// ---- fakes wired through the exported service interfaces ----

type stubJobs struct{ created int }

func (s *stubJobs) Create(_ context.Context, j *model.ImportJob) error {
	s.created++
	j.ID = uint64(s.created)
	return nil
}
func (s *stubJobs) SetStatus(context.Context, uint64, string) error   { return nil }
func (s *stubJobs) Finish(_ context.Context, j *model.ImportJob) error { return nil }

type stubConflicts struct{ staged int }

func (s *stubConflicts) Stage(_ context.Context, cm *model.ConflictMovie) error {
	s.staged++
	cm.ID = uint64(s.staged)
	return nil
}
func (s *stubConflicts) DeletePendingBefore(context.Context, uint64, time.Time) (int64, error) {
	return 0, nil
}

type stubReview struct {
	conflicts map[uint64]*model.ConflictMovie
	dated     []uint64 // session ids whose date was fixed
}

func (s *stubReview) GetByID(_ context.Context, id uint64) (*model.ConflictMovie, error) {
	cm, ok := s.conflicts[id]
	if !ok {
		return nil, repository.ErrConflictNotFound
	}
	return cm, nil
}

func (s *stubReview) Transition(_ context.Context, id uint64, from []string, to string, matched *uint64) error {
	cm, ok := s.conflicts[id]
	if !ok {
		return repository.ErrConflictNotFound
	}
	for _, f := range from {
		if cm.State == f {
			cm.State = to
			if matched != nil {
				cm.MatchedMovieID = matched
			}
			return nil
		}
	}
	return repository.ErrInvalidTransition
}

func (s *stubReview) UpdateSessionDate(_ context.Context, _, sessionID uint64, _, _ time.Time) error {
	s.dated = append(s.dated, sessionID)
	return nil
}

type stubCatalog struct{}

func (stubCatalog) SearchCandidates(context.Context, []string) ([]model.Movie, error) {
	return nil, nil
}

type stubMappings struct{}

func (stubMappings) Lookup(context.Context, uint64, string) (*model.TitleMapping, error) {
	return nil, repository.ErrMappingNotFound
}
func (stubMappings) Upsert(context.Context, *model.TitleMapping) error { return nil }

func testHandler(review *stubReview) (*ImportHandler, *stubJobs, *stubConflicts) {
	jobs := &stubJobs{}
	conflicts := &stubConflicts{}
	m := matcher.New(stubCatalog{}, stubMappings{})
	if review == nil {
		review = &stubReview{conflicts: map[uint64]*model.ConflictMovie{}}
	}
	h := &ImportHandler{
		Cfg:     &config.Config{MaxUploadMB: 10, Location: time.UTC},
		Staging: service.NewStagingService(jobs, conflicts, m),
		Review:  service.NewReviewService(review),
		Matcher: m,
		Profile: parser.DefaultProfile(),
	}
	return h, jobs, conflicts
}

func newJSONContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return c, rec
}

func asUser(c echo.Context) echo.Context {
	c.Set("user_id", uint64(1))
	return c
}

// programWorkbook builds an in-memory xlsx with one parseable program sheet.
func programWorkbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellStr(f.GetSheetName(0), "A1", "Wednesday, 28 May 2025 - Tuesday, 3 June 2025"))
	header := []string{"", "Film", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	for i, v := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		require.NoError(t, f.SetCellStr(sheet, cell, v))
	}
	require.NoError(t, f.SetCellStr(sheet, "B4", "Dune Part Two (IMAX, 166 min)"))
	require.NoError(t, f.SetCellStr(sheet, "F4", "14:00"))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func uploadContext(t *testing.T, target string, file *bytes.Buffer, fields map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if file != nil {
		part, err := w.CreateFormFile("file", "program.xlsx")
		require.NoError(t, err)
		_, err = part.Write(file.Bytes())
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return c, rec
}

// ---- tests ----

func TestHealth(t *testing.T) {
	c, rec := newJSONContext(t, http.MethodGet, "/healthz", "")
	require.NoError(t, Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSheetsRequiresAuth(t *testing.T) {
	h, _, _ := testHandler(nil)
	c, rec := uploadContext(t, "/v1/import/sheets", programWorkbook(t), nil)
	require.NoError(t, h.Sheets(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSheetsRequiresFile(t *testing.T) {
	h, _, _ := testHandler(nil)
	c, rec := uploadContext(t, "/v1/import/sheets", nil, nil)
	require.NoError(t, h.Sheets(asUser(c)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSheetsSummarizesWorkbook(t *testing.T) {
	h, _, _ := testHandler(nil)
	c, rec := uploadContext(t, "/v1/import/sheets", programWorkbook(t), nil)
	require.NoError(t, h.Sheets(asUser(c)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sheets"`)
	assert.Contains(t, rec.Body.String(), `"dateRange"`)
}

func TestPreviewRejectsBadSheetIndex(t *testing.T) {
	h, _, _ := testHandler(nil)
	c, rec := uploadContext(t, "/v1/import/preview", programWorkbook(t), map[string]string{"sheet_index": "9"})
	require.NoError(t, h.Preview(asUser(c)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewAnnotatesGrid(t *testing.T) {
	h, _, _ := testHandler(nil)
	c, rec := uploadContext(t, "/v1/import/preview", programWorkbook(t), nil)
	require.NoError(t, h.Preview(asUser(c)))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"type":"header"`)
	assert.Contains(t, body, `"type":"movie"`)
	assert.Contains(t, body, `"type":"time"`)
	assert.Contains(t, body, "Dune Part Two")
}

func TestExecuteValidation(t *testing.T) {
	h, _, _ := testHandler(nil)

	c, rec := newJSONContext(t, http.MethodPost, "/v1/import/execute", `{}`)
	require.NoError(t, h.Execute(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newJSONContext(t, http.MethodPost, "/v1/import/execute", `{"sheets":[{"sheetIndex":0}]}`)
	require.NoError(t, h.Execute(asUser(c)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cinema_id")

	c, rec = newJSONContext(t, http.MethodPost, "/v1/import/execute", `{"cinema_id":3}`)
	require.NoError(t, h.Execute(asUser(c)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "sheets")
}

func TestExecuteStagesParsedSheets(t *testing.T) {
	h, jobs, conflicts := testHandler(nil)

	body := `{
		"cinema_id": 3,
		"parser_id": 1,
		"sheets": [{"sheetIndex":0,"sheetName":"Week 22","films":[{"ImportTitle":"Dune Part Two","MovieName":"Dune Part Two"}]}]
	}`
	c, rec := newJSONContext(t, http.MethodPost, "/v1/import/execute", body)
	require.NoError(t, h.Execute(asUser(c)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, jobs.created)
	assert.Equal(t, 1, conflicts.staged)
	assert.Contains(t, rec.Body.String(), `"toVerify":1`)
}

func TestExecutePreviewOnlyWritesNothing(t *testing.T) {
	h, jobs, conflicts := testHandler(nil)

	body := `{
		"cinema_id": 3,
		"sheets": [{"sheetIndex":0,"films":[{"ImportTitle":"Dune Part Two"}]}],
		"options": {"previewOnly": true}
	}`
	c, rec := newJSONContext(t, http.MethodPost, "/v1/import/execute", body)
	require.NoError(t, h.Execute(asUser(c)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, jobs.created)
	assert.Zero(t, conflicts.staged)
}

func TestExecuteRejectsBadCleanupDate(t *testing.T) {
	h, _, _ := testHandler(nil)
	body := `{"cinema_id":3,"sheets":[{"sheetIndex":0}],"options":{"cleanupOldData":true,"cleanupDate":"May 2025"}}`
	c, rec := newJSONContext(t, http.MethodPost, "/v1/import/execute", body)
	require.NoError(t, h.Execute(asUser(c)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateConflictTransitions(t *testing.T) {
	review := &stubReview{conflicts: map[uint64]*model.ConflictMovie{
		5: {ID: 5, CinemaGroupID: 9, ImportTitle: "Dune Part Two (IMAX)", State: model.StateToVerify},
	}}
	h, _, _ := testHandler(review)

	c, rec := newJSONContext(t, http.MethodPatch, "/v1/import/conflicts", `{"conflict_id":5,"state":"verified","matched_movie_l0_id":7}`)
	require.NoError(t, h.UpdateConflict(asUser(c)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StateVerified, review.conflicts[5].State)
	require.NotNil(t, review.conflicts[5].MatchedMovieID)
	assert.Equal(t, uint64(7), *review.conflicts[5].MatchedMovieID)
}

func TestUpdateConflictInvalidTransition(t *testing.T) {
	review := &stubReview{conflicts: map[uint64]*model.ConflictMovie{
		5: {ID: 5, State: model.StateProcessed},
	}}
	h, _, _ := testHandler(review)

	c, rec := newJSONContext(t, http.MethodPatch, "/v1/import/conflicts", `{"conflict_id":5,"state":"verified"}`)
	require.NoError(t, h.UpdateConflict(asUser(c)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateConflictValidation(t *testing.T) {
	h, _, _ := testHandler(nil)

	c, rec := newJSONContext(t, http.MethodPatch, "/v1/import/conflicts", `{"state":"verified"}`)
	require.NoError(t, h.UpdateConflict(asUser(c)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newJSONContext(t, http.MethodPatch, "/v1/import/conflicts", `{"conflict_id":99,"state":"verified"}`)
	require.NoError(t, h.UpdateConflict(asUser(c)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFixSessionDatesStagedSession(t *testing.T) {
	review := &stubReview{conflicts: map[uint64]*model.ConflictMovie{
		5: {ID: 5, State: model.StateToVerify},
	}}
	h, _, _ := testHandler(review)

	c, rec := newJSONContext(t, http.MethodPatch, "/v1/import/conflicts/5/sessions/12",
		`{"date":"2025-06-04","time_of_day":"20:30"}`)
	c.SetParamNames("id", "sid")
	c.SetParamValues("5", "12")
	require.NoError(t, h.FixSession(asUser(c)))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uint64{12}, review.dated)
}

func TestFixSessionValidation(t *testing.T) {
	review := &stubReview{conflicts: map[uint64]*model.ConflictMovie{
		5: {ID: 5, State: model.StateRejected},
	}}
	h, _, _ := testHandler(review)

	// Malformed time never reaches the store.
	c, rec := newJSONContext(t, http.MethodPatch, "/v1/import/conflicts/5/sessions/12",
		`{"date":"2025-06-04","time_of_day":"late"}`)
	c.SetParamNames("id", "sid")
	c.SetParamValues("5", "12")
	require.NoError(t, h.FixSession(asUser(c)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A rejected conflict's sessions are frozen.
	c, rec = newJSONContext(t, http.MethodPatch, "/v1/import/conflicts/5/sessions/12",
		`{"date":"2025-06-04","time_of_day":"20:30"}`)
	c.SetParamNames("id", "sid")
	c.SetParamValues("5", "12")
	require.NoError(t, h.FixSession(asUser(c)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, review.dated)
}

func TestProcessConflictsValidation(t *testing.T) {
	h, _, _ := testHandler(nil)
	c, rec := newJSONContext(t, http.MethodPost, "/v1/import/conflicts", `{"conflict_ids":[]}`)
	require.NoError(t, h.ProcessConflicts(asUser(c)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaginationBounds(t *testing.T) {
	c, _ := newJSONContext(t, http.MethodGet, "/v1/import/history?page=0&per_page=500", "")
	limit, offset := pagination(c)
	assert.Equal(t, 100, limit)
	assert.Equal(t, 0, offset)

	c, _ = newJSONContext(t, http.MethodGet, "/v1/import/history?page=3&per_page=25", "")
	limit, offset = pagination(c)
	assert.Equal(t, 25, limit)
	assert.Equal(t, 50, offset)
}
