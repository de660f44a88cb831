package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-program-import/internal/model"
	"github.com/iliyamo/cinema-program-import/internal/parser"
	"github.com/iliyamo/cinema-program-import/internal/queue"
	"github.com/iliyamo/cinema-program-import/internal/service"
)

// executeRequest is the JSON body of POST /v1/import/execute.  Sheets is the
// output of a prior /parse call, fed back unchanged.
type executeRequest struct {
	CinemaID      uint64               `json:"cinema_id"`
	CinemaGroupID uint64               `json:"cinema_group_id"`
	ParserID      uint64               `json:"parser_id"`
	Sheets        []parser.SheetResult `json:"sheets"`
	Options       struct {
		CreateMoviesAutomatically bool   `json:"createMoviesAutomatically"`
		CleanupOldData            bool   `json:"cleanupOldData"`
		CleanupDate               string `json:"cleanupDate"`
		PreviewOnly               bool   `json:"previewOnly"`
	} `json:"options"`
}

// Execute handles POST /v1/import/execute.  It matches every parsed film
// against the catalog and stages the results as conflicts under a fresh
// import job.  With previewOnly nothing is written and only the summary
// counts come back.
func (h *ImportHandler) Execute(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	var req executeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.CinemaID == 0 && req.CinemaGroupID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "cinema_id or cinema_group_id is required"})
	}
	if len(req.Sheets) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "sheets are required"})
	}
	for _, s := range req.Sheets {
		if !s.Skipped && s.CinemaID == 0 && req.CinemaID == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "every sheet needs a cinemaId"})
		}
	}
	// Single-cinema imports may omit per-sheet cinema ids.
	if req.CinemaID != 0 {
		for i := range req.Sheets {
			if req.Sheets[i].CinemaID == 0 {
				req.Sheets[i].CinemaID = req.CinemaID
			}
		}
	}

	opts := service.StageOptions{
		PreviewOnly:    req.Options.PreviewOnly,
		CreateMovies:   req.Options.CreateMoviesAutomatically,
		CleanupOldData: req.Options.CleanupOldData,
	}
	if req.Options.CleanupDate != "" {
		cutoff, err := time.ParseInLocation("2006-01-02", req.Options.CleanupDate, h.Cfg.Location)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid cleanupDate"})
		}
		opts.CleanupBefore = &cutoff
	}

	job := &model.ImportJob{
		Reference:     uuid.NewString(),
		CinemaID:      req.CinemaID,
		CinemaGroupID: req.CinemaGroupID,
		ParserID:      req.ParserID,
		UserID:        userID,
	}
	sum, err := h.Staging.Execute(c.Request().Context(), job, req.Sheets, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "import failed"})
	}

	if !opts.PreviewOnly {
		ev := queue.ImportCompletedEvent{
			JobID:         job.ID,
			Reference:     job.Reference,
			UserID:        job.UserID,
			CinemaID:      job.CinemaID,
			CinemaGroupID: job.CinemaGroupID,
			Status:        job.Status,
			TotalRecords:  job.TotalRecords,
			SuccessCount:  job.SuccessRecords,
			ErrorCount:    job.ErrorRecords,
			AutoMatched:   sum.AutoMatched,
			CompletedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		// Fire and forget: broker downtime must not fail the import.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = queue.PublishImportCompleted(ctx, ev)
		}()
	}

	status := http.StatusCreated
	if opts.PreviewOnly {
		status = http.StatusOK
	}
	return c.JSON(status, sum)
}
