package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-program-import/internal/repository"
)

// ListConflicts handles GET /v1/import/conflicts.  Results are filtered by
// cinema_id, cinema_group_id and state, paginated, and carry the joined
// edition and session detail a reviewer needs.
func (h *ImportHandler) ListConflicts(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	cinemaID, err := queryID(c, "cinema_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid cinema_id"})
	}
	groupID, err := queryID(c, "cinema_group_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid cinema_group_id"})
	}
	state := c.QueryParam("state")
	limit, offset := pagination(c)

	items, total, err := h.ConflictRepo.List(c.Request().Context(), cinemaID, groupID, state, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items, "total": total})
}

// GetConflict handles GET /v1/import/conflicts/:id.
func (h *ImportHandler) GetConflict(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	cm, err := h.ConflictRepo.GetDetailed(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrConflictNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "conflict not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, cm)
}

// UpdateConflict handles PATCH /v1/import/conflicts.  The body names one
// conflict and the review decision; matched_movie_l0_id optionally records
// which catalog movie the reviewer picked.
func (h *ImportHandler) UpdateConflict(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	var body struct {
		ConflictID     uint64  `json:"conflict_id"`
		State          string  `json:"state"`
		MatchedMovieID *uint64 `json:"matched_movie_l0_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if body.ConflictID == 0 || body.State == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "conflict_id and state are required"})
	}

	cm, err := h.Review.Decide(c.Request().Context(), body.ConflictID, body.State, body.MatchedMovieID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflictNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "conflict not found"})
		case errors.Is(err, repository.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
	}

	// A manual match is the learning signal for the mapping cache.
	if body.MatchedMovieID != nil {
		_ = h.Matcher.Learn(c.Request().Context(), cm.CinemaGroupID, cm.ImportTitle, body.MatchedMovieID, nil, "", "")
	}
	return c.JSON(http.StatusOK, cm)
}

// FixSession handles PATCH /v1/import/conflicts/:id/sessions/:sid.  It lets
// a reviewer resolve a staged session whose weekday fell outside the
// sheet's date range; such sessions block materialization until dated.
func (h *ImportHandler) FixSession(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	conflictID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	sessionID, err := strconv.ParseUint(c.Param("sid"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	var body struct {
		Date      string `json:"date"`       // "2006-01-02"
		TimeOfDay string `json:"time_of_day"` // "HH:MM"
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	date, err := time.ParseInLocation("2006-01-02", body.Date, h.Cfg.Location)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date"})
	}
	at, err := time.ParseInLocation("2006-01-02 15:04", body.Date+" "+body.TimeOfDay, h.Cfg.Location)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid time_of_day"})
	}

	if err := h.Review.FixSessionDate(c.Request().Context(), conflictID, sessionID, date, at); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflictNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "conflict not found"})
		case errors.Is(err, repository.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// ProcessConflicts handles POST /v1/import/conflicts.  It materializes the
// given verified conflicts into canonical movies, screenings and session
// times, collecting per-conflict errors instead of aborting the batch.
func (h *ImportHandler) ProcessConflicts(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	var body struct {
		ConflictIDs []uint64 `json:"conflict_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(body.ConflictIDs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "conflict_ids are required"})
	}
	res := h.Materializer.Process(c.Request().Context(), body.ConflictIDs)
	return c.JSON(http.StatusOK, res)
}
