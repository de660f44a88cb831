package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-program-import/internal/repository"
)

// History handles GET /v1/import/history, the paginated import-job listing.
func (h *ImportHandler) History(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	cinemaID, err := queryID(c, "cinema_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid cinema_id"})
	}
	limit, offset := pagination(c)

	items, total, err := h.JobRepo.List(c.Request().Context(), cinemaID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items, "total": total})
}

// GetJob handles GET /v1/import/history/:id and returns one job with its
// per-record errors.
func (h *ImportHandler) GetJob(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	job, err := h.JobRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "import job not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, job)
}
