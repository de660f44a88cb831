package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-program-import/internal/repository"
)

// ListMappings handles GET /v1/import/mappings.  Mappings are scoped to a
// cinema group and optionally filtered by verification state.
func (h *ImportHandler) ListMappings(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	groupID, err := queryID(c, "cinema_group_id")
	if err != nil || groupID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "cinema_group_id is required"})
	}
	var verified *bool
	if raw := c.QueryParam("verified"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid verified"})
		}
		verified = &v
	}
	limit, offset := pagination(c)

	items, total, err := h.MappingRepo.List(c.Request().Context(), groupID, verified, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items, "total": total})
}

// CreateMapping handles POST /v1/import/mappings.  It feeds the matcher's
// learning loop directly: the next import of the same title resolves without
// review.
func (h *ImportHandler) CreateMapping(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	var body struct {
		CinemaGroupID uint64  `json:"cinema_group_id"`
		ImportTitle   string  `json:"import_title"`
		MovieID       *uint64 `json:"movie_id"`
		EditionID     *uint64 `json:"edition_id"`
		LanguageCode  string  `json:"language_code"`
		FormatCode    string  `json:"format_code"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	title := strings.TrimSpace(body.ImportTitle)
	if body.CinemaGroupID == 0 || title == "" || body.MovieID == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "cinema_group_id, import_title and movie_id are required"})
	}
	if err := h.Matcher.Learn(c.Request().Context(), body.CinemaGroupID, title, body.MovieID, body.EditionID, body.LanguageCode, body.FormatCode); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not save mapping"})
	}
	m, err := h.MappingRepo.Lookup(c.Request().Context(), body.CinemaGroupID, title)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.JSON(http.StatusCreated, m)
}

// DeleteMapping handles DELETE /v1/import/mappings/:id.
func (h *ImportHandler) DeleteMapping(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.MappingRepo.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "mapping not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
	return c.NoContent(http.StatusNoContent)
}
