package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-program-import/internal/parser"
	"github.com/iliyamo/cinema-program-import/internal/repository"
)

// sheetMapping assigns one workbook sheet to a cinema for group imports.
type sheetMapping struct {
	SheetIndex int    `json:"sheetIndex"`
	SheetName  string `json:"sheetName"`
	CinemaID   uint64 `json:"cinemaId"`
}

// Parse handles POST /v1/import/parse.  It runs the full read-only pipeline
// over the targeted sheets and returns normalized films per sheet plus
// summary counts.  Nothing is written: the caller inspects the result and
// feeds it back to /execute.
func (h *ImportHandler) Parse(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	wb, err := h.openUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	targets, err := h.resolveTargets(c, wb)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	refs, err := h.RefRepo.LoadReferenceData(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not load reference data"})
	}

	results := parser.ParseSheets(targets, refs, h.Cfg.Location, h.Profile)

	films, skipped := 0, 0
	for _, r := range results {
		films += len(r.Films)
		if r.Skipped {
			skipped++
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"sheets":        results,
		"totalFilms":    films,
		"skippedSheets": skipped,
	})
}

// resolveTargets picks the sheets to parse and stamps each with its target
// cinema.  Single-cinema imports take every sheet; group imports parse only
// the sheets named by sheet_mappings.
func (h *ImportHandler) resolveTargets(c echo.Context, wb *parser.Workbook) ([]parser.Sheet, error) {
	ctx := c.Request().Context()

	if raw := c.FormValue("cinema_id"); raw != "" {
		cinemaID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, errBadField("cinema_id")
		}
		if _, err := h.RefRepo.GetCinema(ctx, cinemaID); err != nil {
			if err == repository.ErrCinemaNotFound {
				return nil, errBadField("cinema_id")
			}
			return nil, err
		}
		sheets := make([]parser.Sheet, len(wb.Sheets))
		copy(sheets, wb.Sheets)
		for i := range sheets {
			sheets[i].CinemaID = cinemaID
		}
		return sheets, nil
	}

	groupRaw := c.FormValue("cinema_group_id")
	mappingsRaw := c.FormValue("sheet_mappings")
	if groupRaw == "" || mappingsRaw == "" {
		return nil, errBadField("cinema_id or cinema_group_id with sheet_mappings")
	}
	groupID, err := strconv.ParseUint(groupRaw, 10, 64)
	if err != nil {
		return nil, errBadField("cinema_group_id")
	}
	var mappings []sheetMapping
	if err := json.Unmarshal([]byte(mappingsRaw), &mappings); err != nil || len(mappings) == 0 {
		return nil, errBadField("sheet_mappings")
	}

	groupCinemas, err := h.RefRepo.ListGroupCinemas(ctx, groupID)
	if err != nil {
		return nil, err
	}
	inGroup := make(map[uint64]bool, len(groupCinemas))
	for _, cin := range groupCinemas {
		inGroup[cin.ID] = true
	}

	var sheets []parser.Sheet
	for _, m := range mappings {
		if m.SheetIndex < 0 || m.SheetIndex >= len(wb.Sheets) {
			return nil, errBadField("sheet_mappings sheetIndex")
		}
		if !inGroup[m.CinemaID] {
			return nil, errBadField("sheet_mappings cinemaId")
		}
		s := wb.Sheets[m.SheetIndex]
		s.CinemaID = m.CinemaID
		sheets = append(sheets, s)
	}
	return sheets, nil
}

type fieldError string

func (e fieldError) Error() string { return "invalid " + string(e) }

func errBadField(name string) error { return fieldError(name) }
