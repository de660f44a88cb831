package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-program-import/internal/parser"
)

const previewSampleRows = 5

// Sheets handles POST /v1/import/sheets.  It is the cheap preflight: the
// caller gets each sheet's name, row count, detected date range and a few
// sample rows, enough to build a sheet-to-cinema mapping without running
// structure detection.
func (h *ImportHandler) Sheets(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	wb, err := h.openUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	sheets := make([]parser.SheetSummary, 0, len(wb.Sheets))
	for _, s := range wb.Sheets {
		sheets = append(sheets, parser.Summarize(s, previewSampleRows))
	}
	return c.JSON(http.StatusOK, map[string]any{"sheets": sheets})
}

// Preview handles POST /v1/import/preview.  It runs structure detection and
// extraction over one sheet and returns the annotated grid plus the raw
// extracted rows for human verification before a real parse.
func (h *ImportHandler) Preview(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	wb, err := h.openUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	idx := 0
	if raw := c.FormValue("sheet_index"); raw != "" {
		idx, err = strconv.Atoi(raw)
		if err != nil || idx < 0 || idx >= len(wb.Sheets) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid sheet_index"})
		}
	}
	sheet := wb.Sheets[idx]
	layout := parser.DetectLayout(sheet.Grid)

	resp := map[string]any{
		"sheetIndex": sheet.Index,
		"sheetName":  sheet.Name,
		"skipped":    layout.HeaderRow < 0,
		"grid":       parser.Annotate(sheet.Grid, layout),
	}
	if layout.HeaderRow >= 0 {
		movies := []map[string]any{}
		for _, row := range parser.Extract(sheet.Grid, layout, h.Profile) {
			movies = append(movies, map[string]any{"title": row.Title, "times": timesByDay(row)})
		}
		resp["movies"] = movies
		if layout.DateRange != nil {
			resp["dateRange"] = layout.DateRange
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// timesByDay flattens a film row's showtimes into weekday-keyed lists for
// the preview payload.
func timesByDay(row parser.FilmRow) map[string][]string {
	out := make(map[string][]string, len(row.Times))
	for day, times := range row.Times {
		out[day.String()] = times
	}
	return out
}
