// Package handler exposes the HTTP surface of the import pipeline.  All
// routes except the health check sit behind JWT authentication; handlers
// read the verified caller identity from the echo context.
package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-program-import/internal/config"
	"github.com/iliyamo/cinema-program-import/internal/matcher"
	"github.com/iliyamo/cinema-program-import/internal/parser"
	"github.com/iliyamo/cinema-program-import/internal/repository"
	"github.com/iliyamo/cinema-program-import/internal/service"
)

// ImportHandler bundles the repositories and services the import endpoints
// need.
type ImportHandler struct {
	Cfg          *config.Config
	RefRepo      *repository.ReferenceRepo
	JobRepo      *repository.ImportJobRepo
	ConflictRepo *repository.ConflictRepo
	MappingRepo  *repository.MappingRepo
	Staging      *service.StagingService
	Review       *service.ReviewService
	Materializer *service.Materializer
	Matcher      *matcher.Matcher
	Profile      parser.Profile
}

// NewImportHandler constructs an ImportHandler and panics if any dependency
// is nil; wiring bugs should fail at startup, not on the first request.
func NewImportHandler(cfg *config.Config, refs *repository.ReferenceRepo, jobs *repository.ImportJobRepo, conflicts *repository.ConflictRepo, mappings *repository.MappingRepo, staging *service.StagingService, review *service.ReviewService, mat *service.Materializer, m *matcher.Matcher) *ImportHandler {
	if cfg == nil || refs == nil || jobs == nil || conflicts == nil || mappings == nil || staging == nil || review == nil || mat == nil || m == nil {
		panic("nil dependency passed to NewImportHandler")
	}
	return &ImportHandler{
		Cfg:          cfg,
		RefRepo:      refs,
		JobRepo:      jobs,
		ConflictRepo: conflicts,
		MappingRepo:  mappings,
		Staging:      staging,
		Review:       review,
		Materializer: mat,
		Matcher:      m,
		Profile:      parser.DefaultProfile(),
	}
}

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id") // set by the JWT middleware
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pagination reads page/per_page query parameters with sane bounds.
func pagination(c echo.Context) (limit, offset int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("per_page"))
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return limit, (page - 1) * limit
}

// queryID parses an optional numeric query parameter, 0 when absent.
func queryID(c echo.Context, name string) (uint64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

// openUpload reads the multipart "file" field into a parsed workbook.  The
// upload never touches disk.
func (h *ImportHandler) openUpload(c echo.Context) (*parser.Workbook, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, errors.New("file is required")
	}
	if max := int64(h.Cfg.MaxUploadMB) << 20; max > 0 && fh.Size > max {
		return nil, errors.New("file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("could not read upload")
	}
	defer f.Close()
	wb, err := parser.OpenWorkbook(f)
	if err != nil {
		return nil, errors.New("not a valid xlsx workbook")
	}
	return wb, nil
}
