package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-program-import/internal/config"
	"github.com/iliyamo/cinema-program-import/internal/handler"
	"github.com/iliyamo/cinema-program-import/internal/middleware"
)

// RegisterImport registers the import pipeline endpoints under /v1/import.
// All routes require a valid JWT with an ADMIN or SCHEDULER role.  A Redis
// client, when available, enables the shared token-bucket rate limiter on
// the whole group plus response caching on the read-only listing endpoints;
// a nil client degrades both to no-ops.
func RegisterImport(e *echo.Echo, h *handler.ImportHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group(
		"/v1/import",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "SCHEDULER"),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	)

	// Read-only listings are safe to cache briefly; uploads and mutations
	// are not.
	cached := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// ---- Workbook inspection (multipart uploads, read-only) ----
	g.POST("/sheets", h.Sheets)
	g.POST("/preview", h.Preview)
	g.POST("/parse", h.Parse)

	// ---- Staging ----
	g.POST("/execute", h.Execute)

	// ---- Conflict review ----
	g.GET("/conflicts", h.ListConflicts, cached)
	g.GET("/conflicts/:id", h.GetConflict)
	g.PATCH("/conflicts", h.UpdateConflict)
	g.PATCH("/conflicts/:id/sessions/:sid", h.FixSession)
	g.POST("/conflicts", h.ProcessConflicts) // materialize a verified batch

	// ---- Job history ----
	g.GET("/history", h.History, cached)
	g.GET("/history/:id", h.GetJob)

	// ---- Learned title mappings ----
	g.GET("/mappings", h.ListMappings)
	g.POST("/mappings", h.CreateMapping)
	g.DELETE("/mappings/:id", h.DeleteMapping)
}
