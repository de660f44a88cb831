package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cinema-program-import/internal/config"
	"github.com/iliyamo/cinema-program-import/internal/database"
	"github.com/iliyamo/cinema-program-import/internal/handler"
	"github.com/iliyamo/cinema-program-import/internal/matcher"
	"github.com/iliyamo/cinema-program-import/internal/queue"
	"github.com/iliyamo/cinema-program-import/internal/repository"
	"github.com/iliyamo/cinema-program-import/internal/router"
	"github.com/iliyamo/cinema-program-import/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: nil disables the mapping cache, rate limiting and
	// response caching but the pipeline still works against MySQL alone.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, caching and rate limiting disabled")
	}

	refRepo := repository.NewReferenceRepo(db)
	jobRepo := repository.NewImportJobRepo(db)
	conflictRepo := repository.NewConflictRepo(db)
	mappingRepo := repository.NewMappingRepo(db, rdb)
	movieRepo := repository.NewMovieRepo(db)
	screeningRepo := repository.NewScreeningRepo(db)

	m := matcher.New(movieRepo, mappingRepo)
	staging := service.NewStagingService(jobRepo, conflictRepo, m)
	review := service.NewReviewService(conflictRepo)
	materializer := service.NewMaterializer(movieRepo, screeningRepo, conflictRepo)

	h := handler.NewImportHandler(&cfg, refRepo, jobRepo, conflictRepo, mappingRepo, staging, review, materializer, m)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterImport(e, h, cfg.JWTSecret, rdb)

	// Drain import.completed events in the background; the consumer runs its
	// own reconnect loop and never takes the server down.
	go func() {
		if err := queue.StartImportConsumer(); err != nil {
			log.Printf("import consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
