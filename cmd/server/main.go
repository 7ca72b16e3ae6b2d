package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OpenCaseDesk/casedesk/internal/accounts"
	"github.com/OpenCaseDesk/casedesk/internal/auth"
	"github.com/OpenCaseDesk/casedesk/internal/cases"
	"github.com/OpenCaseDesk/casedesk/internal/config"
	"github.com/OpenCaseDesk/casedesk/internal/database"
	"github.com/OpenCaseDesk/casedesk/internal/middleware"
	"github.com/OpenCaseDesk/casedesk/internal/staffing"
	"github.com/OpenCaseDesk/casedesk/internal/submission"
	submissionmodel "github.com/OpenCaseDesk/casedesk/internal/submission/model"
	"github.com/OpenCaseDesk/casedesk/internal/submission/router"
	"github.com/OpenCaseDesk/casedesk/internal/uploads"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.Info("configuration loaded successfully",
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"server_port", cfg.Server.Port,
		"storage_type", cfg.Storage.Type,
	)

	// Initialize database connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("database health check failed: %v", err)
	}

	if err := database.Migrate(db,
		&accounts.User{},
		&accounts.UserPermission{},
		&submissionmodel.Submission{},
		&submissionmodel.SubmissionStage{},
		&submissionmodel.SubmissionAction{},
		&cases.Complaint{},
		&cases.CrimeScene{},
		&cases.Case{},
		&staffing.StaffingRequest{},
		&uploads.Attachment{},
		&uploads.Evidence{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Optional redis cache for permission sets
	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer cache.Close()
		slog.Info("permission cache enabled", "redis_addr", cfg.Redis.Addr)
	}

	// Accounts and auth
	accountsService := accounts.NewService(db, cache, cfg.Redis.CacheTTL)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	requireAuth := auth.RequireAuth(tokens, accountsService)

	// Case domain and workflow descriptors
	caseRepo := cases.NewGormRepository(db)
	caseService := cases.NewCaseService(caseRepo)
	staffingRepo := staffing.NewGormRepository(db)
	evidenceRepo := uploads.NewGormEvidenceRepository(db)

	registry, err := submission.NewRegistry(
		cases.NewComplaintType(caseRepo, caseService),
		cases.NewCrimeSceneType(caseRepo, caseService, accountsService, staffing.RequestTypeKey),
		staffing.NewRequestType(staffingRepo, caseService),
		uploads.NewEvidenceType(evidenceRepo, caseService, accountsService),
	)
	if err != nil {
		log.Fatalf("failed to build submission type registry: %v", err)
	}

	engine := submission.NewEngine(submission.NewGormRepository(db), registry, accountsService)

	// Attachment storage
	ctx := context.Background()
	storage, err := uploads.NewStorageFromConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize attachment storage: %v", err)
	}
	uploadService := uploads.NewService(db, storage, engine)

	// HTTP routes
	mux := http.NewServeMux()
	router.NewSubmissionRouter(engine).RegisterRoutes(mux, requireAuth)
	uploads.NewHTTPHandler(uploadService).RegisterRoutes(mux, requireAuth)

	handler := middleware.CORS(&cfg.CORS)(mux)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}
}
