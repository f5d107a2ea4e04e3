package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcsmartbytes/job-sense/docs"
	"github.com/mcsmartbytes/job-sense/internal/auth"
	"github.com/mcsmartbytes/job-sense/internal/config"
	"github.com/mcsmartbytes/job-sense/internal/database"
	"github.com/mcsmartbytes/job-sense/internal/email"
	"github.com/mcsmartbytes/job-sense/internal/http/handler"
	"github.com/mcsmartbytes/job-sense/internal/http/middleware"
	"github.com/mcsmartbytes/job-sense/internal/http/router"
	"github.com/mcsmartbytes/job-sense/internal/jobs"
	"github.com/mcsmartbytes/job-sense/internal/logger"
	"github.com/mcsmartbytes/job-sense/internal/repository"
	"github.com/mcsmartbytes/job-sense/internal/service"
	"github.com/mcsmartbytes/job-sense/internal/storage"
	"github.com/mcsmartbytes/job-sense/internal/workspace"
	"go.uber.org/zap"
)

// @title Job Sense API
// @version 1.0
// @description Estimating, job costing, bid pipeline and job tracking for paving and striping contractors

// @contact.name API Support
// @contact.email support@jobsense.app

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Basic configuration first, for logging setup
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if !basicCfg.App.IsProduction() {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Secrets come from the environment or Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to auto-migrate: %w", err)
		}
		log.Warn("Schema auto-migrated; use cmd/migrate outside development")
	}

	// Pipeline and tracker snapshots
	workspaceStorage, err := storage.NewStorage(ctx, &cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	workspaces := workspace.NewManager(workspaceStorage, cfg.Workspace.IdleTTLDuration(), log)
	sender := email.NewSender(&cfg.Email, log)
	issuer := auth.NewTokenIssuer(&cfg.Auth)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	siteRepo := repository.NewSiteRepository(db)
	costCodeRepo := repository.NewCostCodeRepository(db)
	estimateRepo := repository.NewEstimateRepository(db)
	jobRepo := repository.NewJobRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, tokenRepo, issuer, sender, &cfg.Auth, cfg.App.BaseURL, log)
	siteService := service.NewSiteService(siteRepo, log)
	costCodeService := service.NewCostCodeService(costCodeRepo, log)
	estimateService := service.NewEstimateService(estimateRepo, siteRepo, costCodeRepo, jobRepo, log)
	jobService := service.NewJobService(jobRepo, costCodeRepo, log)
	pipelineService := service.NewPipelineService(workspaces, estimateService, log)
	trackerService := service.NewTrackerService(workspaces, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(issuer, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(
		cfg,
		log,
		authMiddleware,
		rateLimiter,
		handler.NewHealthHandler(db, workspaces, log),
		handler.NewAuthHandler(authService, log),
		handler.NewSiteHandler(siteService, log),
		handler.NewCostCodeHandler(costCodeService, log),
		handler.NewEstimateHandler(estimateService, log),
		handler.NewJobHandler(jobService, log),
		handler.NewPipelineHandler(pipelineService, log),
		handler.NewTrackerHandler(trackerService, log),
	)

	// Background maintenance
	var scheduler *jobs.Scheduler
	flushJob := jobs.NewWorkspaceFlushJob(workspaces, log, 30*time.Second)
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		if flushJob, err = jobs.RegisterMaintenanceJobs(
			scheduler,
			authService,
			workspaces,
			cfg.Jobs.TokenCleanupCron,
			cfg.Jobs.WorkspaceFlushCron,
			log,
		); err != nil {
			return fmt.Errorf("failed to register maintenance jobs: %w", err)
		}
		scheduler.Start()
	} else {
		log.Info("Maintenance jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
		IdleTimeout:  cfg.Server.IdleTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown gracefully", zap.Error(err))
		return err
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
		log.Info("Scheduler stopped")
	}

	// Persist anything the last requests left dirty
	flushJob.Run()

	if closer, ok := workspaceStorage.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Warn("Error closing storage", zap.Error(err))
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("Server stopped gracefully")
	return nil
}
