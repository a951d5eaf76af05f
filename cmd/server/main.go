package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/cache"
	"github.com/SAP-F-2025/proctor-service/internal/config"
	"github.com/SAP-F-2025/proctor-service/internal/events"
	"github.com/SAP-F-2025/proctor-service/internal/handlers"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
	"github.com/SAP-F-2025/proctor-service/internal/repositories/memory"
	"github.com/SAP-F-2025/proctor-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/proctor-service/internal/services"
	"github.com/SAP-F-2025/proctor-service/internal/storage"
	"github.com/SAP-F-2025/proctor-service/internal/utils"
	"github.com/SAP-F-2025/proctor-service/internal/validator"
	"github.com/SAP-F-2025/proctor-service/pkg"
	"github.com/SAP-F-2025/proctor-service/pkg/monitoring"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(utils.LoggerOptions{
		Development: !cfg.IsProduction(),
		FilePath:    cfg.LogFile,
	})

	if err := run(cfg, logger); err != nil {
		logger.LogError(err, "Server stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slogger := utils.ToSlogLogger(logger)

	repos, closeStore, err := openStore(ctx, cfg, slogger)
	if err != nil {
		return err
	}
	defer closeStore()

	blobStore, err := storage.NewBlobStore(ctx, cfg.Storage, slogger)
	if err != nil {
		return err
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		logger.Error("Failed to create event publisher, falling back to memory", "error", err)
		publisher = events.NewInMemoryPublisher(slogger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	zone, err := utils.NewDisplayZone(cfg.Exam.DisplayUTCOffset)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.New(registry)

	serviceManager := services.NewServiceManager(services.Dependencies{
		Repos:                      repos,
		BlobStore:                  blobStore,
		Publisher:                  publisher,
		Metrics:                    metrics,
		Validator:                  validator.New(),
		Logger:                     slogger,
		DisplayZone:                zone,
		ResultsDelay:               cfg.Exam.ResultsDelay,
		EnforceSingleActiveSession: cfg.Exam.EnforceSingleActiveSession,
	})

	if err := seed(ctx, cfg, serviceManager, logger); err != nil {
		return err
	}

	auth, err := handlers.NewAuthenticator(cfg.Auth, time.Now)
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))
	router.Use(utils.ContextLogger(logger))
	router.Use(metrics.MetricsMiddleware())

	handlers.NewHandlerManager(
		serviceManager,
		auth,
		handlers.NewRateLimiter(cfg.Exam.EventRateLimit, cfg.Exam.EventRateBurst),
		metrics.PrometheusHandler(),
		logger,
	).SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting proctor service", "port", cfg.Port, "store", cfg.StoreDriver, "auth", cfg.Auth.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore returns the record store named by STORE_DRIVER and its closer
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories.Repositories, func(), error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("Using in-memory store, data is lost on restart")
		db := memory.Open(memory.WithSingleActiveSession(cfg.Exam.EnforceSingleActiveSession))
		return db.Repositories(), func() {}, nil
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(db, cfg.Exam.EnforceSingleActiveSession); err != nil {
		return nil, nil, err
	}

	cacheService := cache.NewNoopCache()
	closers := []func(){}
	if cfg.CacheEnabled {
		client, err := pkg.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Warn("Redis unavailable, test cache disabled", "error", err)
		} else {
			cacheService = cache.NewRedisCache(client, logger)
			closers = append(closers, func() { _ = client.Close() })
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		closers = append(closers, func() { _ = sqlDB.Close() })
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	return postgres.NewRepositories(db, cacheService, cfg.CacheTTL), closeAll, nil
}

func seed(ctx context.Context, cfg *config.Config, sm services.ServiceManager, logger utils.Logger) error {
	if cfg.Exam.SampleTestEnabled {
		if err := sm.Catalog().EnsureSampleTest(ctx); err != nil {
			return err
		}
	}

	if cfg.Admin.Password == "" {
		logger.Warn("ADMIN_PASSWORD not set, skipping admin seed", "email", cfg.Admin.Email)
		return nil
	}
	return sm.User().EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
}
