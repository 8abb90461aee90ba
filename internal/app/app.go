package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"framepickr/internal/config"
	"framepickr/internal/logger"
	"framepickr/internal/repository/sqlite"
	"framepickr/internal/route"
	"framepickr/internal/service/cache"
	"framepickr/internal/service/metrics"
	"framepickr/internal/service/pipeline"
	"framepickr/internal/service/preprocess"
	"framepickr/internal/service/scoring"
	"framepickr/internal/service/storage"
	"framepickr/internal/service/websocket"
)

// App owns every long-lived component of the server.
type App struct {
	config       *config.Config
	logger       *logger.Logger
	cascades     []*metrics.CascadeSet
	db           *sqlite.DB
	repository   *sqlite.SelectionRepository
	cache        *cache.RedisCache
	gcs          *storage.GCSBackend
	hubService   *websocket.HubService
	orchestrator *pipeline.Orchestrator
}

// New builds the application from the environment. Missing cascade models
// are fatal; the Redis cache is optional.
func New(ctx context.Context) (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, log := a.config, a.logger

	// One cascade set per worker
	cascades, err := metrics.LoadCascadeSets(metrics.ModelPathsFromConfig(cfg), cfg.ProcessingWorkers)
	if err != nil {
		return err
	}
	a.cascades = cascades

	extractors := make([]*metrics.Extractor, 0, len(cascades))
	for _, set := range cascades {
		extractors = append(extractors, metrics.NewExtractor(set, log))
	}

	backend, err := a.newBackend(ctx)
	if err != nil {
		return err
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open selection history: %w", err)
	}
	a.db = db
	a.repository = sqlite.NewSelectionRepository(db)

	var metricCache cache.MetricCache
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MetricCacheTTL)
		if err != nil {
			log.Warning("Metric cache disabled: %v", err)
		} else {
			a.cache = rc
			metricCache = rc
		}
	}

	a.hubService = websocket.NewHubService(log)

	a.orchestrator = pipeline.NewOrchestrator(
		extractors,
		preprocess.NewPreprocessor(cfg, log),
		scoring.NewCombiner(cfg.Scoring),
		storage.NewPersister(backend, cfg, log),
		metricCache,
		a.repository,
		a.hubService,
		cfg,
		log,
	)
	return nil
}

func (a *App) newBackend(ctx context.Context) (storage.Backend, error) {
	cfg := a.config
	switch cfg.StorageBackend {
	case "local":
		return storage.NewLocalBackend(cfg.UploadDirectory, cfg.UploadBaseURL)
	case "gcs":
		gcs, err := storage.NewGCSBackend(ctx, cfg.GCSBucket, cfg.GCSBaseURL)
		if err != nil {
			return nil, err
		}
		a.gcs = gcs
		return gcs, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.hubService.Run(ctx)

	router := route.SetupRoutes(route.Dependencies{
		Scorer:     a.orchestrator,
		Repository: a.repository,
		Hub:        a.hubService,
		Config:     a.config,
		Logger:     a.logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("🚀 Framepickr server")
	a.logger.Info("📍 URL: http://localhost:%d", a.config.Port)
	a.logger.Info("💾 Storage: %s", a.config.StorageBackend)
	a.logger.Info("🤖 Models: %s (%d worker(s))", a.config.ModelDirectory, len(a.cascades))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("Shutting down")
		return server.Shutdown(shutdownCtx)
	}
}

// Close releases models, the database and remote clients.
func (a *App) Close() {
	for _, set := range a.cascades {
		set.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
	if a.gcs != nil {
		a.gcs.Close()
	}
}
