package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/93bx/vidsrc-stremio-addon/internal/api"
	"github.com/93bx/vidsrc-stremio-addon/internal/browser"
	"github.com/93bx/vidsrc-stremio-addon/internal/cache"
	"github.com/93bx/vidsrc-stremio-addon/internal/classifier"
	"github.com/93bx/vidsrc-stremio-addon/internal/config"
	"github.com/93bx/vidsrc-stremio-addon/internal/extractor"
	"github.com/93bx/vidsrc-stremio-addon/internal/health"
	"github.com/93bx/vidsrc-stremio-addon/internal/logger"
	"github.com/93bx/vidsrc-stremio-addon/internal/metadata"
	"github.com/93bx/vidsrc-stremio-addon/internal/resolver"
	"github.com/93bx/vidsrc-stremio-addon/internal/scheduler"
	"github.com/93bx/vidsrc-stremio-addon/internal/scheduler/tasks"
	"github.com/93bx/vidsrc-stremio-addon/internal/solver"
	"github.com/93bx/vidsrc-stremio-addon/internal/startup"
	"github.com/93bx/vidsrc-stremio-addon/internal/streams"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		BufferSize: cfg.Logging.BufferSize,
	})
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Msg("Starting VidSrc addon")

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("Addon stopped with error")
		log.Close()
		os.Exit(1)
	}
	log.Info().Msg("Addon stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hs := health.NewService(log.Logger)
	healthHandlers := health.NewHandlers(hs)
	retryCfg := startup.DefaultRetryConfig()

	// Resolution cache
	store, closeStore, err := openCacheStore(ctx, cfg, retryCfg, log.Logger)
	if err != nil {
		return err
	}
	defer closeStore()
	hs.RegisterItem(health.CategoryCache, store.Name(), store.Name()+" cache")
	if pinger, ok := store.(interface{ Ping(context.Context) error }); ok {
		healthHandlers.RegisterChecker(health.CategoryCache, store.Name(), pinger.Ping)
	}
	manifests := cache.New(store, cfg.Cache.TTL, log.Logger)

	// Challenge solver
	solverClient := solver.NewClient(cfg.Solver, log.Logger)
	hs.RegisterItem(health.CategorySolver, solverClient.Name(), "CapSolver")
	var challengeSolver extractor.Solver
	if solverClient.IsConfigured() {
		challengeSolver = solverClient
	} else {
		hs.SetWarning(health.CategorySolver, solverClient.Name(), "no API key configured; challenged pages will fail")
		log.Warn().Msg("Solver API key not configured")
	}

	// Browser
	launcher := browser.NewRodLauncher(cfg.Browser, log.Logger)
	err = startup.WithRetry(ctx, "browser provisioning", retryCfg, log.Logger, launcher.Provision)
	if err != nil {
		return fmt.Errorf("provision browser: %w", err)
	}

	strategies := make([]browser.Strategy, 0, len(cfg.Extraction.Strategies))
	for _, name := range cfg.Extraction.Strategies {
		s, err := browser.ParseStrategy(name)
		if err != nil {
			return err
		}
		strategies = append(strategies, s)
	}

	cls := classifier.New(classifier.Config{Denylist: cfg.Target.Denylist, Marker: cfg.Target.ManifestMarker})
	orchestrator := extractor.NewOrchestrator(cls, challengeSolver, cfg.Target, cfg.Extraction, log.Logger)
	executor := extractor.NewExecutor(launcher, orchestrator, strategies, cfg.Browser.MaxSessions, log.Logger)
	executor.SetLaunchTimeout(cfg.Extraction.LaunchTimeout)
	executor.SetHealthReporter(hs)
	res := resolver.New(manifests, executor, log.Logger)

	// Metadata
	meta := metadata.NewService(&cfg.Metadata, log.Logger)
	meta.SetHealthService(hs)
	if meta.IsConfigured() {
		healthHandlers.RegisterChecker(health.CategoryMetadata, "omdb", meta.Test)
	}

	streamService := streams.NewService(res, meta, cfg.Addon, cfg.Target, log.Logger)

	// Scheduler
	sched, err := scheduler.New(log.Logger)
	if err != nil {
		return err
	}
	if err := tasks.RegisterCacheSweepTask(sched, manifests, cfg.Cache.SweepCron); err != nil {
		return err
	}
	if err := tasks.RegisterMetadataSweepTask(sched, meta, cfg.Cache.SweepCron, log.Logger); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Warn().Err(err).Msg("Scheduler shutdown error")
		}
	}()

	server := api.NewServer(cfg, api.Dependencies{
		Streams:   streamService,
		Cache:     res,
		Health:    healthHandlers,
		Scheduler: sched,
		Logs:      log,
	}, log.Logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.Server.Address())
	}()
	log.Info().
		Str("manifest", fmt.Sprintf("http://localhost:%d/manifest.json", cfg.Server.Port)).
		Msg("Addon ready")

	select {
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	return nil
}

// openCacheStore returns the configured cache substrate and its cleanup.
func openCacheStore(ctx context.Context, cfg *config.Config, retryCfg startup.RetryConfig, log zerolog.Logger) (cache.Store, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		rs := cache.NewRedisStore(cfg.Cache.Redis)
		if err := startup.WithRetry(ctx, "redis connection", retryCfg, log, rs.Ping); err != nil {
			_ = rs.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Cache.Redis.Addr, err)
		}
		log.Info().Str("addr", cfg.Cache.Redis.Addr).Msg("Using Redis resolution cache")
		return rs, func() { _ = rs.Close() }, nil
	default:
		return cache.NewMemoryStore(cfg.Cache.MaxItems), func() {}, nil
	}
}
