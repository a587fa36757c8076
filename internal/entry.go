// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/granola-sync/internal/api"
	"github.com/starford/granola-sync/internal/granola"
	"github.com/starford/granola-sync/internal/index"
	"github.com/starford/granola-sync/internal/mcpserver"
	"github.com/starford/granola-sync/internal/meetings"
	"github.com/starford/granola-sync/internal/metrics"
	"github.com/starford/granola-sync/internal/sse"
	"github.com/starford/granola-sync/internal/storage"
	"github.com/starford/granola-sync/internal/syncer"
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg      *Config
	logger   *slog.Logger
	store    *storage.FS
	db       *index.DB
	client   *granola.Client
	metrics  *metrics.Metrics
	meetings *meetings.Service
	syncer   *syncer.Service
}

func (rt *runtime) Close() {
	if rt.syncer != nil {
		rt.syncer.Close()
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
}

// setup builds logger, storage, index and sync service. Extra syncer options
// are appended after the defaults.
func setup(opts []Option, extra ...syncer.Option) (*runtime, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("sync_directory", cfg.Sync.Directory),
		slog.String("log_level", cfg.App.LogLevel.String()))

	syncCfg, err := cfg.Syncer()
	if err != nil {
		return nil, err
	}

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	rt := &runtime{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		db:      db,
		metrics: metrics.New(),
		client:  granola.New(cfg.Granola.Client(), &http.Client{Timeout: cfg.Granola.Timeout}, granola.WithLogger(logger)),
	}
	rt.meetings = meetings.NewService(store, db, cfg.Sync.Directory)

	svcOpts := append([]syncer.Option{
		syncer.WithIndex(db),
		syncer.WithFetcher(rt.client),
		syncer.WithMetrics(rt.metrics),
	}, extra...)
	rt.syncer = syncer.New(rt.client, store, syncCfg, logger, svcOpts...)

	return rt, nil
}

// Sync runs a single pass and returns its report. With dryRun set nothing is
// written to the vault.
func Sync(ctx context.Context, dryRun bool, opts ...Option) (*syncer.Report, error) {
	rt, err := setup(opts)
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	return rt.syncer.Sync(ctx, dryRun)
}

// ServeMCP exposes the meeting tools over stdio until stdin closes.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}

	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := index.Sync(rt.db, rt.store, rt.logger); err != nil {
		rt.logger.Warn("initial index sync failed", slog.String("error", err.Error()))
	}

	srv := mcpserver.New(rt.syncer, rt.meetings, app.version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return index.NewWatcher(rt.db, rt.store, rt.cfg.Vault.Path, rt.logger, nil).Run(gCtx)
	})
	g.Go(func() error {
		// The watcher stops once stdin is closed.
		defer cancel()
		return srv.ServeStdio()
	})
	return g.Wait()
}

// Run starts the daemon: HTTP API, SSE, vault watcher and the scheduler.
func Run(ctx context.Context, opts ...Option) error {
	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := setup(opts, syncer.WithEvents(broker))
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, logger := rt.cfg, rt.logger

	// Bring the index up to date before the first run looks up identities.
	if err := index.Sync(rt.db, rt.store, logger); err != nil {
		logger.Warn("initial index sync failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(rt.syncer, rt.meetings, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	api.Health(r, rt.db.Ping)
	r.Handle("/metrics", rt.metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the index current with edits made outside sync runs.
	g.Go(func() error {
		w := index.NewWatcher(rt.db, rt.store, cfg.Vault.Path, logger, func(kind index.EventKind, path string) {
			broker.PublishNoteEvent(string(kind), path)
		})
		return w.Run(gCtx)
	})

	// Automatic runs. The first pass starts right away when an interval is set.
	g.Go(func() error {
		return syncer.NewScheduler(rt.syncer, cfg.Sync.Interval, cfg.Sync.Interval > 0, logger).Run(gCtx)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once a signal arrives so the watcher and
// scheduler stop with the HTTP server.
var errShutdown = errors.New("shutdown requested")
