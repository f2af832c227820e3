// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/starford/pageindex/internal/api"
	"github.com/starford/pageindex/internal/cache"
	"github.com/starford/pageindex/internal/i18n"
	"github.com/starford/pageindex/internal/mcpserver"
	"github.com/starford/pageindex/internal/pages"
	"github.com/starford/pageindex/internal/parser"
	"github.com/starford/pageindex/internal/preview"
	"github.com/starford/pageindex/internal/schema"
	"github.com/starford/pageindex/internal/slug"
	"github.com/starford/pageindex/internal/sse"
	"github.com/starford/pageindex/internal/status"
	"github.com/starford/pageindex/internal/storage"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{mode: ModeServe, version: "dev", out: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// stdout carries the protocol in MCP mode.
	logOut := io.Writer(os.Stdout)
	if app.mode == ModeMCP {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.String("workspace_root", cfg.Workspace.Root),
		slog.String("cache_driver", cfg.Cache.Driver),
		slog.String("cache_path", cfg.Cache.Path),
		slog.String("sqlite_build", cache.BuildMode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	fs := afero.NewOsFs()
	ws, err := storage.NewWorkspace(fs, cfg.Workspace.Root,
		storage.WithStaticFolder(cfg.Workspace.StaticFolder),
		storage.WithFileTypes(cfg.Workspace.FileTypes...),
		storage.WithFolders(cfg.Workspace.StorageFolders()...),
		storage.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("init workspace: %w", err)
	}

	switch app.mode {
	case ModeServe:
		return serve(ctx, cfg, fs, ws, logger)
	case ModeMCP:
		return serveMCP(ctx, app, fs, ws, logger)
	case ModeRebuild:
		return rebuildOnce(ctx, app, fs, ws, logger)
	default:
		return fmt.Errorf("unknown mode %q", app.mode)
	}
}

// components are the collaborators of the page index.
type components struct {
	registry *schema.Registry
	store    cache.Store
	snapshot *cache.Pages
	svc      *pages.Service
}

// drainTimeout bounds how long Close waits for a rebuild to persist.
const drainTimeout = 10 * time.Second

// Close waits for rebuilds in flight to persist, then releases the cache.
func (c *components) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := c.svc.Wait(ctx); err != nil {
		slog.Warn("rebuild still running at shutdown", slog.String("error", err.Error()))
	}

	c.snapshot.Close()
	if err := c.store.Close(); err != nil {
		slog.Warn("cache close failed", slog.String("error", err.Error()))
	}
}

// build wires the page index. surfaces and events may be nil.
func build(cfg *Config, fs afero.Fs, ws *storage.Workspace, logger *slog.Logger, surfaces preview.SurfaceProvider, events status.Publisher) (*components, error) {
	types := cfg.Content.ContentTypes
	if file := cfg.Content.ContentTypesFile; file != "" {
		if !filepath.IsAbs(file) {
			file = filepath.Join(ws.Root(), file)
		}
		extra, err := schema.LoadFile(fs, file)
		if err != nil {
			return nil, fmt.Errorf("load content types: %w", err)
		}
		types = append(append([]schema.ContentType(nil), types...), extra...)
	}
	registry := schema.NewRegistry(types, cfg.Content.DefaultContentType, logger)

	store, err := openStore(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	snapshot, err := cache.NewPages(store, cache.WorkspaceScope(ws.Root()))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	settings := cfg.Content.Settings()
	reporter := status.New(logger, events)
	svc, err := pages.NewService(pages.Deps{
		Workspace: ws,
		Parser:    parser.New(fs),
		Schemas:   registry,
		Locales:   i18n.NewResolver(fs, cfg.Workspace.Locales(ws.Root()), logger),
		Slugs: slug.New(
			slug.WithAffixes(cfg.Content.SlugPrefix, cfg.Content.SlugSuffix),
			slug.WithDateField(settings.PublishDateField, settings.DateFormat)),
		Previews: preview.NewResolver(fs, ws.Root(), cfg.Workspace.StaticFolder, surfaces, logger),
		Snapshot: snapshot,
		Notifier: reporter,
		Progress: reporter,
	}, pages.WithSettings(settings), pages.WithLogger(logger))
	if err != nil {
		snapshot.Close()
		store.Close()
		return nil, err
	}

	return &components{registry: registry, store: store, snapshot: snapshot, svc: svc}, nil
}

func openStore(cfg CacheConfig) (cache.Store, error) {
	if cfg.Driver == CacheDriverFile {
		s, err := cache.OpenFileStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	s, err := cache.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func serve(ctx context.Context, cfg *Config, fs afero.Fs, ws *storage.Workspace, logger *slog.Logger) error {
	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	surface := api.NewPreviewSurface(ws, "/api"+api.PreviewsPath)

	comps, err := build(cfg, fs, ws, logger, surface, broker)
	if err != nil {
		return err
	}
	defer comps.Close()

	apiRouter := api.NewRouter(comps.svc, ws, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !comps.svc.Status().Initialized {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"indexing"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Warm the index in the background.
	comps.svc.StartRebuild(gCtx)

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
		surface.Dispose()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func serveMCP(ctx context.Context, app *application, fs afero.Fs, ws *storage.Workspace, logger *slog.Logger) error {
	comps, err := build(app.config, fs, ws, logger, nil, nil)
	if err != nil {
		return err
	}
	defer comps.Close()

	comps.svc.StartRebuild(ctx)

	srv := mcpserver.New(comps.svc, comps.registry, app.version)
	logger.Info("Starting MCP server on stdio")
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

func rebuildOnce(ctx context.Context, app *application, fs afero.Fs, ws *storage.Workspace, logger *slog.Logger) error {
	comps, err := build(app.config, fs, ws, logger, nil, nil)
	if err != nil {
		return err
	}
	defer comps.Close()

	comps.svc.StartRebuild(ctx)
	_, rebuildErr := comps.svc.Index(ctx)

	if last := comps.svc.Status().LastRebuild; last != nil {
		enc := json.NewEncoder(app.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(last); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	if rebuildErr != nil {
		return fmt.Errorf("rebuild: %w", rebuildErr)
	}
	return nil
}
