// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/othala/internal/api"
	"github.com/starford/othala/internal/export"
	"github.com/starford/othala/internal/library"
	"github.com/starford/othala/internal/mcpserver"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/store"
)

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openLibrary opens the store read-only and decodes it into a snapshot.
func openLibrary(ctx context.Context, cfg *Config, logger *slog.Logger) (*store.Store, *library.Library, error) {
	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	lib, err := library.Load(ctx, s, logger)
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("load library: %w", err)
	}
	return s, lib, nil
}

// Run starts the HTTP server with the given options and blocks until
// shutdown.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	if app.logWriter == nil {
		app.logWriter = os.Stdout
	}
	logger := newLogger(cfg, app.logWriter)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.Bool("watch", cfg.Store.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	s, lib, err := openLibrary(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	handle := library.NewHandle(lib)

	// SSE broker.
	broker := sse.NewBroker(30 * time.Second)
	defer broker.Close()

	// Build API router.
	apiRouter := api.NewRouter(handle, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Start store watcher with SSE callback.
	if cfg.Store.Watch {
		g.Go(func() error {
			return library.Watch(gCtx, handle, s, logger, func(l *library.Library) {
				broker.PublishReload(sse.ReloadInfo{
					Notes:   l.Len(),
					Version: l.Profile.Label,
				})
			})
		})
	}

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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunExport decodes the store once and writes the JSON export to w.
// Logs go to stderr so the export itself stays clean on stdout.
func RunExport(ctx context.Context, cfg *Config, w io.Writer, includeContent bool) error {
	logger := newLogger(cfg, os.Stderr)

	s, lib, err := openLibrary(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	doc := export.Build(lib, export.Options{IncludeContent: includeContent})
	if err := export.Write(w, doc); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	logger.Info("Export complete",
		slog.Int("notes", len(doc.Notes)),
		slog.Int("folders", len(doc.Folders)),
		slog.Int("accounts", len(doc.Accounts)))
	return nil
}

// RunMCP serves the MCP tools over stdio. Stdout belongs to the MCP
// transport, so logs go to stderr.
func RunMCP(ctx context.Context, cfg *Config) error {
	logger := newLogger(cfg, os.Stderr)

	s, lib, err := openLibrary(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	handle := library.NewHandle(lib)

	// Keep the snapshot fresh while the MCP session runs.
	if cfg.Store.Watch {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			_ = library.Watch(watchCtx, handle, s, logger, nil)
		}()
	}

	logger.Info("MCP server starting", slog.String("store_path", cfg.Store.Path))
	return mcpserver.New(handle).ServeStdio()
}
