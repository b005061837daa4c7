// Package internal provides the application entry points: the HTTP
// server with its file watcher, the MCP stdio server, and the reindex
// command. All three share one construction path from Config to a
// journal service.
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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/dagaz/internal/api"
	"github.com/starford/dagaz/internal/hooks"
	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/journal"
	"github.com/starford/dagaz/internal/mcpserver"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/sse"
	"github.com/starford/dagaz/internal/storage"
)

// Run starts the journal server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(app, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("journal_path", cfg.Journal.Path),
		slog.String("backend", cfg.Journal.Backend),
		slog.String("index_path", cfg.Index.ResolvedPath(cfg.Journal.Path)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, db, err := openEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// Reconcile the index with whatever changed while we were down.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Post-commit hooks.
	dispatcher := hooks.NewDispatcher(logger)
	registerHooks(dispatcher, cfg, broker, logger)

	svc := journal.NewService(store, db, dispatcher, logger)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated). Readiness round-trips
	// the index database.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := db.Stats(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api. The SSE endpoint lives inside the
	// authenticated group; EventSource clients pass the token as a
	// query parameter.
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the journal directory so external edits reach the index
	// and connected clients. Watcher events are not engine commits, so
	// they bypass the hook dispatcher and go straight to the broker.
	if cfg.Journal.Watch {
		g.Go(func() error {
			if err := index.Watch(gCtx, db, store, cfg.Journal.Path, logger, func(kind string, date models.Date) {
				broker.PublishEntryEvent(kind, date.String())
			}); err != nil {
				return fmt.Errorf("watcher: %w", err)
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
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
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped")
	return nil
}

// RunMCP serves the journal over MCP stdio. No HTTP server, watcher or
// SSE broker; the MCP host owns the process lifetime. Logs go to
// stderr because stdout carries the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(app, os.Stderr)

	store, db, err := openEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// Writes arriving over MCP still run the post-commit hooks, minus
	// the broadcast one, which has no broker to feed.
	dispatcher := hooks.NewDispatcher(logger)
	registerHooks(dispatcher, cfg, nil, logger)

	svc := journal.NewService(store, db, dispatcher, logger)

	logger.Info("starting MCP server", slog.String("journal_path", cfg.Journal.Path))
	return mcpserver.New(svc).ServeStdio()
}

// RunReindex rebuilds the derived index from the canonical journal
// files and reports the totals.
func RunReindex(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(app, os.Stdout)

	store, db, err := openEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := index.Rebuild(db, store, logger); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	stats, err := db.Stats()
	if err != nil {
		return fmt.Errorf("reindex: read totals: %w", err)
	}
	logger.Info("reindex complete",
		slog.Int("entries", stats.Entries),
		slog.Int("tasks", stats.Counts.Tasks),
		slog.Int("words", stats.Counts.Words))
	return nil
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(app *application, fallback io.Writer) *slog.Logger {
	out := app.logWriter
	if out == nil {
		out = fallback
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
}

// openEngine builds the storage provider and opens the index per the
// configuration. The caller owns closing the returned DB.
func openEngine(cfg *Config, logger *slog.Logger) (storage.Provider, *index.DB, error) {
	if err := os.MkdirAll(cfg.Journal.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create journal dir: %w", err)
	}

	var store storage.Provider
	var err error
	switch cfg.Journal.Backend {
	case BackendDiskv:
		store, err = storage.NewDiskv(cfg.Journal.Path)
	default:
		store, err = storage.NewFS(cfg.Journal.Path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	indexPath := cfg.Index.ResolvedPath(cfg.Journal.Path)
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := index.Open(indexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}

	logger.Debug("engine ready",
		slog.String("backend", cfg.Journal.Backend),
		slog.String("index", indexPath))
	return store, db, nil
}

// registerHooks applies the config gating: a nil toggle leaves each
// hook's own default in force. A nil broker skips the broadcast hook.
func registerHooks(d *hooks.Dispatcher, cfg *Config, broker *sse.Broker, logger *slog.Logger) {
	gate := func(h hooks.WriteHook, enabled *bool) {
		on := h.EnabledByDefault
		if enabled != nil {
			on = *enabled
		}
		if !on {
			logger.Debug("hook disabled", slog.String("hook", h.Name))
			return
		}
		d.Register(h)
	}

	if broker != nil {
		gate(hooks.NewBroadcast(broker), cfg.Hooks.Broadcast.Enabled)
	}
	audit := cfg.Hooks.AuditLog
	gate(hooks.NewAuditLog(
		audit.ResolvedPath(cfg.Journal.Path),
		audit.MaxSizeMB,
		audit.MaxBackups,
	), audit.Enabled)
}
