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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/mdpad/internal/api"
	"github.com/starford/mdpad/internal/export"
	"github.com/starford/mdpad/internal/mcpserver"
	"github.com/starford/mdpad/internal/models"
	"github.com/starford/mdpad/internal/persist"
	"github.com/starford/mdpad/internal/render"
	"github.com/starford/mdpad/internal/session"
	"github.com/starford/mdpad/internal/sse"
	"github.com/starford/mdpad/internal/storage"
	"github.com/starford/mdpad/internal/watch"
)

// Export formats accepted by Export.
const (
	FormatMarkdown = "md"
	FormatBundle   = "zip"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	cfg := app.config
	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker; new streams start from the session's current state.
	var sess *session.Session
	broker := sse.NewBroker(sse.WithReplay(func() []sse.Event { return sess.Events() }))
	defer broker.Close()

	sess, files, err := openSession(ctx, cfg, logger, session.WithPublisher(broker))
	if err != nil {
		return err
	}
	defer closeSession(sess, files, logger)

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

	// Mount API routes under /api; the event stream shares the auth group.
	r.Mount("/api", api.NewRouter(sess, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the linked file when it changes on disk.
	if cfg.Workspace.Watch {
		g.Go(func() error {
			watchWorkspace(gCtx, files.Root(), logger, sess)
			return nil
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

// errShutdown cancels the group so the watcher exits with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the document over MCP on stdin/stdout until the client
// disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	cfg := app.config
	logger := app.newLogger()

	sess, files, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSession(sess, files, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Workspace.Watch {
		g.Go(func() error {
			watchWorkspace(gCtx, files.Root(), logger, sess)
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		logger.Info("Starting MCP server", slog.String("version", app.version))
		if err := mcpserver.New(sess, app.version).ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Export writes the persisted document to outDir in the given format and
// returns the path of the written file.
func Export(ctx context.Context, format, outDir string, opts ...Option) (string, error) {
	app, err := newApplication(opts)
	if err != nil {
		return "", err
	}
	if format != FormatMarkdown && format != FormatBundle {
		return "", fmt.Errorf("export: unknown format %q (want %s or %s)", format, FormatMarkdown, FormatBundle)
	}

	logger := app.newLogger()

	sess, files, err := openSession(ctx, app.config, logger)
	if err != nil {
		return "", err
	}
	defer closeSession(sess, files, logger)

	var art models.Artifact
	switch format {
	case FormatMarkdown:
		art = sess.ExportMarkdown()
	case FormatBundle:
		if art, err = sess.ExportBundle(); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("export: create out dir: %w", err)
	}
	path := filepath.Join(outDir, art.Name)
	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		return "", fmt.Errorf("export: write: %w", err)
	}

	logger.Info("Exported document", slog.String("path", path), slog.Int("bytes", len(art.Data)))
	return path, nil
}

// openSession wires storage, persistence and rendering into a hydrated
// session.
func openSession(ctx context.Context, cfg *Config, logger *slog.Logger, extra ...session.Option) (*session.Session, *storage.FS, error) {
	// Ensure workspace directory exists.
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create workspace dir: %w", err)
	}

	files, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	store, err := persist.OpenSQLite(cfg.SQLite.Path)
	if err != nil {
		_ = files.Close()
		return nil, nil, fmt.Errorf("init persistence: %w", err)
	}

	hl := render.NewChromaHighlighter(cfg.Render.HighlightStyle)
	codeCSS, err := hl.CSS()
	if err != nil {
		_ = store.Close()
		_ = files.Close()
		return nil, nil, fmt.Errorf("init highlighter: %w", err)
	}
	pipeline := render.NewPipeline(cfg.Render.Options(), hl)

	opts := append([]session.Option{
		session.WithLogger(logger),
		session.WithFiles(files),
		session.WithBreakpoint(cfg.Layout.Breakpoint),
	}, extra...)

	sess := session.New(pipeline, export.NewService(pipeline, codeCSS), persist.NewAdapter(store, logger), opts...)
	sess.Hydrate(ctx)
	return sess, files, nil
}

func closeSession(sess *session.Session, files *storage.FS, logger *slog.Logger) {
	if err := sess.Close(); err != nil {
		logger.Error("close session", slog.String("error", err.Error()))
	}
	if err := files.Close(); err != nil {
		logger.Error("close workspace", slog.String("error", err.Error()))
	}
}

func watchWorkspace(ctx context.Context, root string, logger *slog.Logger, sess *session.Session) {
	if err := watch.Watch(ctx, root, watch.DefaultDebounce, logger, sess.OnFileChange); err != nil {
		logger.Warn("workspace watcher stopped", slog.String("error", err.Error()))
	}
}
