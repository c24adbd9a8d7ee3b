// Package server exposes the datasets over HTTP.
//
// It serves a JSON API for reading datasets, appending records and reading
// the activity journal, plus a server-sent event stream that reports changed
// datasets. With watching enabled, changes made by other programs to the
// dataset files are reported as well.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/recordkeeper/internal/engine"
	"github.com/leapstack-labs/recordkeeper/internal/server/notifier"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
	"golang.org/x/sync/errgroup"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "localhost:8765"

// Server is the HTTP server.
type Server struct {
	engine   *engine.Engine
	addr     string
	watch    bool
	logger   *slog.Logger
	notifier *notifier.Notifier
	handlers *Handlers
}

// Config holds configuration for the server.
type Config struct {
	Engine *engine.Engine
	Addr   string
	Watch  bool
	Logger *slog.Logger
}

// New creates a new server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	notify := notifier.New()
	return &Server{
		engine:   cfg.Engine,
		addr:     addr,
		watch:    cfg.Watch,
		logger:   logger,
		notifier: notify,
		handlers: NewHandlers(cfg.Engine, notify, logger),
	}
}

// Notifier returns the server's notifier for change events.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
			NoColor: true,
		}),
		middleware.Recoverer,
		middleware.Compress(5, "application/json"),
	)
	SetupRoutes(r, s.handlers)
	return r
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully. ln is closed on return.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting server", "addr", "http://"+ln.Addr().String())

	s.handlers.observe()
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start file watcher if enabled
	if s.watch {
		eg.Go(func() error {
			err := s.engine.WatchFunc(egctx, func(id core.DatasetID) {
				s.logger.Debug("dataset changed on disk", "dataset", id.Name())
				s.handlers.publish(egctx, id)
			})
			if err != nil {
				// Don't fail - continue without watching
				s.logger.Error("failed to watch dataset files", "error", err)
			}
			return nil
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
