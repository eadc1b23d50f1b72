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
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/dupcheck/internal/metrics"
	"github.com/nao1215/dupcheck/internal/model"
	"github.com/nao1215/dupcheck/internal/pipeline"
)

// Default server settings.
const (
	DefaultWorkers        = 4
	DefaultConcurrency    = 4
	DefaultMaxUploadBytes = 32 << 20
)

// RunStore persists finished runs. It is implemented by
// database.HistoryDB.
type RunStore interface {
	SaveRun(ctx context.Context, report *model.CheckReport) error
}

// Server serves the duplicate-check HTTP API.
//
// Design decision: The server holds no per-request state. Each upload gets
// its own temporary file and pipeline, so the only shared resources are
// the worker semaphore, the metrics registry, and the optional history
// store.
type Server struct {
	looker pipeline.Looker
	logger *slog.Logger

	// sem caps how many async runs are processed at once.
	sem *semaphore.Weighted

	workers        int
	concurrency    int
	mode           string
	skipMalformed  bool
	minScore       float64
	maxUploadBytes int64
	allowedDirs    []string
	uploadDir      string

	metrics *metrics.Metrics
	history RunStore
	now     func() time.Time

	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request logs and run failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithWorkers caps concurrently processed async uploads.
func WithWorkers(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithConcurrency sets the parallel lookups per async run.
func WithConcurrency(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMode sets the workflow response mode used for lookups.
func WithMode(mode string) Option {
	return func(s *Server) {
		s.mode = mode
	}
}

// WithSkipMalformed records malformed workflow responses as warnings.
func WithSkipMalformed(skip bool) Option {
	return func(s *Server) {
		s.skipMalformed = skip
	}
}

// WithMinScore drops matches scoring below score.
func WithMinScore(score float64) Option {
	return func(s *Server) {
		s.minScore = score
	}
}

// WithMaxUploadBytes limits the request body of uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithAllowedDirs restricts downloads to files under dirs.
func WithAllowedDirs(dirs ...string) Option {
	return func(s *Server) {
		s.allowedDirs = append([]string(nil), dirs...)
	}
}

// WithUploadDir sets where uploads are stored while being checked.
func WithUploadDir(dir string) Option {
	return func(s *Server) {
		s.uploadDir = dir
	}
}

// WithMetrics records run metrics and serves them at /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithHistory stores every finished run.
func WithHistory(store RunStore) Option {
	return func(s *Server) {
		s.history = store
	}
}

// withClock overrides the time source used for default output names.
func withClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a Server that looks sentences up with looker.
func New(looker pipeline.Looker, opts ...Option) *Server {
	s := &Server{
		looker:         looker,
		workers:        DefaultWorkers,
		concurrency:    DefaultConcurrency,
		maxUploadBytes: DefaultMaxUploadBytes,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.sem = semaphore.NewWeighted(int64(s.workers))
	s.router = s.routes()

	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/duplicate-check", s.handleCheck(false))
		r.Post("/duplicate-check-async", s.handleCheck(true))
		r.Get("/download-result/*", s.handleDownload)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, waiting at most shutdownTimeout for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("server started", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
