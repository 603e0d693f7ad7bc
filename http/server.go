// Package http serves tutor sessions to web clients over JSON, SSE and
// websockets.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fwojciec/tutor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultSessionTTL   = 30 * time.Minute
	defaultRateLimit    = rate.Limit(1)
	defaultBurst        = 5
	defaultReapInterval = time.Minute
	shutdownTimeout     = 10 * time.Second
)

// SessionFactory creates a new uninitialized session.
type SessionFactory func() *tutor.Session

// Server serves the tutor API.
type Server struct {
	router     chi.Router
	sessions   *Registry
	limiters   *limiters
	newSession SessionFactory
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	ttl          time.Duration
	limit        rate.Limit
	burst        int
	reapInterval time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards all output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithSessionTTL sets how long an idle session is kept. Zero keeps
// sessions until they are deleted.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.ttl = ttl
	}
}

// WithRateLimit sets the per-client request rate and burst.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(s *Server) {
		s.limit = limit
		s.burst = burst
	}
}

// WithReapInterval sets how often idle sessions are dropped.
func WithReapInterval(d time.Duration) Option {
	return func(s *Server) {
		s.reapInterval = d
	}
}

// NewServer creates a Server that starts sessions with newSession.
func NewServer(newSession SessionFactory, opts ...Option) *Server {
	s := &Server{
		newSession:   newSession,
		logger:       slog.New(slog.DiscardHandler),
		ttl:          defaultSessionTTL,
		limit:        defaultRateLimit,
		burst:        defaultBurst,
		reapInterval: defaultReapInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = NewRegistry(s.ttl)
	s.limiters = newLimiters(s.limit, s.burst)
	s.router = s.buildRouter()
	return s
}

// Sessions returns the session registry.
func (s *Server) Sessions() *Registry {
	return s.sessions
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, dropping idle
// sessions in the background.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.reap(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) reap(ctx context.Context) {
	ticker := time.NewTicker(s.reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range s.sessions.Reap() {
				s.logger.Info("session expired", "session", id)
			}
			if s.ttl > 0 {
				s.limiters.prune(s.ttl)
			}
		}
	}
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Use(s.limiters.middleware)
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/messages", s.handleSubmit)
			r.Post("/retry", s.handleRetry)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
