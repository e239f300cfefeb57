package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spendwise/internal/advisor"
	"spendwise/internal/auth"
	applog "spendwise/internal/log"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
	"spendwise/internal/services"
	"spendwise/internal/session"
)

// Check reports whether a dependency is usable. Used by /readyz.
type Check func(ctx context.Context) error

// Options holds transport limits.
type Options struct {
	Addr               string
	MaxUploadBytes     int64
	RateLimitPerMinute int
	SessionTTL         time.Duration
}

// Deps are the services behind the API. Checks may be nil.
type Deps struct {
	Auth     *auth.Service
	Sessions *session.Registry
	Imports  *services.ImportService
	Advisor  *advisor.Advisor
	Checks   map[string]Check
	Logger   *applog.Logger
}

type Server struct {
	http.Server

	opts     Options
	auth     *auth.Service
	sessions *session.Registry
	imports  *services.ImportService
	advisor  *advisor.Advisor
	checks   map[string]Check
	logger   *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	metrics      *appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultConfig().TTL
	}
	if deps.Advisor == nil {
		deps.Advisor = advisor.New()
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		opts:     opts,
		auth:     deps.Auth,
		sessions: deps.Sessions,
		imports:  deps.Imports,
		advisor:  deps.Advisor,
		checks:   deps.Checks,
		logger:   logger.WithComponent(applog.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		detector: security.NewDetector(logger),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)
	s.metrics = newAppMetrics(s)
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError(MsgNotFound).Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireSession)

		r.Post("/uploads/preview", s.handlePreview)
		r.Post("/uploads", s.handleImport)

		r.Get("/transactions", s.handleListTransactions)
		r.Put("/transactions/{id}/category", s.handleReassignCategory)

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleCreateCategory)
		r.Put("/categories/{id}", s.handleUpdateCategory)
		r.Delete("/categories/{id}", s.handleDeleteCategory)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/reports", s.handleReports)
		r.Get("/recommendations", s.handleRecommendations)
	})
	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, MsgRateLimited).Write(w)
}

// Shutdown stops the HTTP server and the rate limiter cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
