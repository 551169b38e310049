package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/scamsniper/internal/domain"
	"github.com/opensource-finance/scamsniper/internal/metrics"
	"github.com/opensource-finance/scamsniper/internal/rules"
	"github.com/opensource-finance/scamsniper/internal/scoring"
	"github.com/opensource-finance/scamsniper/internal/velocity"
)

// Deps are the collaborators served by the API.
type Deps struct {
	Scoring  *scoring.Service
	Repo     domain.Repository
	Cache    domain.Cache
	Bus      domain.EventBus
	Rules    *rules.Engine
	Limiter  *velocity.Limiter
	Metrics  *metrics.Metrics
	Security domain.SecurityConfig
	Version  string
}

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Deps) *Server {
	handler := NewHandler(deps, cfg.MaxUploadBytes)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware(deps.Metrics))
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	router.Get("/", handler.Root)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	admin := AdminMiddleware(deps.Security.AdminSecret)

	router.Route("/api", func(r chi.Router) {
		r.Use(RateLimitMiddleware(deps.Limiter, deps.Metrics))

		// Scoring channels
		r.Post("/classify", handler.Classify)
		r.Post("/email/check", handler.CheckEmail)
		r.Post("/ocr/scan", handler.ScanOCR)
		r.Post("/transaction/validate", handler.ValidateTransaction)
		r.Post("/transaction/check-image", handler.CheckTransactionImage)

		// Submissions
		r.Post("/report", handler.CreateReport)
		r.Post("/feedback", handler.CreateFeedback)
		r.Post("/scan", handler.CreateScan)
		r.Post("/support", handler.CreateSupportTicket)
		r.Get("/settings", handler.GetSettings)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(admin)

			r.Get("/report/all", handler.ListReports)
			r.Get("/report/category/{category}", handler.ListReportsByCategory)
			r.Get("/feedback/all", handler.ListFeedback)
			r.Get("/scan/all", handler.ListScans)
			r.Get("/support/all", handler.ListSupportTickets)
			r.Post("/settings", handler.UpdateSetting)

			r.Get("/rules", handler.ListRules)
			r.Get("/rules/{id}", handler.GetRule)
			r.Post("/rules", handler.CreateRule)
			r.Post("/rules/reload", handler.ReloadRules)
		})
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
