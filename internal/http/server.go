package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bilancio/internal/auth"
	"bilancio/internal/log"
	"bilancio/internal/session"
)

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Session *session.Session
	// Auth guards /api with HTTP basic auth; nil disables authentication.
	Auth   *auth.Service
	Logger *log.Logger
	// RequestsPerMinute limits /api calls per client IP; 0 uses the default.
	RequestsPerMinute int
}

type Server struct {
	http.Server
	session     *session.Session
	auth        *auth.Service
	logger      *log.Logger
	rateLimiter *rateLimiter
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		session:     deps.Session,
		auth:        deps.Auth,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(deps.RequestsPerMinute),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.basicAuth)

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Delete("/transactions", s.handleDeleteMatching)
		r.Get("/transactions/{id}", s.handleGetTransaction)
		r.Put("/transactions/{id}", s.handleUpdateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)

		r.Get("/totals", s.handleTotals)
		r.Get("/balance", s.handleBalance)
		r.Get("/categories", s.handleCategories)
		r.Get("/overview", s.handleOverview)
		r.Get("/series", s.handleSeries)
		r.Get("/forecast", s.handleForecast)

		r.Post("/persist", s.handlePersist)
		r.Post("/reload", s.handleReload)
		r.Get("/export.csv", s.handleExport)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

// Shutdown stops the background cleanup and gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	s.logger.InfoContext(ctx, "HTTP server shutting down", log.FieldOperation, log.OpShutdown)
	return s.Server.Shutdown(ctx)
}
