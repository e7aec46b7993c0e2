// Package api serves the flattening engine and the export services over
// HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/formflow/internal/flatten"
	"github.com/Lllllllleong/formflow/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// Exporter runs a stored export.
type Exporter interface {
	Process(ctx context.Context, req *models.ExportRequest) (*models.ExportResponse, error)
}

// BatchExporter runs a batch of stored exports.
type BatchExporter interface {
	Process(ctx context.Context, req *models.BatchExportRequest) (*models.BatchExportResponse, error)
}

// Config tunes the server.
type Config struct {
	Layout       flatten.Layout
	MaxBodyBytes int64
	// RateLimit is the sustained request rate for /api routes in requests
	// per second. Zero disables limiting.
	RateLimit float64
	Burst     int
}

// Server is the HTTP API server for formflow.
type Server struct {
	router   chi.Router
	exporter Exporter
	batch    BatchExporter
	log      *slog.Logger
	cfg      Config
}

// NewServer creates and configures the HTTP server. exporter and batch may
// be nil, in which case their routes answer 503.
func NewServer(exporter Exporter, batch BatchExporter, log *slog.Logger, cfg Config) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 20
	}
	s := &Server{
		exporter: exporter,
		batch:    batch,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(RateLimiter(rate.NewLimiter(rate.Limit(s.cfg.RateLimit), max(s.cfg.Burst, 1))))
		}
		r.Use(middleware.AllowContentType("application/json", "application/pdf"))

		r.Post("/api/flatten", s.handleFlatten)
		r.Post("/api/inspect", s.handleInspect)
		r.Post("/api/export", s.handleExport)
		r.Post("/api/batch", s.handleBatch)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
