// Package api exposes the HTTP interface for the harvester service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shelfscout/shelfscout/internal/catalog"
	"github.com/shelfscout/shelfscout/internal/config"
	"github.com/shelfscout/shelfscout/internal/ingest"
	"github.com/shelfscout/shelfscout/internal/metrics"
	"github.com/shelfscout/shelfscout/internal/scraper"
)

// Scraper runs one harvest against a URL.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) ([]scraper.ScrapedItem, error)
}

// Ingestor persists a scraped batch and reports on it.
type Ingestor interface {
	IngestAll(ctx context.Context, sourceURL string, items []scraper.ScrapedItem) (ingest.Report, error)
}

// Server wires HTTP handlers to the scraper and catalog.
type Server struct {
	router   chi.Router
	scraper  Scraper
	ingestor Ingestor
	store    catalog.Store
	cfg      config.Config
	logger   *zap.Logger

	// scraping guards the single-flight scrape; a browser session is too
	// heavy to run more than one at a time.
	scraping atomic.Bool
}

// NewServer constructs a Server with middleware and routes.
func NewServer(sc Scraper, ing Ingestor, store catalog.Store, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		scraper:  sc,
		ingestor: ing,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(timeoutMiddleware(cfg.ScrapeTimeout())).Post("/scrape", s.scrape)
		r.Group(func(r chi.Router) {
			r.Use(timeoutMiddleware(cfg.RequestTimeout()))
			r.Get("/products", s.listProducts)
			r.Get("/products/{product_id}", s.getProduct)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// scrapeEnvelope is the response shape for POST /v1/scrape.
type scrapeEnvelope struct {
	OK    bool     `json:"ok"`
	Count int      `json:"count"`
	Items []string `json:"items"`
	Error string   `json:"error,omitempty"`
}

type scrapeRequest struct {
	URL string `json:"url"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeScrapeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	target := req.URL
	if target == "" {
		target = s.cfg.Scraper.DefaultURL
	}
	if target == "" {
		writeScrapeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if !s.scraping.CompareAndSwap(false, true) {
		writeScrapeError(w, http.StatusConflict, "a scrape is already in progress")
		return
	}
	defer s.scraping.Store(false)

	items, err := s.scraper.Scrape(r.Context(), target)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scraper.ErrSessionLaunch) {
			status = http.StatusBadGateway
		}
		s.logger.Error("scrape failed", zap.String("url", target), zap.Error(err))
		writeScrapeError(w, status, err.Error())
		return
	}

	report, err := s.ingestor.IngestAll(r.Context(), target, items)
	if err != nil {
		s.logger.Error("ingest failed", zap.String("url", target), zap.Error(err))
		writeScrapeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, scrapeEnvelope{
		OK:    true,
		Count: report.Persisted,
		Items: report.Titles,
	})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		s.logger.Error("list products failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(products),
		"products": products,
	})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "product_id")
	product, err := s.store.GetProduct(r.Context(), key)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		s.logger.Error("get product failed", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch product")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeScrapeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, scrapeEnvelope{OK: false, Items: []string{}, Error: msg})
}
