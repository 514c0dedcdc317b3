package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/deposition-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ComparisonProvider supplies the roll-up comparison of the latest run.
type ComparisonProvider interface {
	Comparison() domain.Comparison
}

// Server exposes health, readiness, metrics, and comparison HTTP endpoints.
type Server struct {
	httpServer  *http.Server
	comparisons ComparisonProvider
	logger      *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /comparison routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, comparisons ComparisonProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		comparisons: comparisons,
		logger:      logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /comparison", s.handleComparison)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	cmp := s.comparisons.Comparison()

	// Filter to one station when asked.
	if station := r.URL.Query().Get("station"); station != "" {
		cmp = filterStation(cmp, station)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cmp); err != nil {
		s.logger.Error("encode comparison failed", "error", err)
	}
}

func filterStation(cmp domain.Comparison, station string) domain.Comparison {
	out := domain.Comparison{GeneratedAt: cmp.GeneratedAt}
	for _, m := range cmp.Months {
		if m.Key.Station == station {
			out.Months = append(out.Months, m)
		}
	}
	for _, y := range cmp.Years {
		if y.Key.Station == station {
			out.Years = append(out.Years, y)
		}
	}
	return out
}
