package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/tradelevels/levelmap/internal/application"
	"github.com/tradelevels/levelmap/internal/domain/levels"
	"github.com/tradelevels/levelmap/internal/domain/market"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns local-only defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "127.0.0.1:8087",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server exposes the analysis engine over HTTP: POST /analyze, /health and
// /metrics. It holds no state beyond the stateless analyzer itself.
type Server struct {
	router   *mux.Router
	server   *http.Server
	analyzer *application.Analyzer
	metrics  *MetricsRegistry
	log      zerolog.Logger
	started  time.Time
}

// NewServer creates the HTTP surface around an analyzer.
func NewServer(cfg ServerConfig, analyzer *application.Analyzer, metrics *MetricsRegistry, logger zerolog.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		analyzer: analyzer,
		metrics:  metrics,
		log:      logger,
		started:  time.Now(),
	}
	s.router.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("analysis server listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var snap market.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		s.metrics.AnalysesTotal.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "invalid snapshot JSON: "+err.Error())
		return
	}

	report, err := s.analyzer.Analyze(&snap)
	if err != nil {
		s.metrics.AnalysesTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.observe(report, time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.log.Error().Err(err).Msg("failed to encode report")
	}
}

func (s *Server) observe(report *levels.ZoneReport, elapsed time.Duration) {
	s.metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	s.metrics.AnalysisDuration.Observe(elapsed.Seconds())
	s.metrics.ZonesBuilt.WithLabelValues(string(levels.SideSupport)).Observe(float64(len(report.SupportZones)))
	s.metrics.ZonesBuilt.WithLabelValues(string(levels.SideResistance)).Observe(float64(len(report.ResistanceZones)))
	if report.HardControl.BlockLong {
		s.metrics.EntriesBlocked.WithLabelValues("long").Inc()
	}
	if report.HardControl.BlockShort {
		s.metrics.EntriesBlocked.WithLabelValues("short").Inc()
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	Version   string    `json:"version"`
}

// Version is stamped by the CLI at startup.
var Version = "dev"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Version:   Version,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
