package httpadapter

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/storm-alert-delays/internal/pipeline"
)

// Banner is the plain-text body of GET /.
const Banner = "Weather Alert / Client Delayed Orders Service is Running!"

// APIKeyHeader carries the shared secret for triggering runs.
const APIKeyHeader = "X-API-KEY"

// runTimeout bounds a run started over HTTP.
const runTimeout = 2 * time.Minute

// Runner executes one report run.
type Runner interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

// Server exposes health, readiness, metrics, and the run trigger.
type Server struct {
	httpServer *http.Server
	runner     Runner
	apiKey     string
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /, /healthz, /readyz, and /metrics
// routes. POST /check-orders is registered only when apiKey is non-empty.
func NewServer(addr string, ready sharedobs.ReadinessChecker, runner Runner, apiKey string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: runTimeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runner: runner,
		apiKey: apiKey,
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", handleBanner)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	if apiKey != "" && runner != nil {
		mux.HandleFunc("POST /check-orders", s.handleCheckOrders)
		mux.HandleFunc("POST /check_orders", s.handleCheckOrders)
	} else {
		logger.Info("API_KEY not set, run trigger disabled")
	}

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

func handleBanner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, Banner) //nolint:errcheck // best-effort banner
}

// handleCheckOrders runs the pipeline synchronously. The run outlives a
// dropped client connection but not runTimeout.
func (s *Server) handleCheckOrders(w http.ResponseWriter, r *http.Request) {
	provided := r.Header.Get(APIKeyHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.apiKey)) != 1 {
		s.logger.Warn("run trigger rejected", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Unauthorized"})
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), runTimeout)
	defer cancel()

	res, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
