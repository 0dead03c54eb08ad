// Package health exposes cluster reachability over HTTP.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	clienterrors "github.com/devrev/aerolink/internal/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether the configured clusters are reachable
type Pinger interface {
	Ping(ctx context.Context) (bool, error)
}

// HealthCheck serves liveness and readiness probes. Readiness pings the
// clusters on every request; nothing runs in the background.
type HealthCheck struct {
	pinger  Pinger
	logger  *zap.Logger
	timeout time.Duration
}

// LivenessResponse represents the response for the liveness check.
type LivenessResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the response for the readiness check.
type ReadinessResponse struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewHealthCheck creates a new HealthCheck instance.
func NewHealthCheck(pinger Pinger, timeout time.Duration, logger *zap.Logger) *HealthCheck {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthCheck{
		pinger:  pinger,
		logger:  logger.Named("health"),
		timeout: timeout,
	}
}

// LivenessHandler handles GET /health/live requests.
func (hc *HealthCheck) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{Status: "healthy"})
}

// ReadinessHandler handles GET /health/ready requests.
// Returns 200 OK if any host of either cluster answers the probe.
func (hc *HealthCheck) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if hc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hc.timeout)
		defer cancel()
	}

	ok, err := hc.pinger.Ping(ctx)
	if err != nil || !ok {
		resp := ReadinessResponse{Status: "not_ready"}
		if err != nil {
			resp.Code = clienterrors.Status(err).Code().String()
			resp.Error = err.Error()
		}
		hc.logger.Warn("Readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, ReadinessResponse{Status: "ready"})
}

// NewRouter wires the health endpoints and the metrics endpoint for gatherer
func NewRouter(hc *HealthCheck, gatherer prometheus.Gatherer) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogging(hc.logger), recovery(hc.logger))
	router.HandleFunc("/health/live", hc.LivenessHandler).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", hc.ReadinessHandler).Methods(http.MethodGet)
	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return router
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
