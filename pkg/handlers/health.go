// Package handlers contains the HTTP surface of the service: health and
// status endpoints used by deployment probes.
package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/asperguide/catfeeder-backend/pkg/config"
	"github.com/asperguide/catfeeder-backend/pkg/sql"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthResponse reports the status of the service and its dependencies.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg          *config.Config
	pool         sql.Pool
	cacheEnabled bool
	logger       *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. pool may be nil when the
// service runs without a database (degraded mode).
func NewHealthHandler(cfg *config.Config, pool sql.Pool, cacheEnabled bool, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, pool: pool, cacheEnabled: cacheEnabled, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ping", h.Ping)
}

// Health handles GET /health requests.
// Reports the database pool and cache status; an unreachable database
// degrades the response to 503 so load balancers stop routing here.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:   "ok",
		Database: "down",
		Cache:    "disabled",
	}
	if h.pool != nil && h.pool.IsPoolActive() {
		response.Database = "up"
	}
	if h.cacheEnabled {
		response.Cache = "enabled"
	}

	status := http.StatusOK
	if response.Database != "up" {
		response.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	if err := WriteJSON(w, status, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "catfeeder-backend",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
