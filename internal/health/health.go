// Package health provides health check endpoints for the backend service.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ServiceStatus represents the status of a single service
type ServiceStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the structured health check response
type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Services  map[string]ServiceStatus `json:"services"`
	Version   string                   `json:"version,omitempty"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Ready     bool   `json:"ready"`
	Timestamp string `json:"timestamp"`
}

// LivenessResponse represents the liveness probe response
type LivenessResponse struct {
	Alive     bool   `json:"alive"`
	Timestamp string `json:"timestamp"`
}

// Handler handles health check requests
type Handler struct {
	dbPool  *pgxpool.Pool
	version string
	timeout time.Duration
	ready   bool
	mu      sync.RWMutex
}

// Config holds health handler configuration
type Config struct {
	DBPool  *pgxpool.Pool
	Version string
	Timeout time.Duration
}

// NewHandler creates a new health check handler
func NewHandler(cfg Config) *Handler {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &Handler{
		dbPool:  cfg.DBPool,
		version: cfg.Version,
		timeout: timeout,
		ready:   true,
	}
}

// SetReady sets the readiness state of the service. Flipped to false
// when graceful shutdown begins so load balancers drain early.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady returns the current readiness state
func (h *Handler) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Health handles the main health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	services := make(map[string]ServiceStatus)
	overallStatus := "healthy"

	dbStatus := h.checkDatabase(ctx)
	services["database"] = dbStatus
	if dbStatus.Status != "up" {
		overallStatus = "degraded"
	}

	response := HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
		Version:   h.version,
	}

	w.Header().Set("Content-Type", "application/json")
	if overallStatus == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

// Readiness handles the readiness probe endpoint
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ready := h.IsReady()

	if ready {
		dbStatus := h.checkDatabase(ctx)
		if dbStatus.Status != "up" {
			ready = false
		}
	}

	response := ReadinessResponse{
		Ready:     ready,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

// Liveness handles the liveness probe endpoint
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	response := LivenessResponse{
		Alive:     true,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// checkDatabase checks PostgreSQL connectivity
func (h *Handler) checkDatabase(ctx context.Context) ServiceStatus {
	if h.dbPool == nil {
		return ServiceStatus{
			Status: "down",
			Error:  "database pool not configured",
		}
	}

	start := time.Now()
	err := h.dbPool.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ServiceStatus{
			Status:  "down",
			Latency: latency.String(),
			Error:   err.Error(),
		}
	}

	return ServiceStatus{
		Status:  "up",
		Latency: latency.String(),
	}
}
