// Package handlers implements the HTTP API handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/graphops/class-registry/internal/api/types"
	"github.com/graphops/class-registry/internal/metrics"
	"github.com/graphops/class-registry/internal/registry"
	"github.com/graphops/class-registry/internal/storage"
)

// Handler holds dependencies for the API handlers.
type Handler struct {
	registry *registry.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a new Handler.
func New(reg *registry.Registry, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		registry: reg,
		metrics:  m,
		logger:   logger,
	}
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if !h.registry.IsHealthy(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Liveness handles GET /health/live.
func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if !h.registry.IsHealthy(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status, errorCode int, message string) {
	writeJSON(w, status, types.ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
	})
}

// writeRegistryError maps registry and storage errors to API responses.
func (h *Handler) writeRegistryError(w http.ResponseWriter, err error) {
	var validationErr *registry.ValidationError
	switch {
	case errors.Is(err, storage.ErrClassNotFound):
		writeError(w, http.StatusNotFound, types.ErrorCodeClassNotFound, err.Error())
	case errors.Is(err, storage.ErrEntityNotFound):
		writeError(w, http.StatusNotFound, types.ErrorCodeEntityNotFound, err.Error())
	case errors.Is(err, storage.ErrClassNameAmbiguous):
		writeError(w, http.StatusConflict, types.ErrorCodeClassAmbiguous, err.Error())
	case errors.Is(err, storage.ErrClassExists):
		writeError(w, http.StatusConflict, types.ErrorCodeClassExists, err.Error())
	case errors.Is(err, storage.ErrClassInUse):
		writeError(w, http.StatusConflict, types.ErrorCodeClassInUse, err.Error())
	case errors.Is(err, registry.ErrIncompatibleClass):
		writeError(w, http.StatusConflict, types.ErrorCodeIncompatibleClass, err.Error())
	case errors.Is(err, storage.ErrClassInactive):
		writeError(w, http.StatusUnprocessableEntity, types.ErrorCodeClassInactive, err.Error())
	case errors.Is(err, registry.ErrKindMismatch):
		writeError(w, http.StatusUnprocessableEntity, types.ErrorCodeKindMismatch, err.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusUnprocessableEntity, types.ErrorCodeValidationFailed, err.Error())
	default:
		h.logger.Error("internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, types.ErrorCodeInternalError, "internal error")
	}
}
