package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/graphops/class-registry/internal/api/types"
	"github.com/graphops/class-registry/internal/class"
)

// CreateClass handles POST /classes.
func (h *Handler) CreateClass(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, types.ErrorCodeInvalidDefinition, "failed to read request body")
		return
	}

	def, err := class.ParseDefinitionJSON(body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, types.ErrorCodeInvalidDefinition, err.Error())
		return
	}

	created, err := h.registry.RegisterClass(r.Context(), def)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}

	h.updateClassCounts(r)
	writeJSON(w, http.StatusCreated, created)
}

// GetClass handles GET /classes/{class}. The path segment is a class ID
// or name.
func (h *Handler) GetClass(w http.ResponseWriter, r *http.Request) {
	def, err := h.registry.GetClass(r.Context(), chi.URLParam(r, "class"))
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// ListClasses handles GET /classes with optional kind and
// include_inactive query parameters.
func (h *Handler) ListClasses(w http.ResponseWriter, r *http.Request) {
	var kind class.Kind
	if v := r.URL.Query().Get("kind"); v != "" {
		kind = class.Kind(v)
		if kind != class.KindNode && kind != class.KindRelationship {
			writeError(w, http.StatusBadRequest, types.ErrorCodeInvalidDefinition, "kind must be node or relationship")
			return
		}
	}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	defs, err := h.registry.ListClasses(r.Context(), kind, includeInactive)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}
	if defs == nil {
		defs = []*class.Definition{}
	}
	writeJSON(w, http.StatusOK, defs)
}

// ReplaceClass handles PUT /classes/{class}.
func (h *Handler) ReplaceClass(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, types.ErrorCodeInvalidDefinition, "failed to read request body")
		return
	}

	def, err := class.ParseDefinitionJSON(body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, types.ErrorCodeInvalidDefinition, err.Error())
		return
	}

	updated, err := h.registry.ReplaceClass(r.Context(), chi.URLParam(r, "class"), def)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteClass handles DELETE /classes/{class}. The default is a logical
// delete (deactivation); permanent=true removes the class outright.
func (h *Handler) DeleteClass(w http.ResponseWriter, r *http.Request) {
	idOrName := chi.URLParam(r, "class")

	var err error
	if r.URL.Query().Get("permanent") == "true" {
		err = h.registry.DeleteClass(r.Context(), idOrName)
	} else {
		err = h.registry.DeactivateClass(r.Context(), idOrName)
	}
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}

	h.updateClassCounts(r)
	w.WriteHeader(http.StatusNoContent)
}

// ValidateProperties handles POST /classes/{class}/validate. Rule
// violations are reported in the response body, not as an HTTP error.
func (h *Handler) ValidateProperties(w http.ResponseWriter, r *http.Request) {
	var req types.ValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, types.ErrorCodeInvalidDefinition, err.Error())
		return
	}

	result, err := h.registry.ValidateProperties(r.Context(), chi.URLParam(r, "class"), req.Properties)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}
	if !result.Valid {
		h.metrics.RecordValidationFailure("validate")
	}

	writeJSON(w, http.StatusOK, types.ValidateResponse{
		Valid:  result.Valid,
		Errors: result.Errors,
	})
}

// updateClassCounts refreshes the per-kind class gauges after a class
// mutation. Count failures only cost a stale gauge.
func (h *Handler) updateClassCounts(r *http.Request) {
	for _, kind := range []class.Kind{class.KindNode, class.KindRelationship} {
		defs, err := h.registry.ListClasses(r.Context(), kind, false)
		if err != nil {
			return
		}
		h.metrics.UpdateClassCount(string(kind), float64(len(defs)))
	}
}
