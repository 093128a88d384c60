package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/graphops/class-registry/internal/api/types"
	"github.com/graphops/class-registry/internal/class"
	"github.com/graphops/class-registry/internal/compatibility"
	"github.com/graphops/class-registry/internal/migration"
	"github.com/graphops/class-registry/internal/registry"
)

// CreateEntity handles POST /entities.
func (h *Handler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	var req types.CreateEntityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, types.ErrorCodeInvalidDefinition, err.Error())
		return
	}
	if req.Class == "" {
		writeError(w, http.StatusBadRequest, types.ErrorCodeInvalidDefinition, "class is required")
		return
	}

	entity := &class.Entity{
		ClassID:     req.Class,
		Properties:  req.Properties,
		Labels:      req.Labels,
		SourceID:    req.SourceID,
		TargetID:    req.TargetID,
		SourceKinds: req.SourceKinds,
		TargetKinds: req.TargetKinds,
	}

	created, err := h.registry.CreateEntity(r.Context(), entity)
	if err != nil {
		if _, ok := err.(*registry.ValidationError); ok {
			h.metrics.RecordValidationFailure("create_entity")
		}
		h.writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetEntity handles GET /entities/{id}.
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	entity, err := h.registry.GetEntity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

// CheckCompatibility handles GET /entities/{id}/compatibility/{class}.
// The analysis is read-only; the entity is not changed.
func (h *Handler) CheckCompatibility(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "id")
	target := chi.URLParam(r, "class")

	report, plan, err := h.registry.AnalyzeCompatibility(r.Context(), entityID, target)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}

	entity, err := h.registry.GetEntity(r.Context(), entityID)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}
	h.metrics.RecordCompatibilityCheck(string(entity.Kind), report.Compatible)

	writeJSON(w, http.StatusOK, compatibilityResponse(report, plan))
}

// SwitchClass handles POST /entities/{id}/switch.
func (h *Handler) SwitchClass(w http.ResponseWriter, r *http.Request) {
	var req types.SwitchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, types.ErrorCodeInvalidDefinition, err.Error())
		return
	}
	if req.TargetClass == "" {
		writeError(w, http.StatusBadRequest, types.ErrorCodeInvalidDefinition, "targetClass is required")
		return
	}

	entityID := chi.URLParam(r, "id")
	result, err := h.registry.SwitchClass(r.Context(), entityID, req.TargetClass, req.Mappings, req.PreserveLostProperties)
	if err != nil {
		if entity, getErr := h.registry.GetEntity(r.Context(), entityID); getErr == nil {
			h.metrics.RecordSwitch(string(entity.Kind), false)
		}
		if _, ok := err.(*registry.ValidationError); ok {
			h.metrics.RecordValidationFailure("switch")
		}
		h.writeRegistryError(w, err)
		return
	}
	h.metrics.RecordSwitch(string(result.Entity.Kind), true)

	writeJSON(w, http.StatusOK, types.SwitchResponse{
		Entity:             result.Entity,
		Report:             compatibilityResponse(result.Report, result.Plan),
		AppliedMappings:    result.AppliedMappings,
		ArchivedProperties: result.ArchivedProperties,
	})
}

func compatibilityResponse(report *compatibility.Report, plan *migration.Plan) types.CompatibilityResponse {
	resp := types.CompatibilityResponse{
		Compatible:          report.Compatible,
		Score:               report.Score,
		Preserved:           report.Preserved,
		Lost:                report.Lost,
		MissingRequired:     make([]types.MissingPropertyResponse, 0, len(report.MissingRequired)),
		EndpointCompatible:  report.EndpointCompatible,
		EndpointIssue:       report.EndpointIssue,
		SemanticallyRelated: report.SemanticallyRelated,
		SemanticConfidence:  report.SemanticConfidence,
		Plan: types.PlanResponse{
			Steps:             make([]types.MigrationStepResponse, 0, len(plan.Steps)),
			Warnings:          plan.Warnings,
			RequiresUserInput: plan.RequiresUserInput,
			CanAutoMigrate:    plan.CanAutoMigrate,
		},
	}
	if resp.Preserved == nil {
		resp.Preserved = map[string]class.Value{}
	}
	if resp.Lost == nil {
		resp.Lost = map[string]class.Value{}
	}
	for _, missing := range report.MissingRequired {
		resp.MissingRequired = append(resp.MissingRequired, types.MissingPropertyResponse{
			Name:             missing.Name,
			SuggestedDefault: missing.SuggestedDefault,
		})
	}
	for _, step := range plan.Steps {
		resp.Plan.Steps = append(resp.Plan.Steps, stepResponse(step))
	}
	return resp
}

func stepResponse(step compatibility.MigrationStep) types.MigrationStepResponse {
	resp := types.MigrationStepResponse{Description: step.Describe()}
	switch s := step.(type) {
	case compatibility.ChangeClass:
		resp.Action = "change_class"
		resp.FromClass = s.From
		resp.ToClass = s.To
	case compatibility.KeepProperty:
		resp.Action = "keep_property"
		resp.Property = s.Name
	case compatibility.DropProperty:
		resp.Action = "drop_property"
		resp.Property = s.Name
		resp.Reason = s.Reason
	case compatibility.AddRequiredProperty:
		resp.Action = "add_required_property"
		resp.Property = s.Name
		def := s.Default
		resp.Default = &def
	case compatibility.RemapValue:
		resp.Action = "remap_value"
		resp.Property = s.Name
		current, suggested := s.Current, s.Suggested
		resp.Current = &current
		resp.Suggested = &suggested
	}
	return resp
}
