// Package types provides API request and response types.
package types

import (
	"github.com/graphops/class-registry/internal/class"
)

// ValidateRequest is the request body for validating a property bag.
type ValidateRequest struct {
	Properties map[string]class.Value `json:"properties"`
}

// ValidateResponse is the response for a validation call.
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// CreateEntityRequest is the request body for creating an entity.
type CreateEntityRequest struct {
	Class      string                 `json:"class"`
	Properties map[string]class.Value `json:"properties"`
	Labels     []string               `json:"labels,omitempty"`

	// Relationship entities only.
	SourceID    string   `json:"sourceId,omitempty"`
	TargetID    string   `json:"targetId,omitempty"`
	SourceKinds []string `json:"sourceKinds,omitempty"`
	TargetKinds []string `json:"targetKinds,omitempty"`
}

// SwitchRequest is the request body for switching an entity's class.
type SwitchRequest struct {
	TargetClass            string                 `json:"targetClass"`
	Mappings               map[string]class.Value `json:"mappings,omitempty"`
	PreserveLostProperties bool                   `json:"preserveLostProperties,omitempty"`
}

// MigrationStepResponse is the wire form of one migration step.
type MigrationStepResponse struct {
	Action      string       `json:"action"`
	Property    string       `json:"property,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Default     *class.Value `json:"default,omitempty"`
	Current     *class.Value `json:"current,omitempty"`
	Suggested   *class.Value `json:"suggested,omitempty"`
	FromClass   string       `json:"fromClass,omitempty"`
	ToClass     string       `json:"toClass,omitempty"`
	Description string       `json:"description"`
}

// PlanResponse is the wire form of a migration plan.
type PlanResponse struct {
	Steps             []MigrationStepResponse `json:"steps"`
	Warnings          []string                `json:"warnings,omitempty"`
	RequiresUserInput bool                    `json:"requiresUserInput"`
	CanAutoMigrate    bool                    `json:"canAutoMigrate"`
}

// MissingPropertyResponse names a required property the entity lacks.
type MissingPropertyResponse struct {
	Name             string      `json:"name"`
	SuggestedDefault class.Value `json:"suggestedDefault"`
}

// CompatibilityResponse is the wire form of a compatibility report plus
// its migration plan.
type CompatibilityResponse struct {
	Compatible          bool                      `json:"compatible"`
	Score               float64                   `json:"score"`
	Preserved           map[string]class.Value    `json:"preservedProperties"`
	Lost                map[string]class.Value    `json:"lostProperties"`
	MissingRequired     []MissingPropertyResponse `json:"missingRequiredProperties"`
	EndpointCompatible  bool                      `json:"endpointCompatible"`
	EndpointIssue       string                    `json:"endpointIssue,omitempty"`
	SemanticallyRelated bool                      `json:"semanticallyRelated"`
	SemanticConfidence  float64                   `json:"semanticConfidence"`
	Plan                PlanResponse              `json:"plan"`
}

// SwitchResponse is the response for a committed class switch.
type SwitchResponse struct {
	Entity             *class.Entity          `json:"entity"`
	Report             CompatibilityResponse  `json:"report"`
	AppliedMappings    map[string]class.Value `json:"appliedMappings,omitempty"`
	ArchivedProperties map[string]class.Value `json:"archivedProperties,omitempty"`
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
}

// Error codes
const (
	ErrorCodeClassNotFound     = 40401
	ErrorCodeEntityNotFound    = 40402
	ErrorCodeClassAmbiguous    = 40403
	ErrorCodeClassExists       = 40901
	ErrorCodeClassInUse        = 40902
	ErrorCodeIncompatibleClass = 40903
	ErrorCodeInvalidDefinition = 42201
	ErrorCodeValidationFailed  = 42202
	ErrorCodeClassInactive     = 42203
	ErrorCodeKindMismatch      = 42204
	ErrorCodeInternalError     = 50001
)
