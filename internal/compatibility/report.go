// Package compatibility analyzes how an entity's properties survive a
// switch from one class to another.
package compatibility

import (
	"fmt"

	"github.com/graphops/class-registry/internal/class"
)

// MigrationStep is one executable step of a class-switch migration.
// The concrete types form a closed set: ChangeClass, KeepProperty,
// DropProperty, AddRequiredProperty, and RemapValue.
type MigrationStep interface {
	migrationStep()

	// Describe renders the step for plans and logs.
	Describe() string
}

// ChangeClass records the class reassignment itself. Always the first
// step of a plan.
type ChangeClass struct {
	From string
	To   string
}

// KeepProperty carries a property over unchanged.
type KeepProperty struct {
	Name string
}

// DropProperty removes a property that does not validate under the
// target class.
type DropProperty struct {
	Name   string
	Reason string
}

// AddRequiredProperty fills a property the target class requires but the
// entity does not have.
type AddRequiredProperty struct {
	Name    string
	Default class.Value
}

// RemapValue flags a value the system cannot carry over on its own: the
// target class defines the property but the current value needs a
// replacement only the caller can choose. The only step kind that
// requires user input.
type RemapValue struct {
	Name      string
	Current   class.Value
	Suggested class.Value
}

func (ChangeClass) migrationStep()         {}
func (KeepProperty) migrationStep()        {}
func (DropProperty) migrationStep()        {}
func (AddRequiredProperty) migrationStep() {}
func (RemapValue) migrationStep()          {}

// Describe implements MigrationStep.
func (s ChangeClass) Describe() string {
	return fmt.Sprintf("change class from %s to %s", s.From, s.To)
}

// Describe implements MigrationStep.
func (s KeepProperty) Describe() string {
	return fmt.Sprintf("keep property %s", s.Name)
}

// Describe implements MigrationStep.
func (s DropProperty) Describe() string {
	return fmt.Sprintf("drop property %s: %s", s.Name, s.Reason)
}

// Describe implements MigrationStep.
func (s AddRequiredProperty) Describe() string {
	return fmt.Sprintf("add required property %s with default %s", s.Name, s.Default)
}

// Describe implements MigrationStep.
func (s RemapValue) Describe() string {
	return fmt.Sprintf("remap property %s from %s to %s", s.Name, s.Current, s.Suggested)
}

// MissingProperty names a target-required property the entity lacks,
// with the default the planner suggests for it.
type MissingProperty struct {
	Name             string      `json:"name"`
	SuggestedDefault class.Value `json:"suggestedDefault"`
}

// Report is the outcome of one compatibility analysis. It is ephemeral:
// recomputed on every analysis call and never persisted.
type Report struct {
	Compatible      bool
	Preserved       map[string]class.Value
	Lost            map[string]class.Value
	MissingRequired []MissingProperty
	Steps           []MigrationStep
	Score           float64

	// Relationship checks. Node analyses leave these at their
	// compatible defaults.
	EndpointCompatible  bool
	EndpointIssue       string
	SemanticallyRelated bool
	SemanticConfidence  float64
}

// RequiresUserInput reports whether any step needs a caller-chosen value.
func (r *Report) RequiresUserInput() bool {
	for _, step := range r.Steps {
		if _, ok := step.(RemapValue); ok {
			return true
		}
	}
	return false
}
