// Package registry provides the core class registry service: class and
// entity lifecycle, property validation, compatibility analysis, and the
// transactional class switch.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/graphops/class-registry/internal/class"
	"github.com/graphops/class-registry/internal/compatibility"
	"github.com/graphops/class-registry/internal/migration"
	"github.com/graphops/class-registry/internal/storage"
)

// Registry is the core class registry service. Storage collaborators are
// injected at construction; the service holds no process-wide state.
type Registry struct {
	schemas  storage.SchemaStore
	entities storage.EntityStore
	analyzer *compatibility.Analyzer
}

// New creates a new Registry.
func New(schemas storage.SchemaStore, entities storage.EntityStore, analyzer *compatibility.Analyzer) *Registry {
	return &Registry{
		schemas:  schemas,
		entities: entities,
		analyzer: analyzer,
	}
}

// RegisterClass validates and stores a new class definition. A missing ID
// is assigned; new classes are active unless explicitly created inactive
// via replace.
func (r *Registry) RegisterClass(ctx context.Context, def *class.Definition) (*class.Definition, error) {
	def.Normalize()
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid class definition: %w", err)
	}
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	def.Active = true

	if err := r.schemas.CreateClass(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// GetClass resolves a class by ID or name.
func (r *Registry) GetClass(ctx context.Context, idOrName string) (*class.Definition, error) {
	return r.schemas.GetClass(ctx, idOrName)
}

// ListClasses lists classes, optionally filtered by kind.
func (r *Registry) ListClasses(ctx context.Context, kind class.Kind, includeInactive bool) ([]*class.Definition, error) {
	return r.schemas.ListClasses(ctx, kind, includeInactive)
}

// ReplaceClass replaces a whole class definition. The caller owns any
// merge policy; this layer has no partial patch semantics.
func (r *Registry) ReplaceClass(ctx context.Context, idOrName string, def *class.Definition) (*class.Definition, error) {
	existing, err := r.schemas.GetClass(ctx, idOrName)
	if err != nil {
		return nil, err
	}

	def.ID = existing.ID
	def.Normalize()
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid class definition: %w", err)
	}
	if err := r.schemas.ReplaceClass(ctx, def); err != nil {
		return nil, err
	}
	return r.schemas.GetClass(ctx, def.ID)
}

// ApplyClass creates a class or replaces the definition registered under
// the same name and kind. Used by the seed loader.
func (r *Registry) ApplyClass(ctx context.Context, def *class.Definition) (*class.Definition, error) {
	def.Normalize()
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid class definition: %w", err)
	}

	existing, err := r.schemas.GetClass(ctx, def.Name)
	switch {
	case err == nil && existing.Kind == def.Kind:
		def.ID = existing.ID
		def.Active = true
		if err := r.schemas.ReplaceClass(ctx, def); err != nil {
			return nil, err
		}
		return r.schemas.GetClass(ctx, def.ID)
	case err == nil || isNotFound(err):
		return r.RegisterClass(ctx, def)
	default:
		return nil, err
	}
}

// DeactivateClass logically deletes a class.
func (r *Registry) DeactivateClass(ctx context.Context, idOrName string) error {
	return r.schemas.DeactivateClass(ctx, idOrName)
}

// DeleteClass physically removes a class; blocked while entities
// reference it.
func (r *Registry) DeleteClass(ctx context.Context, idOrName string) error {
	return r.schemas.DeleteClass(ctx, idOrName)
}

// CreateEntity validates an entity's properties against its class and
// stores it. The class must exist and be active.
func (r *Registry) CreateEntity(ctx context.Context, entity *class.Entity) (*class.Entity, error) {
	def, err := r.schemas.GetClass(ctx, entity.ClassID)
	if err != nil {
		return nil, err
	}
	if !def.Active {
		return nil, storage.ErrClassInactive
	}
	entity.ClassID = def.ID
	entity.Kind = def.Kind

	if result := class.Validate(def, entity.Properties); !result.Valid {
		return nil, &ValidationError{Errors: result.Errors}
	}

	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if err := r.entities.CreateEntity(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// GetEntity retrieves an entity by ID.
func (r *Registry) GetEntity(ctx context.Context, id string) (*class.Entity, error) {
	return r.entities.GetEntity(ctx, id)
}

// ValidateProperties validates a property bag against a class resolved by
// ID or name. Rule violations are data, not an error.
func (r *Registry) ValidateProperties(ctx context.Context, classIDOrName string, props map[string]class.Value) (class.ValidationResult, error) {
	def, err := r.schemas.GetClass(ctx, classIDOrName)
	if err != nil {
		return class.ValidationResult{}, err
	}
	return class.Validate(def, props), nil
}

// AnalyzeCompatibility analyzes how an entity's properties would survive a
// switch to the target class and plans the migration. The analysis is
// pure: nothing is mutated.
func (r *Registry) AnalyzeCompatibility(ctx context.Context, entityID, targetIDOrName string) (*compatibility.Report, *migration.Plan, error) {
	entity, current, target, err := r.fetchSwitchInputs(ctx, entityID, targetIDOrName)
	if err != nil {
		return nil, nil, err
	}

	report := r.analyzer.AnalyzeEntity(entity, current, target)
	plan := migration.BuildPlan(report, current, target)
	return report, plan, nil
}

// SwitchResult is the outcome of a committed class switch.
type SwitchResult struct {
	Entity             *class.Entity
	Report             *compatibility.Report
	Plan               *migration.Plan
	AppliedMappings    map[string]class.Value
	ArchivedProperties map[string]class.Value
}

// SwitchClass switches an entity to the target class.
//
// The merged property bag starts from the analyzer's preserved set, is
// overlaid with the caller's mappings (caller intent always wins), and
// any still-missing required property is filled with its suggested
// default. Lost properties are archived when preserveLost is set. The
// merged bag is re-validated in full against the target class before
// anything is persisted; the commit itself is a single atomic store
// operation.
func (r *Registry) SwitchClass(ctx context.Context, entityID, targetIDOrName string, mappings map[string]class.Value, preserveLost bool) (*SwitchResult, error) {
	entity, current, target, err := r.fetchSwitchInputs(ctx, entityID, targetIDOrName)
	if err != nil {
		return nil, err
	}

	report := r.analyzer.AnalyzeEntity(entity, current, target)
	if !report.EndpointCompatible {
		return nil, fmt.Errorf("%w: %s", ErrIncompatibleClass, report.EndpointIssue)
	}
	plan := migration.BuildPlan(report, current, target)

	newProps := class.CloneProperties(report.Preserved)
	if newProps == nil {
		newProps = make(map[string]class.Value)
	}
	applied := make(map[string]class.Value, len(mappings))
	for name, value := range mappings {
		newProps[name] = value
		applied[name] = value
	}
	for _, missing := range report.MissingRequired {
		if _, ok := newProps[missing.Name]; ok {
			continue
		}
		newProps[missing.Name] = missing.SuggestedDefault
	}

	// Defense in depth: the analyzer's per-property check is necessary
	// but not sufficient once user mappings are layered in.
	if result := class.Validate(target, newProps); !result.Valid {
		return nil, &ValidationError{Errors: result.Errors}
	}

	var archive *class.PropertyArchive
	if preserveLost && len(report.Lost) > 0 {
		archive = &class.PropertyArchive{
			SourceClass: current.Name,
			ArchivedAt:  time.Now().UTC(),
			Properties:  class.CloneProperties(report.Lost),
		}
	}

	updated, err := r.entities.CommitSwitch(ctx, entity.ID, target.ID, newProps, archive)
	if err != nil {
		return nil, err
	}

	result := &SwitchResult{
		Entity:          updated,
		Report:          report,
		Plan:            plan,
		AppliedMappings: applied,
	}
	if archive != nil {
		result.ArchivedProperties = archive.Properties
	}
	return result, nil
}

// IsHealthy reports whether the backing storage is reachable.
func (r *Registry) IsHealthy(ctx context.Context) bool {
	if s, ok := r.schemas.(storage.Storage); ok {
		return s.IsHealthy(ctx)
	}
	return true
}

// fetchSwitchInputs resolves the entity, its current class, and the
// target class, enforcing that the target matches the entity's kind and
// is active.
func (r *Registry) fetchSwitchInputs(ctx context.Context, entityID, targetIDOrName string) (*class.Entity, *class.Definition, *class.Definition, error) {
	entity, err := r.entities.GetEntity(ctx, entityID)
	if err != nil {
		return nil, nil, nil, err
	}
	current, err := r.schemas.GetClass(ctx, entity.ClassID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("current class: %w", err)
	}
	target, err := r.schemas.GetClass(ctx, targetIDOrName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("target class: %w", err)
	}
	if !target.Active {
		return nil, nil, nil, storage.ErrClassInactive
	}
	if target.Kind != entity.Kind {
		return nil, nil, nil, fmt.Errorf("%w: entity is %s, class %s is %s",
			ErrKindMismatch, entity.Kind, target.Name, target.Kind)
	}
	return entity, current, target, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrClassNotFound)
}
