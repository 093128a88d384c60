// Package storage provides storage interfaces and implementations for the
// class registry.
package storage

import (
	"context"
	"errors"

	"github.com/graphops/class-registry/internal/class"
)

// Common errors
var (
	ErrClassNotFound      = errors.New("class not found")
	ErrClassExists        = errors.New("class already exists")
	ErrClassInactive      = errors.New("class is inactive")
	ErrClassInUse         = errors.New("class is referenced by existing entities")
	ErrClassNameAmbiguous = errors.New("class name exists for more than one kind")
	ErrEntityNotFound     = errors.New("entity not found")
	ErrEntityExists       = errors.New("entity already exists")
)

// SchemaStore is the class-definition side of persistence. Classes are
// resolved by ID or by name; names are unique within a kind.
type SchemaStore interface {
	// CreateClass stores a new class definition.
	CreateClass(ctx context.Context, def *class.Definition) error

	// GetClass resolves a class by ID or name. A name held by classes of
	// more than one kind cannot be resolved and returns
	// ErrClassNameAmbiguous.
	GetClass(ctx context.Context, idOrName string) (*class.Definition, error)

	// ListClasses lists classes, optionally filtered by kind. Inactive
	// classes are excluded unless includeInactive is set.
	ListClasses(ctx context.Context, kind class.Kind, includeInactive bool) ([]*class.Definition, error)

	// ReplaceClass replaces a whole class definition. There are no
	// partial patch semantics at this layer.
	ReplaceClass(ctx context.Context, def *class.Definition) error

	// DeactivateClass logically deletes a class by clearing its active
	// flag. Referencing entities keep resolving it.
	DeactivateClass(ctx context.Context, idOrName string) error

	// DeleteClass physically removes a class. Returns ErrClassInUse
	// while any entity still references it.
	DeleteClass(ctx context.Context, idOrName string) error
}

// EntityStore is the entity side of persistence.
type EntityStore interface {
	// CreateEntity stores a new entity.
	CreateEntity(ctx context.Context, entity *class.Entity) error

	// GetEntity retrieves an entity by ID.
	GetEntity(ctx context.Context, id string) (*class.Entity, error)

	// CommitSwitch atomically reassigns an entity's class, replaces its
	// property bag, and appends the archive if one is given. Readers
	// never observe an intermediate state.
	CommitSwitch(ctx context.Context, id string, newClassID string, properties map[string]class.Value, archive *class.PropertyArchive) (*class.Entity, error)
}

// Storage combines both stores with lifecycle management. Database
// backends implement the whole interface; the registry itself only
// depends on the two narrow store interfaces.
type Storage interface {
	SchemaStore
	EntityStore

	// Lifecycle
	Close() error
	IsHealthy(ctx context.Context) bool
}
