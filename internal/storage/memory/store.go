// Package memory provides an in-memory storage implementation.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/graphops/class-registry/internal/class"
	"github.com/graphops/class-registry/internal/storage"
)

// Store implements the storage.Storage interface using in-memory data
// structures. All reads return deep copies so callers can never mutate
// stored state through a returned pointer.
type Store struct {
	mu sync.RWMutex

	// classes stores class definitions by ID
	classes map[string]*class.Definition

	// classNames maps a class name to the IDs holding it, by kind
	classNames map[string]map[class.Kind]string

	// entities stores entities by ID
	entities map[string]*class.Entity

	// entitiesByClass counts referencing entities per class ID
	entitiesByClass map[string]int
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		classes:         make(map[string]*class.Definition),
		classNames:      make(map[string]map[class.Kind]string),
		entities:        make(map[string]*class.Entity),
		entitiesByClass: make(map[string]int),
	}
}

// CreateClass stores a new class definition.
func (s *Store) CreateClass(ctx context.Context, def *class.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.classes[def.ID]; exists {
		return storage.ErrClassExists
	}
	if byKind, ok := s.classNames[def.Name]; ok {
		if _, taken := byKind[def.Kind]; taken {
			return storage.ErrClassExists
		}
	}

	now := time.Now().UTC()
	stored := def.Clone()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	def.CreatedAt = now
	def.UpdatedAt = now

	s.classes[stored.ID] = stored
	byKind := s.classNames[stored.Name]
	if byKind == nil {
		byKind = make(map[class.Kind]string)
		s.classNames[stored.Name] = byKind
	}
	byKind[stored.Kind] = stored.ID

	return nil
}

// GetClass resolves a class by ID or name.
func (s *Store) GetClass(ctx context.Context, idOrName string) (*class.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, err := s.resolveClass(idOrName)
	if err != nil {
		return nil, err
	}
	return def.Clone(), nil
}

// resolveClass looks a class up by ID first, then by name. Caller holds
// the lock.
func (s *Store) resolveClass(idOrName string) (*class.Definition, error) {
	if def, ok := s.classes[idOrName]; ok {
		return def, nil
	}
	byKind, ok := s.classNames[idOrName]
	if !ok || len(byKind) == 0 {
		return nil, storage.ErrClassNotFound
	}
	if len(byKind) > 1 {
		return nil, storage.ErrClassNameAmbiguous
	}
	for _, id := range byKind {
		return s.classes[id], nil
	}
	return nil, storage.ErrClassNotFound
}

// ListClasses lists classes, optionally filtered by kind.
func (s *Store) ListClasses(ctx context.Context, kind class.Kind, includeInactive bool) ([]*class.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*class.Definition
	for _, def := range s.classes {
		if kind != "" && def.Kind != kind {
			continue
		}
		if !includeInactive && !def.Active {
			continue
		}
		out = append(out, def.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ReplaceClass replaces a whole class definition.
func (s *Store) ReplaceClass(ctx context.Context, def *class.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.classes[def.ID]
	if !ok {
		return storage.ErrClassNotFound
	}

	stored := def.Clone()
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()

	if existing.Name != stored.Name || existing.Kind != stored.Kind {
		if byKind, taken := s.classNames[stored.Name]; taken {
			if id, held := byKind[stored.Kind]; held && id != stored.ID {
				return storage.ErrClassExists
			}
		}
		s.removeNameIndex(existing)
		byKind := s.classNames[stored.Name]
		if byKind == nil {
			byKind = make(map[class.Kind]string)
			s.classNames[stored.Name] = byKind
		}
		byKind[stored.Kind] = stored.ID
	}

	s.classes[stored.ID] = stored
	return nil
}

// DeactivateClass clears a class's active flag.
func (s *Store) DeactivateClass(ctx context.Context, idOrName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, err := s.resolveClass(idOrName)
	if err != nil {
		return err
	}
	def.Active = false
	def.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteClass physically removes a class unless entities reference it.
func (s *Store) DeleteClass(ctx context.Context, idOrName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, err := s.resolveClass(idOrName)
	if err != nil {
		return err
	}
	if s.entitiesByClass[def.ID] > 0 {
		return storage.ErrClassInUse
	}

	delete(s.classes, def.ID)
	s.removeNameIndex(def)
	return nil
}

func (s *Store) removeNameIndex(def *class.Definition) {
	if byKind, ok := s.classNames[def.Name]; ok {
		delete(byKind, def.Kind)
		if len(byKind) == 0 {
			delete(s.classNames, def.Name)
		}
	}
}

// CreateEntity stores a new entity.
func (s *Store) CreateEntity(ctx context.Context, entity *class.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entities[entity.ID]; exists {
		return storage.ErrEntityExists
	}
	if _, ok := s.classes[entity.ClassID]; !ok {
		return storage.ErrClassNotFound
	}

	now := time.Now().UTC()
	stored := entity.Clone()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	entity.CreatedAt = now
	entity.UpdatedAt = now

	s.entities[stored.ID] = stored
	s.entitiesByClass[stored.ClassID]++
	return nil
}

// GetEntity retrieves an entity by ID.
func (s *Store) GetEntity(ctx context.Context, id string) (*class.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.entities[id]
	if !ok {
		return nil, storage.ErrEntityNotFound
	}
	return entity.Clone(), nil
}

// CommitSwitch atomically reassigns an entity's class, replaces its
// properties, and appends the archive. The whole mutation happens under
// one write lock, so readers observe either the old entity or the new
// one, never a mix.
func (s *Store) CommitSwitch(ctx context.Context, id string, newClassID string, properties map[string]class.Value, archive *class.PropertyArchive) (*class.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[id]
	if !ok {
		return nil, storage.ErrEntityNotFound
	}
	if _, ok := s.classes[newClassID]; !ok {
		return nil, storage.ErrClassNotFound
	}

	s.entitiesByClass[entity.ClassID]--
	if s.entitiesByClass[entity.ClassID] <= 0 {
		delete(s.entitiesByClass, entity.ClassID)
	}

	entity.ClassID = newClassID
	entity.Properties = class.CloneProperties(properties)
	if archive != nil {
		entity.Archives = append(entity.Archives, class.PropertyArchive{
			SourceClass: archive.SourceClass,
			ArchivedAt:  archive.ArchivedAt,
			Properties:  class.CloneProperties(archive.Properties),
		})
	}
	entity.UpdatedAt = time.Now().UTC()

	s.entitiesByClass[newClassID]++
	return entity.Clone(), nil
}

// Close implements storage.Storage. In-memory stores hold no resources.
func (s *Store) Close() error {
	return nil
}

// IsHealthy implements storage.Storage.
func (s *Store) IsHealthy(ctx context.Context) bool {
	return true
}
