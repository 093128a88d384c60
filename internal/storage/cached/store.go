// Package cached wraps a storage backend with an LRU cache for resolved
// class definitions. Class reads dominate the workload: every entity
// create, validation, and compatibility analysis resolves at least one
// class, while class mutations are rare.
package cached

import (
	"context"
	"sync"
	"time"

	"github.com/graphops/class-registry/internal/class"
	"github.com/graphops/class-registry/internal/storage"
)

// Store decorates a storage backend with class-definition caching. Any
// class mutation clears the whole cache; mutations are rare enough that
// fine-grained invalidation is not worth the bookkeeping.
type Store struct {
	inner storage.Storage
	cache *lru
}

// NewStore wraps the given backend. Capacity bounds the number of cached
// definitions; ttl bounds staleness across replicas sharing a database.
func NewStore(inner storage.Storage, capacity int, ttl time.Duration) *Store {
	return &Store{
		inner: inner,
		cache: newLRU(capacity, ttl),
	}
}

// CreateClass stores a new class definition.
func (s *Store) CreateClass(ctx context.Context, def *class.Definition) error {
	if err := s.inner.CreateClass(ctx, def); err != nil {
		return err
	}
	s.cache.clear()
	return nil
}

// GetClass resolves a class by ID or name, serving repeat resolutions
// from the cache.
func (s *Store) GetClass(ctx context.Context, idOrName string) (*class.Definition, error) {
	if def, ok := s.cache.get(idOrName); ok {
		return def.Clone(), nil
	}
	def, err := s.inner.GetClass(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	s.cache.set(idOrName, def.Clone())
	if idOrName != def.ID {
		s.cache.set(def.ID, def.Clone())
	}
	return def, nil
}

// ListClasses lists classes, always from the backend: list results are
// not cached.
func (s *Store) ListClasses(ctx context.Context, kind class.Kind, includeInactive bool) ([]*class.Definition, error) {
	return s.inner.ListClasses(ctx, kind, includeInactive)
}

// ReplaceClass replaces a whole class definition.
func (s *Store) ReplaceClass(ctx context.Context, def *class.Definition) error {
	if err := s.inner.ReplaceClass(ctx, def); err != nil {
		return err
	}
	s.cache.clear()
	return nil
}

// DeactivateClass logically deletes a class.
func (s *Store) DeactivateClass(ctx context.Context, idOrName string) error {
	if err := s.inner.DeactivateClass(ctx, idOrName); err != nil {
		return err
	}
	s.cache.clear()
	return nil
}

// DeleteClass physically removes a class.
func (s *Store) DeleteClass(ctx context.Context, idOrName string) error {
	if err := s.inner.DeleteClass(ctx, idOrName); err != nil {
		return err
	}
	s.cache.clear()
	return nil
}

// CreateEntity stores a new entity.
func (s *Store) CreateEntity(ctx context.Context, entity *class.Entity) error {
	return s.inner.CreateEntity(ctx, entity)
}

// GetEntity retrieves an entity by ID.
func (s *Store) GetEntity(ctx context.Context, id string) (*class.Entity, error) {
	return s.inner.GetEntity(ctx, id)
}

// CommitSwitch atomically applies a class switch to an entity.
func (s *Store) CommitSwitch(ctx context.Context, id string, newClassID string, properties map[string]class.Value, archive *class.PropertyArchive) (*class.Entity, error) {
	return s.inner.CommitSwitch(ctx, id, newClassID, properties, archive)
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.inner.Close()
}

// IsHealthy reports whether the underlying backend is reachable.
func (s *Store) IsHealthy(ctx context.Context) bool {
	return s.inner.IsHealthy(ctx)
}

// lru is a small LRU cache of class definitions with per-item TTL.
type lru struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex
	items    map[string]*lruItem
	order    []string // least recently used first
}

type lruItem struct {
	def       *class.Definition
	expiresAt time.Time
}

func newLRU(capacity int, ttl time.Duration) *lru {
	return &lru{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruItem),
		order:    make([]string, 0, capacity),
	}
}

func (c *lru) get(key string) (*class.Definition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(item.expiresAt) {
		delete(c.items, key)
		c.removeFromOrder(key)
		return nil, false
	}
	c.moveToEnd(key)
	return item.def, true
}

func (c *lru) set(key string, def *class.Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		c.items[key] = &lruItem{def: def, expiresAt: time.Now().Add(c.ttl)}
		c.moveToEnd(key)
		return
	}

	if len(c.items) >= c.capacity && c.capacity > 0 {
		c.evict()
	}

	c.items[key] = &lruItem{def: def, expiresAt: time.Now().Add(c.ttl)}
	c.order = append(c.order, key)
}

func (c *lru) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*lruItem)
	c.order = c.order[:0]
}

func (c *lru) evict() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.items, oldest)
}

func (c *lru) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *lru) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Ensure Store implements storage.Storage
var _ storage.Storage = (*Store)(nil)
