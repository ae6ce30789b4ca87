// Package state holds the client-side entity lists, one per scope. Every read hands
// out deep copies so callers can never mutate shared state in place.
package state

import (
	"errors"
	"time"

	"bizdash/internal/cache"
	"bizdash/internal/core"
)

// ErrNotFound is returned when the scope is not loaded or the id is not in it.
var ErrNotFound = errors.New("entity not found")

// Store keeps scope lists in an LRU; scopes not touched for the TTL are dropped.
type Store struct {
	lists *cache.LRUCache[[]core.Entity]
}

func NewStore(maxScopes int, ttl time.Duration) *Store {
	return &Store{lists: cache.NewLRUCache[[]core.Entity](maxScopes, ttl)}
}

// Cleaner exposes the underlying cache to a cache.Manager.
func (s *Store) Cleaner() cache.Cleaner { return s.lists }

// OnEvict is called with the scope key whenever a list ages out.
func (s *Store) OnEvict(fn func(scopeKey string)) { s.lists.OnEvict(fn) }

// Snapshot returns a deep copy of the scope's list.
func (s *Store) Snapshot(scope core.Scope) ([]core.Entity, bool) {
	list, ok := s.lists.Get(scope.Key())
	if !ok {
		return nil, false
	}
	return core.CloneList(list), true
}

// Loaded reports whether the scope currently has a list.
func (s *Store) Loaded(scope core.Scope) bool {
	_, ok := s.lists.Get(scope.Key())
	return ok
}

// LoadedKeys lists the scope keys currently held.
func (s *Store) LoadedKeys() []string {
	return s.lists.Keys()
}

// Replace installs a freshly fetched list.
func (s *Store) Replace(scope core.Scope, list []core.Entity) {
	s.lists.Set(scope.Key(), core.CloneList(list))
}

// Get returns a copy of one entity.
func (s *Store) Get(scope core.Scope, id string) (core.Entity, error) {
	list, ok := s.lists.Get(scope.Key())
	if !ok {
		return nil, ErrNotFound
	}
	i := core.IndexOf(list, id, scope.Resource.IDKeys...)
	if i < 0 {
		return nil, ErrNotFound
	}
	return list[i].Clone(), nil
}

// Apply overwrites fields of entity id and returns the entity as it was before.
func (s *Store) Apply(scope core.Scope, id string, patch map[string]any) (core.Entity, error) {
	var before core.Entity
	_, ok := s.update(scope, func(list []core.Entity) ([]core.Entity, bool) {
		i := core.IndexOf(list, id, scope.Resource.IDKeys...)
		if i < 0 {
			return nil, false
		}
		before = list[i].Clone()
		next := append([]core.Entity(nil), list...)
		next[i] = list[i].With(patch)
		return next, true
	})
	if !ok {
		return nil, ErrNotFound
	}
	return before, nil
}

// Merge overlays server-returned fields onto entity id. Merge is Apply under a name
// that says where the fields came from.
func (s *Store) Merge(scope core.Scope, id string, fields map[string]any) error {
	_, err := s.Apply(scope, id, fields)
	return err
}

// Remove takes entity id out of the list and returns it with its position.
func (s *Store) Remove(scope core.Scope, id string) (core.Entity, int, error) {
	var removed core.Entity
	index := -1
	_, ok := s.update(scope, func(list []core.Entity) ([]core.Entity, bool) {
		i := core.IndexOf(list, id, scope.Resource.IDKeys...)
		if i < 0 {
			return nil, false
		}
		removed, index = list[i].Clone(), i
		next := make([]core.Entity, 0, len(list)-1)
		next = append(next, list[:i]...)
		return append(next, list[i+1:]...), true
	})
	if !ok {
		return nil, -1, ErrNotFound
	}
	return removed, index, nil
}

// RestoreEntity puts a previous version of an entity back. An entity still in the list
// is replaced in place; a removed one is reinserted at index (clamped to the list).
// Other entities are left alone so concurrent mutations on them survive a rollback.
func (s *Store) RestoreEntity(scope core.Scope, e core.Entity, index int) {
	id := e.ID(scope.Resource.IDKeys...)
	s.update(scope, func(list []core.Entity) ([]core.Entity, bool) {
		next := append([]core.Entity(nil), list...)
		if i := core.IndexOf(next, id, scope.Resource.IDKeys...); i >= 0 {
			next[i] = e.Clone()
			return next, true
		}
		if index < 0 || index > len(next) {
			index = len(next)
		}
		next = append(next, nil)
		copy(next[index+1:], next[index:])
		next[index] = e.Clone()
		return next, true
	})
}

// Forget drops the scope's list.
func (s *Store) Forget(scope core.Scope) {
	s.lists.Delete(scope.Key())
}

func (s *Store) update(scope core.Scope, fn func([]core.Entity) ([]core.Entity, bool)) ([]core.Entity, bool) {
	return s.lists.Update(scope.Key(), func(cur []core.Entity, exists bool) ([]core.Entity, bool) {
		if !exists {
			return nil, false
		}
		return fn(cur)
	})
}
