// Package override keeps user-forced field values that are waiting for the server to
// confirm them. Entries mask fetched values until cleared; they are never a second
// source of truth.
package override

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"bizdash/internal/core"
	"bizdash/internal/kvstore"
	"bizdash/internal/log"
)

const (
	DefaultNamespace = "projectProgressOverrides"
	DefaultField     = core.FieldProgress
)

// Cache is one namespaced id -> value map persisted as a single JSON blob.
type Cache struct {
	store     kvstore.Store
	namespace string
	field     string
	idKeys    []string
	logger    *log.Logger

	mu sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithNamespace sets the kv key the blob is stored under.
func WithNamespace(ns string) Option {
	return func(c *Cache) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

// WithField sets the entity field the overrides force.
func WithField(field string) Option {
	return func(c *Cache) {
		if field != "" {
			c.field = field
		}
	}
}

// WithIDKeys sets the identifier chain used to match entities.
func WithIDKeys(keys ...string) Option {
	return func(c *Cache) { c.idKeys = keys }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(store kvstore.Store, opts ...Option) *Cache {
	c := &Cache{
		store:     store,
		namespace: DefaultNamespace,
		field:     DefaultField,
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent(log.ComponentOverride)
	return c
}

func (c *Cache) Namespace() string { return c.namespace }

func (c *Cache) Field() string { return c.field }

// Read returns the full map. Absent, unreadable or corrupt storage yields an empty map.
func (c *Cache) Read(ctx context.Context) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(ctx)
}

func (c *Cache) read(ctx context.Context) map[string]any {
	raw, ok, err := c.store.Get(ctx, c.namespace)
	if err != nil {
		c.logger.WarnContext(ctx, "Override store unreadable, treating as empty", log.FieldError, err.Error())
		return map[string]any{}
	}
	if !ok || raw == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
		c.logger.WarnContext(ctx, "Corrupt override blob, treating as empty", log.FieldKey, c.namespace)
		return map[string]any{}
	}
	return m
}

func (c *Cache) write(ctx context.Context, m map[string]any) error {
	if len(m) == 0 {
		return c.store.Remove(ctx, c.namespace)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.namespace, string(b))
}

// Set forces value for id. A nil value deletes the entry.
func (c *Cache) Set(ctx context.Context, id string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.read(ctx)
	if value == nil {
		if _, ok := m[id]; !ok {
			return nil
		}
		delete(m, id)
	} else {
		m[id] = value
	}
	return c.write(ctx, m)
}

// Clear removes the entry for id.
func (c *Cache) Clear(ctx context.Context, id string) error {
	return c.Set(ctx, id, nil)
}

// ClearAll drops the whole namespace.
func (c *Cache) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Remove(ctx, c.namespace)
}

// Get returns the forced value for id.
func (c *Cache) Get(ctx context.Context, id string) (any, bool) {
	v, ok := c.Read(ctx)[id]
	return v, ok
}

// IDs lists the overridden ids in sorted order.
func (c *Cache) IDs(ctx context.Context) []string {
	m := c.Read(ctx)
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Overlay returns a copy of list with overridden values applied to matching ids.
// Entities without an entry are copied unchanged; list itself is not modified.
func (c *Cache) Overlay(ctx context.Context, list []core.Entity) []core.Entity {
	m := c.Read(ctx)
	out := make([]core.Entity, len(list))
	for i, e := range list {
		v, ok := m[e.ID(c.idKeys...)]
		if !ok {
			out[i] = e.Clone()
			continue
		}
		out[i] = e.With(map[string]any{c.field: v})
	}
	return out
}
