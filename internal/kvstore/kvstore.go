// Package kvstore is the small persistent key/value capability the session token
// and the override cache live in.
package kvstore

import (
	"context"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// Store is a string key/value store. Get reports whether the key exists.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Memory is an in-process Store. Entries never expire.
type Memory struct {
	c *gocache.Cache
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, 0)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.c.Set(key, value, gocache.NoExpiration)
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

// Keys lists the stored keys. Order is unspecified.
func (m *Memory) Keys() []string {
	items := m.c.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	return keys
}

// Recorder wraps a Store and counts calls per key. Tests use it to assert what a
// component persisted.
type Recorder struct {
	Store

	mu      sync.Mutex
	sets    map[string]int
	removes map[string]int
}

func NewRecorder(s Store) *Recorder {
	return &Recorder{Store: s, sets: map[string]int{}, removes: map[string]int{}}
}

func (r *Recorder) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	r.sets[key]++
	r.mu.Unlock()
	return r.Store.Set(ctx, key, value)
}

func (r *Recorder) Remove(ctx context.Context, key string) error {
	r.mu.Lock()
	r.removes[key]++
	r.mu.Unlock()
	return r.Store.Remove(ctx, key)
}

func (r *Recorder) Sets(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sets[key]
}

func (r *Recorder) Removes(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removes[key]
}
