// Package syncer loads scope lists from the backend into local state.
package syncer

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"bizdash/internal/core"
	"bizdash/internal/log"
	"bizdash/internal/normalize"
	"bizdash/internal/override"
	"bizdash/internal/remote"
	"bizdash/internal/state"
)

// Fetcher issues GET requests. *remote.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, path string, query url.Values) (*remote.Response, error)
}

// Ledger remembers which scopes were loaded.
type Ledger interface {
	RecordScopeLoad(ctx context.Context, scopeKey string, count int) error
}

// Syncer fetches, normalizes and overlays scope lists.
type Syncer struct {
	fetcher   Fetcher
	state     *state.Store
	overrides map[string]*override.Cache
	ledger    Ledger
	logger    *log.Logger
	group     singleflight.Group
	parallel  int

	// Loads are numbered when they start. A load only installs its list when no
	// later-started load has installed one already.
	mu        sync.Mutex
	started   map[string]uint64
	installed map[string]uint64
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithOverride overlays cache onto every list of resource.
func WithOverride(resource string, cache *override.Cache) Option {
	return func(s *Syncer) {
		if cache != nil {
			s.overrides[resource] = cache
		}
	}
}

func WithLedger(l Ledger) Option {
	return func(s *Syncer) { s.ledger = l }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithParallelism bounds concurrent fetches in LoadAll.
func WithParallelism(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.parallel = n
		}
	}
}

func New(fetcher Fetcher, st *state.Store, opts ...Option) *Syncer {
	s := &Syncer{
		fetcher:   fetcher,
		state:     st,
		overrides: make(map[string]*override.Cache),
		logger:    log.Discard(),
		parallel:  4,
		started:   make(map[string]uint64),
		installed: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentSync)
	return s
}

// Load fetches the scope's list, keeps records that carry an identifier, overlays
// pending overrides and installs the result. Undecodable or unrecognized bodies
// load as an empty list.
func (s *Syncer) Load(ctx context.Context, scope core.Scope) ([]core.Entity, error) {
	ticket := s.begin(scope.Key())
	resp, err := s.fetcher.Get(ctx, scope.ListPath(), nil)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", scope, err)
	}

	decoded := resp.Decoded()
	if decoded == nil && !resp.Empty() {
		s.logger.WarnContext(ctx, "Undecodable list response, showing empty list", log.FieldScope, scope.Key())
	}

	list := core.Entities(normalize.List(decoded, scope.Resource.ListKeys...), scope.Resource.IDKeys...)
	if oc, ok := s.overrides[scope.Resource.Name]; ok {
		list = oc.Overlay(ctx, list)
	}
	if !s.install(scope, ticket, list) {
		s.logger.DebugContext(ctx, "Discarding list superseded by a newer load", log.FieldScope, scope.Key())
		current, _ := s.state.Snapshot(scope)
		return current, nil
	}

	if s.ledger != nil {
		if err := s.ledger.RecordScopeLoad(ctx, scope.Key(), len(list)); err != nil {
			s.logger.DebugContext(ctx, "Failed to record scope load", log.FieldScope, scope.Key(), log.FieldError, err.Error())
		}
	}

	s.logger.DebugContext(ctx, "Scope loaded", log.FieldScope, scope.Key(), log.FieldCount, len(list))
	return list, nil
}

func (s *Syncer) begin(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started[key]++
	return s.started[key]
}

func (s *Syncer) install(scope core.Scope, ticket uint64, list []core.Entity) bool {
	key := scope.Key()
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket < s.installed[key] {
		return false
	}
	s.installed[key] = ticket
	s.state.Replace(scope, list)
	return true
}

// Reload fetches scope with a request of its own, never joining one already in
// flight. Use it when the list must reflect a change the caller just made.
func (s *Syncer) Reload(ctx context.Context, scope core.Scope) error {
	_, err := s.Load(ctx, scope)
	return err
}

// Refresh reloads scope. Concurrent refreshes of one scope share a single request.
func (s *Syncer) Refresh(ctx context.Context, scope core.Scope) error {
	_, err, _ := s.group.Do(scope.Key(), func() (any, error) {
		return s.Load(ctx, scope)
	})
	return err
}

// Ensure returns the scope's list, loading it when it is not held yet.
func (s *Syncer) Ensure(ctx context.Context, scope core.Scope) ([]core.Entity, error) {
	if list, ok := s.state.Snapshot(scope); ok {
		return list, nil
	}
	if err := s.Refresh(ctx, scope); err != nil {
		return nil, err
	}
	list, _ := s.state.Snapshot(scope)
	return list, nil
}

// LoadAll loads several scopes concurrently. The first failure cancels the rest.
func (s *Syncer) LoadAll(ctx context.Context, scopes ...core.Scope) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for _, scope := range scopes {
		g.Go(func() error {
			return s.Refresh(ctx, scope)
		})
	}
	return g.Wait()
}

// Object fetches an object-shaped endpoint such as stats. Responses lacking every
// expected field yield an empty map.
func (s *Syncer) Object(ctx context.Context, path string, query url.Values, expected ...string) (map[string]any, error) {
	resp, err := s.fetcher.Get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return normalize.Object(resp.Decoded(), expected...), nil
}

// Entity fetches GET /{res}/{id}.
func (s *Syncer) Entity(ctx context.Context, resource core.Resource, id string) (core.Entity, error) {
	resp, err := s.fetcher.Get(ctx, resource.EntityPath(id), nil)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", resource.Name, id, err)
	}
	rec, ok := normalize.Record(resp.Decoded(), resource.IDKeys...)
	if !ok {
		return nil, fmt.Errorf("get %s %s: %w", resource.Name, id, state.ErrNotFound)
	}
	return core.Entity(rec), nil
}
