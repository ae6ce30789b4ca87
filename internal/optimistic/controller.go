// Package optimistic applies user edits to local state immediately and reconciles
// them with the backend afterwards.
//
// A mutation is applied locally, optionally pinned in the override cache, and then
// sent. A rejected request restores the entity exactly as it was. An accepted one
// either merges the entity the server echoed back or, when the reply carries none,
// refetches the whole scope so server-computed values win.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bizdash/internal/core"
	"bizdash/internal/log"
	"bizdash/internal/normalize"
	"bizdash/internal/override"
	"bizdash/internal/remote"
	"bizdash/internal/state"
)

// unpinTimeout bounds clearing an override after the caller's context is gone.
const unpinTimeout = 5 * time.Second

// Outcome is how a mutation ended.
type Outcome string

const (
	// Merged: the reply echoed the entity and its fields were merged.
	Merged Outcome = "merged"
	// Refetched: the reply had no entity and the scope was reloaded.
	Refetched Outcome = "refetched"
	// Committed: accepted, but the refetch failed so the optimistic value stays.
	Committed Outcome = "committed"
	// RolledBack: rejected; local state restored.
	RolledBack Outcome = "rolled_back"
	// ReauthRequired: 401; local state restored and the token discarded.
	ReauthRequired Outcome = "reauth_required"
	// Skipped: nothing to send (a drag released without moving).
	Skipped Outcome = "skipped"
)

// Success reports whether the backend accepted the mutation.
func (o Outcome) Success() bool {
	return o == Merged || o == Refetched || o == Committed
}

// Mutation is one user edit of one entity.
type Mutation struct {
	Scope core.Scope
	ID    string
	// Patch is applied locally before sending. Ignored when Remove is set.
	Patch map[string]any
	// Remove takes the entity out of the list (delete, archive-and-hide).
	Remove bool
	// Request persists the edit.
	Request remote.Request
	// OverrideField, when set, pins Patch[OverrideField] in the override cache for
	// that field until the server answers.
	OverrideField string
	// Baseline is the rollback target when local state was already moved before Run,
	// as a drag does. Nil means "the entity as found".
	Baseline core.Entity
}

func (m Mutation) validate() error {
	if m.ID == "" {
		return core.ErrEmptyID
	}
	if m.Request.Method == "" || m.Request.Path == "" {
		return errors.New("mutation has no request")
	}
	return nil
}

// Sender issues backend calls. *remote.Client implements it.
type Sender interface {
	Do(ctx context.Context, req remote.Request) (*remote.Response, error)
}

// Refetcher reloads a scope's list from the backend with a fresh request.
// *syncer.Syncer implements it.
type Refetcher interface {
	Reload(ctx context.Context, scope core.Scope) error
}

// Result is what a Notifier is told once a mutation has settled.
type Result struct {
	Scope   core.Scope
	ID      string
	Outcome Outcome
	Err     error
	Took    time.Duration
}

// Notifier is told about every settled mutation.
type Notifier interface {
	MutationSettled(ctx context.Context, r Result)
}

// Recorder counts outcomes. *metrics.Metrics implements it.
type Recorder interface {
	MutationFinished(resource, outcome string, took time.Duration)
	Refetched(err error)
}

// Controller runs mutations against a state.Store. Mutations of the same entity run
// one at a time in arrival order; different entities proceed concurrently.
type Controller struct {
	state     *state.Store
	sender    Sender
	refetcher Refetcher
	overrides map[string]*override.Cache
	notifier  Notifier
	recorder  Recorder
	seq       *Sequencer
	logger    *log.Logger
	slog      *log.StructuredLogger
	now       func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithOverrides registers override caches, keyed by the field each one pins.
func WithOverrides(caches ...*override.Cache) Option {
	return func(c *Controller) {
		for _, oc := range caches {
			if oc != nil {
				c.overrides[oc.Field()] = oc
			}
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(st *state.Store, sender Sender, refetcher Refetcher, opts ...Option) *Controller {
	c := &Controller{
		state:     st,
		sender:    sender,
		refetcher: refetcher,
		overrides: make(map[string]*override.Cache),
		seq:       NewSequencer(),
		logger:    log.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent(log.ComponentMutation)
	c.slog = log.NewStructuredLogger(c.logger)
	return c
}

// State exposes the store the controller mutates.
func (c *Controller) State() *state.Store { return c.state }

// Run applies m locally, sends it and reconciles. The error is ErrSessionExpired
// (wrapping the cause) on 401, *Error on any other failure, nil on success.
func (c *Controller) Run(ctx context.Context, m Mutation) (Outcome, error) {
	if err := m.validate(); err != nil {
		return RolledBack, err
	}

	release, err := c.seq.Acquire(ctx, m.Scope.Key()+"#"+m.ID)
	if err != nil {
		return RolledBack, fmt.Errorf("wait for pending mutation on %s: %w", m.ID, err)
	}
	defer release()

	start := c.now()
	outcome, err := c.run(ctx, m)
	took := c.now().Sub(start)

	c.slog.LogMutation(ctx, m.Scope.Key(), m.ID, string(outcome), err)
	if c.recorder != nil {
		c.recorder.MutationFinished(m.Scope.Resource.Name, string(outcome), took)
	}
	if c.notifier != nil {
		c.notifier.MutationSettled(ctx, Result{Scope: m.Scope, ID: m.ID, Outcome: outcome, Err: err, Took: took})
	}
	return outcome, err
}

func (c *Controller) run(ctx context.Context, m Mutation) (Outcome, error) {
	idKeys := m.Scope.Resource.IDKeys

	// snapshot + local apply
	var (
		before core.Entity
		index  = -1
		err    error
	)
	if m.Remove {
		before, index, err = c.state.Remove(m.Scope, m.ID)
	} else {
		before, err = c.state.Apply(m.Scope, m.ID, m.Patch)
	}
	if err != nil {
		return RolledBack, fmt.Errorf("apply %s to %s: %w", m.ID, m.Scope, err)
	}
	if m.Baseline != nil {
		before = m.Baseline.Clone()
	}

	pinned := c.pin(ctx, m)

	resp, err := c.sender.Do(ctx, m.Request)
	if err != nil {
		c.state.RestoreEntity(m.Scope, before, index)
		c.unpin(ctx, m, pinned)

		if remote.IsAuthFailure(err) {
			c.logger.WarnContext(ctx, "Session expired during mutation",
				log.FieldScope, m.Scope.Key(), log.FieldEntityID, m.ID)
			return ReauthRequired, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return RolledBack, &Error{Scope: m.Scope.Key(), ID: m.ID, Op: m.Request.String(), Err: err}
	}

	if rec, ok := normalize.Record(resp.Decoded(), idKeys...); ok && core.Entity(rec).ID(idKeys...) == m.ID {
		c.unpin(ctx, m, pinned)
		if m.Remove {
			return Committed, nil
		}
		if err := c.state.Merge(m.Scope, m.ID, rec); err != nil {
			// scope evicted or refetched without the entity; the reply is still authoritative
			c.logger.DebugContext(ctx, "Echoed entity not in local state", log.FieldEntityID, m.ID, log.FieldError, err.Error())
		}
		return Merged, nil
	}

	// Accepted without an entity we can trust: let the server's list win.
	c.unpin(ctx, m, pinned)
	if c.refetcher == nil {
		return Committed, nil
	}
	err = c.refetcher.Reload(ctx, m.Scope)
	if c.recorder != nil {
		c.recorder.Refetched(err)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "Refetch after mutation failed, keeping local value",
			log.FieldScope, m.Scope.Key(), log.FieldEntityID, m.ID, log.FieldError, err.Error())
		return Committed, nil
	}
	return Refetched, nil
}

func (c *Controller) pin(ctx context.Context, m Mutation) *override.Cache {
	if m.OverrideField == "" || m.Remove {
		return nil
	}
	oc, ok := c.overrides[m.OverrideField]
	if !ok {
		return nil
	}
	v, ok := m.Patch[m.OverrideField]
	if !ok {
		return nil
	}
	if err := oc.Set(ctx, m.ID, v); err != nil {
		c.logger.WarnContext(ctx, "Failed to pin override", log.FieldEntityID, m.ID, log.FieldError, err.Error())
	}
	return oc
}

// unpin drops the pinned value. It runs even when ctx is already cancelled: a
// leftover entry would mask the server's value on every later load.
func (c *Controller) unpin(ctx context.Context, m Mutation, oc *override.Cache) {
	if oc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unpinTimeout)
	defer cancel()
	if err := oc.Clear(ctx, m.ID); err != nil {
		c.logger.WarnContext(ctx, "Failed to clear override", log.FieldEntityID, m.ID, log.FieldError, err.Error())
	}
}
