package worker

import (
	"context"
	"fmt"
	"time"

	"bizdash/internal/amqp"
	"bizdash/internal/core"
	"bizdash/internal/log"
	"bizdash/internal/optimistic"
	"bizdash/internal/remote"
	"bizdash/internal/state"
	"bizdash/internal/storage"
)

// Refresher reloads scopes. *syncer.Syncer implements it.
type Refresher interface {
	Refresh(ctx context.Context, scope core.Scope) error
	LoadAll(ctx context.Context, scopes ...core.Scope) error
}

// History lists previously loaded scopes, most recent first.
type History interface {
	LoadedScopes(ctx context.Context) ([]storage.ScopeRecord, error)
}

// EventRecorder counts consumed events.
type EventRecorder interface {
	EventHandled(direction string, err error)
}

// EventWorker keeps locally held scopes fresh when other sessions mutate them.
type EventWorker struct {
	state     *state.Store
	refresher Refresher
	history   History
	recorder  EventRecorder
	session   string
	logger    *log.Logger
	now       func() time.Time
}

// NewEventWorker builds a worker for session. history and recorder may be nil.
func NewEventWorker(st *state.Store, refresher Refresher, history History, recorder EventRecorder, session string, logger *log.Logger) *EventWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &EventWorker{
		state:     st,
		refresher: refresher,
		history:   history,
		recorder:  recorder,
		session:   session,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// HandleMutation refetches the event's scope when it is held here and the change
// came from another session. Returning an error requeues the event once.
func (w *EventWorker) HandleMutation(ctx context.Context, evt *amqp.MutationEvent) error {
	err := w.handle(ctx, evt)
	if w.recorder != nil {
		w.recorder.EventHandled("consumed", err)
	}
	return err
}

func (w *EventWorker) handle(ctx context.Context, evt *amqp.MutationEvent) error {
	if evt.Session == w.session {
		return nil
	}
	if !optimistic.Outcome(evt.Outcome).Success() {
		return nil
	}

	scope, err := core.ParseScopeKey(evt.Scope)
	if err != nil {
		// requeueing cannot fix a scope we do not understand
		w.logger.WarnContext(ctx, "Ignoring event for unknown scope", log.FieldScope, evt.Scope, log.FieldError, err.Error())
		return nil
	}
	if !w.state.Loaded(scope) {
		return nil
	}

	w.logger.InfoContext(ctx, "Scope changed elsewhere, refetching",
		log.FieldScope, scope.Key(),
		log.FieldEntityID, evt.EntityID,
		log.FieldOutcome, evt.Outcome)

	if err := w.refresher.Refresh(ctx, scope); err != nil {
		if remote.IsAuthFailure(err) {
			w.logger.WarnContext(ctx, "Not logged in, skipping refetch", log.FieldScope, scope.Key())
			return nil
		}
		return fmt.Errorf("refresh %s: %w", scope, err)
	}
	return nil
}

// Warm reloads up to limit of the most recently loaded scopes recorded in history.
func (w *EventWorker) Warm(ctx context.Context, limit int) (int, error) {
	if w.history == nil {
		return 0, nil
	}
	records, err := w.history.LoadedScopes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list loaded scopes: %w", err)
	}

	var scopes []core.Scope
	for _, rec := range records {
		if limit > 0 && len(scopes) >= limit {
			break
		}
		scope, err := core.ParseScopeKey(rec.Key)
		if err != nil {
			w.logger.DebugContext(ctx, "Skipping unknown scope in history", log.FieldScope, rec.Key)
			continue
		}
		scopes = append(scopes, scope)
	}
	if len(scopes) == 0 {
		w.logger.InfoContext(ctx, "No previously loaded scopes found")
		return 0, nil
	}

	if err := w.refresher.LoadAll(ctx, scopes...); err != nil {
		return 0, fmt.Errorf("warm scopes: %w", err)
	}
	w.logger.InfoContext(ctx, "Warmed scopes", log.FieldCount, len(scopes))
	return len(scopes), nil
}

// RefreshStale reloads held scopes whose last load is older than maxAge. It
// covers events lost while the consumer was down.
func (w *EventWorker) RefreshStale(ctx context.Context, maxAge time.Duration) error {
	if w.history == nil {
		return nil
	}
	records, err := w.history.LoadedScopes(ctx)
	if err != nil {
		return fmt.Errorf("list loaded scopes: %w", err)
	}

	refreshed, failed := 0, 0
	for _, rec := range records {
		if w.now().Sub(rec.LoadedAt) < maxAge {
			continue
		}
		scope, err := core.ParseScopeKey(rec.Key)
		if err != nil || !w.state.Loaded(scope) {
			continue
		}
		if err := w.refresher.Refresh(ctx, scope); err != nil {
			w.logger.ErrorContext(ctx, "Failed to refresh stale scope", log.FieldScope, rec.Key, log.FieldError, err.Error())
			failed++
			continue
		}
		refreshed++
	}

	if refreshed > 0 || failed > 0 {
		w.logger.InfoContext(ctx, "Stale scope refresh completed", "refreshed", refreshed, "errors", failed)
	}
	return nil
}
