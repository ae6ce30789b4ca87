package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdash/internal/amqp"
	"bizdash/internal/auth"
	"bizdash/internal/core"
	"bizdash/internal/state"
	"bizdash/internal/storage"
)

type fakeRefresher struct {
	mu        sync.Mutex
	refreshed []string
	loaded    [][]string
	err       error
}

func (f *fakeRefresher) Refresh(_ context.Context, scope core.Scope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, scope.Key())
	return f.err
}

func (f *fakeRefresher) LoadAll(_ context.Context, scopes ...core.Scope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, len(scopes))
	for i, s := range scopes {
		keys[i] = s.Key()
	}
	f.loaded = append(f.loaded, keys)
	return f.err
}

type fakeHistory []storage.ScopeRecord

func (h fakeHistory) LoadedScopes(context.Context) ([]storage.ScopeRecord, error) {
	return h, nil
}

type countingRecorder struct{ ok, failed int }

func (r *countingRecorder) EventHandled(_ string, err error) {
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

func loadedStore(t *testing.T, keys ...string) *state.Store {
	t.Helper()
	st := state.NewStore(8, time.Minute)
	for _, k := range keys {
		scope, err := core.ParseScopeKey(k)
		require.NoError(t, err)
		st.Replace(scope, []core.Entity{{"id": "1"}})
	}
	return st
}

func TestEventWorker_HandleMutation(t *testing.T) {
	tests := []struct {
		name        string
		evt         amqp.MutationEvent
		refreshErr  error
		wantRefresh []string
		wantErr     bool
	}{
		{
			name:        "other session refreshes held scope",
			evt:         amqp.MutationEvent{Scope: "projects/client/42", Outcome: "merged", Session: "b"},
			wantRefresh: []string{"projects/client/42"},
		},
		{
			name: "own session is ignored",
			evt:  amqp.MutationEvent{Scope: "projects/client/42", Outcome: "merged", Session: "a"},
		},
		{
			name: "rolled back mutations change nothing",
			evt:  amqp.MutationEvent{Scope: "projects/client/42", Outcome: "rolled_back", Session: "b"},
		},
		{
			name: "scope not held",
			evt:  amqp.MutationEvent{Scope: "invoices/client/42", Outcome: "refetched", Session: "b"},
		},
		{
			name: "unknown scope is dropped",
			evt:  amqp.MutationEvent{Scope: "widgets", Outcome: "merged", Session: "b"},
		},
		{
			name:        "refresh failure requeues",
			evt:         amqp.MutationEvent{Scope: "projects/client/42", Outcome: "committed", Session: "b"},
			refreshErr:  errors.New("backend down"),
			wantRefresh: []string{"projects/client/42"},
			wantErr:     true,
		},
		{
			name:        "logged out does not requeue",
			evt:         amqp.MutationEvent{Scope: "projects/client/42", Outcome: "merged", Session: "b"},
			refreshErr:  auth.ErrNotAuthenticated,
			wantRefresh: []string{"projects/client/42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := &fakeRefresher{err: tt.refreshErr}
			rec := &countingRecorder{}
			w := NewEventWorker(loadedStore(t, "projects/client/42"), ref, nil, rec, "a", nil)

			err := w.HandleMutation(context.Background(), &tt.evt)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, 1, rec.failed)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 1, rec.ok)
			}
			assert.Equal(t, tt.wantRefresh, ref.refreshed)
		})
	}
}

func TestEventWorker_Warm(t *testing.T) {
	history := fakeHistory{
		{Key: "invoices/client/42"},
		{Key: "bogus/scope/key/extra"},
		{Key: "projects/client/42"},
		{Key: "deals"},
	}
	ref := &fakeRefresher{}
	w := NewEventWorker(state.NewStore(8, time.Minute), ref, history, nil, "a", nil)

	n, err := w.Warm(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, [][]string{{"invoices/client/42", "projects/client/42"}}, ref.loaded)

	n, err = NewEventWorker(state.NewStore(8, time.Minute), ref, nil, nil, "a", nil).Warm(context.Background(), 2)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEventWorker_RefreshStale(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	history := fakeHistory{
		{Key: "projects/client/42", LoadedAt: now.Add(-10 * time.Minute)},
		{Key: "invoices/client/42", LoadedAt: now.Add(-time.Minute)},
		{Key: "deals", LoadedAt: now.Add(-time.Hour)},
	}
	ref := &fakeRefresher{}
	w := NewEventWorker(loadedStore(t, "projects/client/42", "invoices/client/42"), ref, history, nil, "a", nil)
	w.now = func() time.Time { return now }

	require.NoError(t, w.RefreshStale(context.Background(), 5*time.Minute))
	// deals is stale but not held
	assert.Equal(t, []string{"projects/client/42"}, ref.refreshed)
}
