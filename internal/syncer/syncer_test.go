package syncer_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bizdash/internal/core"
	"bizdash/internal/kvstore"
	"bizdash/internal/override"
	"bizdash/internal/remote/remotetest"
	"bizdash/internal/state"
	"bizdash/internal/syncer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memLedger struct {
	mu     sync.Mutex
	counts map[string]int
}

func (l *memLedger) RecordScopeLoad(_ context.Context, key string, n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key] = n
	return nil
}

func projectsOf(t *testing.T, client string) core.Scope {
	t.Helper()
	s, err := core.ScopeOf(core.Projects, "client", client)
	require.NoError(t, err)
	return s
}

func TestLoad_NormalizesAndOverlays(t *testing.T) {
	ctx := context.Background()
	env := remotetest.New(t)
	st := state.NewStore(8, time.Minute)
	oc := override.New(kvstore.NewMemory())
	require.NoError(t, oc.Set(ctx, "7", 55))
	ledger := &memLedger{counts: map[string]int{}}

	env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/projects/client/42"),
		httpmock.NewStringResponder(http.StatusOK,
			`{"ResponseBody":"{\"projects\":[{\"id\":7,\"progressPercent\":10},{\"id\":8,\"progressPercent\":30},{\"name\":\"no id\"}]}"}`))

	s := syncer.New(env.Client, st, syncer.WithOverride(core.Projects, oc), syncer.WithLedger(ledger))
	scope := projectsOf(t, "42")

	list, err := s.Load(ctx, scope)
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, float64(55), list[0]["progressPercent"])
	assert.Equal(t, float64(30), list[1]["progressPercent"])

	snap, ok := st.Snapshot(scope)
	require.True(t, ok)
	assert.Equal(t, list, snap)
	assert.Equal(t, 2, ledger.counts["projects/client/42"])
}

func TestLoad_GarbageBodyIsEmptyList(t *testing.T) {
	env := remotetest.New(t)
	st := state.NewStore(8, time.Minute)
	env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/projects/client/1"),
		httpmock.NewStringResponder(http.StatusOK, `<html>maintenance</html>`))

	list, err := syncer.New(env.Client, st).Load(context.Background(), projectsOf(t, "1"))

	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.True(t, st.Loaded(projectsOf(t, "1")))
}

func TestLoad_ErrorLeavesStateUntouched(t *testing.T) {
	env := remotetest.New(t)
	st := state.NewStore(8, time.Minute)
	scope := projectsOf(t, "1")
	st.Replace(scope, []core.Entity{{"id": float64(1)}})
	env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/projects/client/1"),
		httpmock.NewStringResponder(http.StatusInternalServerError, `boom`))

	_, err := syncer.New(env.Client, st).Load(context.Background(), scope)

	require.Error(t, err)
	snap, _ := st.Snapshot(scope)
	assert.Len(t, snap, 1)
}

func TestEnsure_LoadsOnce(t *testing.T) {
	env := remotetest.New(t)
	st := state.NewStore(8, time.Minute)
	env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/projects/client/5"),
		httpmock.NewStringResponder(http.StatusOK, `[{"id":1}]`))
	s := syncer.New(env.Client, st)

	for range 3 {
		list, err := s.Ensure(context.Background(), projectsOf(t, "5"))
		require.NoError(t, err)
		assert.Len(t, list, 1)
	}
	assert.Equal(t, 1, env.Calls(http.MethodGet, "/projects/client/5"))
}

func TestLoadAll(t *testing.T) {
	env := remotetest.New(t)
	st := state.NewStore(8, time.Minute)
	env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/projects/client/1"),
		httpmock.NewStringResponder(http.StatusOK, `{"data":[{"id":1}]}`))
	env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/invoices/client/1"),
		httpmock.NewStringResponder(http.StatusOK, `{"invoices":[{"invoiceNumber":"INV-1"}]}`))

	invoices, err := core.ScopeOf(core.Invoices, "client", "1")
	require.NoError(t, err)

	s := syncer.New(env.Client, st, syncer.WithParallelism(2))
	require.NoError(t, s.LoadAll(context.Background(), projectsOf(t, "1"), invoices))

	inv, _ := st.Snapshot(invoices)
	require.Len(t, inv, 1)
	assert.Equal(t, "INV-1", invoices.Resource.EntityID(inv[0]))
}

func TestObjectAndEntity(t *testing.T) {
	env := remotetest.New(t)
	st := state.NewStore(8, time.Minute)
	env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/invoices/stats"),
		httpmock.NewStringResponder(http.StatusOK, `{"data":{"totalInvoiced":1200.5,"totalPaid":200}}`))
	env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/projects/3"),
		httpmock.NewStringResponder(http.StatusOK, `{"item":{"id":3,"name":"Site"}}`))
	s := syncer.New(env.Client, st)

	stats, err := s.Object(context.Background(), "/invoices/stats", nil, core.InvoiceStatsFields...)
	require.NoError(t, err)
	assert.Equal(t, int64(120050), core.InvoiceStatsFromObject(stats).TotalInvoiced.Cents)

	e, err := s.Entity(context.Background(), core.MustResource(core.Projects), "3")
	require.NoError(t, err)
	assert.Equal(t, "Site", e["name"])
}

func TestReload_SupersedesSlowerEarlierLoad(t *testing.T) {
	env := remotetest.New(t)
	st := state.NewStore(8, time.Minute)
	scope := projectsOf(t, "42")

	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	var mu sync.Mutex
	env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/projects/client/42"),
		func(*http.Request) (*http.Response, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				close(started)
				<-release
				return httpmock.NewStringResponse(http.StatusOK, `[{"id":1,"name":"old"}]`), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `[{"id":1,"name":"new"}]`), nil
		})

	s := syncer.New(env.Client, st)
	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- s.Refresh(ctx, scope) }()
	<-started

	require.NoError(t, s.Reload(ctx, scope))
	close(release)
	require.NoError(t, <-done)

	snap, ok := st.Snapshot(scope)
	require.True(t, ok)
	assert.Equal(t, "new", snap[0]["name"])
	assert.Equal(t, 2, env.Calls(http.MethodGet, "/projects/client/42"))
}
