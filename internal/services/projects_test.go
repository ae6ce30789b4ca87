package services_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdash/internal/core"
	"bizdash/internal/optimistic"
	"bizdash/internal/remote"
	"bizdash/internal/remote/remotetest"
	"bizdash/internal/services"
)

const clientProjects = `{"data":[
	{"id":3,"name":"Site","projectStatus":"NOT_STARTED","progressPercent":10},
	{"id":4,"name":"App","projectStatus":"IN_PROGRESS","progressPercent":"55","pinned":true}
]}`

func TestProjectService_List(t *testing.T) {
	f := newFixture(t)
	f.env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/projects/client/42"),
		httpmock.NewStringResponder(http.StatusOK, clientProjects))

	svc := services.NewProjectService(f.deps)
	got, err := svc.List(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, core.Project{ID: "3", Name: "Site", Status: core.StatusNotStarted, Progress: 10}, got[0])
	assert.Equal(t, 55, got[1].Progress)
	assert.True(t, got[1].Pinned)
	assert.Equal(t, "projects/client/42", svc.Scope("42").Key())
	assert.Equal(t, "projects", svc.Scope("").Key())
}

func TestProjectService_Get(t *testing.T) {
	f := newFixture(t)
	f.env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/projects/3"),
		httpmock.NewStringResponder(http.StatusOK, `{"ResponseBody":"{\"id\":3,\"name\":\"Site\"}"}`))

	got, err := services.NewProjectService(f.deps).Get(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "Site", got.Name)

	_, err = services.NewProjectService(f.deps).Get(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrEmptyID)
}

func TestProjectService_ChangeStatus(t *testing.T) {
	f := newFixture(t)
	f.env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/projects/client/42"),
		httpmock.NewStringResponder(http.StatusOK, clientProjects))
	f.env.Mock.RegisterResponder(http.MethodPatch, remotetest.URL("/projects/3/status"),
		f.capture(http.StatusOK, `{"id":3,"projectStatus":"IN_PROGRESS"}`))

	svc := services.NewProjectService(f.deps)
	outcome, err := svc.ChangeStatus(context.Background(), "42", "3", core.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, optimistic.Merged, outcome)

	assert.Equal(t, map[string]any{"projectStatus": "IN_PROGRESS"}, f.body(http.MethodPatch, "/projects/3/status"))
	assert.Equal(t, "IN_PROGRESS", f.list(t, svc.Scope("42"))[0]["projectStatus"])
	assert.Equal(t, 1, f.env.Calls(http.MethodPatch, "/projects/3/status"))

	_, err = svc.ChangeStatus(context.Background(), "42", "3", "DONE-ish")
	assert.ErrorIs(t, err, core.ErrInvalidStatus)
}

func TestProjectService_SetProgressClamps(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: -5, want: 0},
		{in: 140, want: 100},
		{in: 42.6, want: 43},
	}

	for _, tt := range tests {
		f := newFixture(t)
		f.env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/projects/client/42"),
			httpmock.NewStringResponder(http.StatusOK, clientProjects))
		f.env.Mock.RegisterResponder(http.MethodPatch, remotetest.URL("/projects/3/progress"),
			f.capture(http.StatusNoContent, ""))

		svc := services.NewProjectService(f.deps)
		outcome, err := svc.SetProgress(context.Background(), "42", "3", tt.in)
		require.NoError(t, err)
		assert.Equal(t, optimistic.Refetched, outcome)

		assert.Equal(t, map[string]any{"progressPercent": tt.want}, f.body(http.MethodPatch, "/projects/3/progress"))
		// initial load plus one refetch
		assert.Equal(t, 2, f.env.Calls(http.MethodGet, "/projects/client/42"))
		_, pinned := f.oc.Get(context.Background(), "3")
		assert.False(t, pinned)
	}
}

func TestProjectService_ProgressDrag(t *testing.T) {
	f := newFixture(t)
	f.env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/projects/client/42"),
		httpmock.NewStringResponder(http.StatusOK, clientProjects))
	f.env.Mock.RegisterResponder(http.MethodPatch, remotetest.URL("/projects/4/progress"),
		f.capture(http.StatusOK, `{"id":4,"progressPercent":90}`))

	svc := services.NewProjectService(f.deps)
	drag, err := svc.ProgressDrag(context.Background(), "42", "4")
	require.NoError(t, err)

	require.NoError(t, drag.Move(60))
	require.NoError(t, drag.Move(90.2))
	assert.Equal(t, 0, f.env.Calls(http.MethodPatch, "/projects/4/progress"))

	outcome, err := drag.Release(context.Background())
	require.NoError(t, err)
	assert.Equal(t, optimistic.Merged, outcome)
	assert.Equal(t, map[string]any{"progressPercent": float64(90)}, f.body(http.MethodPatch, "/projects/4/progress"))
	assert.Equal(t, float64(90), f.list(t, svc.Scope("42"))[1]["progressPercent"])
}

func TestProjectService_PinArchiveDelete(t *testing.T) {
	f := newFixture(t)
	f.env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/projects/client/42"),
		httpmock.NewStringResponder(http.StatusOK, clientProjects))
	f.env.Mock.RegisterResponder(http.MethodPatch, remotetest.URL("/projects/3/pin"),
		f.capture(http.StatusOK, `{"id":3,"pinned":true}`))
	f.env.Mock.RegisterResponder(http.MethodPatch, remotetest.URL("/projects/4/archive"),
		httpmock.NewStringResponder(http.StatusConflict, `{"message":"project has open invoices"}`))
	f.env.Mock.RegisterResponder(http.MethodDelete, remotetest.URL("/projects/4"),
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	ctx := context.Background()
	svc := services.NewProjectService(f.deps)

	outcome, err := svc.Pin(ctx, "42", "3", true)
	require.NoError(t, err)
	assert.Equal(t, optimistic.Merged, outcome)
	assert.Equal(t, map[string]any{"pinned": true}, f.body(http.MethodPatch, "/projects/3/pin"))

	outcome, err = svc.Archive(ctx, "42", "4", true)
	assert.Equal(t, optimistic.RolledBack, outcome)
	var oerr *optimistic.Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, "project has open invoices", oerr.Message())
	_, archived := f.list(t, svc.Scope("42"))[1]["archived"]
	assert.False(t, archived)

	outcome, err = svc.Delete(ctx, "42", "4")
	require.NoError(t, err)
	assert.Equal(t, optimistic.Refetched, outcome)
}

func TestProjectService_UploadFile(t *testing.T) {
	f := newFixture(t)
	f.env.Mock.RegisterResponder(http.MethodPost, remotetest.URL("/projects/3/files"),
		httpmock.NewStringResponder(http.StatusOK, "https://files.test/brief.pdf"))

	svc := services.NewProjectService(f.deps)
	res, err := svc.UploadFile(context.Background(), "3", remote.Upload{
		Filename: "brief.pdf",
		Content:  strings.NewReader("%PDF"),
		Fields:   map[string]string{"kind": "brief"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/brief.pdf", res.URL)
}
