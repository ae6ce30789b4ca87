package services_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdash/internal/core"
	"bizdash/internal/remote/remotetest"
	"bizdash/internal/services"
)

func TestClientService_List(t *testing.T) {
	f := newFixture(t)
	f.env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/clients"),
		httpmock.NewStringResponder(http.StatusOK, `{"data":[
			{"clientId":42,"companyName":"Acme","contactEmail":"ops@acme.test"},
			{"id":"7","name":"Globex"}
		]}`))

	svc := services.NewClientService(f.deps)
	got, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.Client{
		{ID: "42", Name: "Acme", Email: "ops@acme.test"},
		{ID: "7", Name: "Globex"},
	}, got)
	assert.Equal(t, "clients", svc.Scope().Key())
}
