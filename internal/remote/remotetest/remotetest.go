// Package remotetest wires a remote.Client to an httpmock transport for tests.
package remotetest

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"

	"bizdash/internal/auth"
	"bizdash/internal/kvstore"
	"bizdash/internal/remote"
)

const (
	BaseURL = "http://api.test"
	Token   = "test-token"
)

// Env is a logged-in client over a mock transport.
type Env struct {
	Client  *remote.Client
	Mock    *httpmock.MockTransport
	Store   *kvstore.Memory
	Session *auth.Session
}

// New returns an Env whose session already holds Token.
func New(t testing.TB) *Env {
	t.Helper()

	store := kvstore.NewMemory()
	session := auth.NewSession(store)
	if err := session.Login(context.Background(), Token); err != nil {
		t.Fatalf("login: %v", err)
	}

	mock := httpmock.NewMockTransport()
	return &Env{
		Client:  remote.New(BaseURL, session, remote.WithTransport(mock)),
		Mock:    mock,
		Store:   store,
		Session: session,
	}
}

// URL joins path onto BaseURL.
func URL(path string) string {
	return BaseURL + path
}

// Calls returns how many times method+path was hit.
func (e *Env) Calls(method, path string) int {
	return e.Mock.GetCallCountInfo()[method+" "+URL(path)]
}
