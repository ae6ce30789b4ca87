// Package auth keeps the bearer token used for every backend call.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bizdash/internal/kvstore"
)

// TokenKey is the kv key the bearer token is stored under.
const TokenKey = "accessToken"

// ErrNotAuthenticated means no token is stored; requests are blocked before sending.
var ErrNotAuthenticated = errors.New("not authenticated")

// Session reads and writes the bearer token in a kv store.
type Session struct {
	store kvstore.Store
}

func NewSession(store kvstore.Store) *Session {
	return &Session{store: store}
}

// Token returns the stored token or ErrNotAuthenticated.
func (s *Session) Token(ctx context.Context) (string, error) {
	tok, ok, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	tok = strings.TrimSpace(tok)
	if !ok || tok == "" {
		return "", ErrNotAuthenticated
	}
	return tok, nil
}

// Login stores token, replacing any previous one.
func (s *Session) Login(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("login: %w", ErrNotAuthenticated)
	}
	if err := s.store.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// Logout discards the stored token.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.store.Remove(ctx, TokenKey); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// Authenticated reports whether a usable token is stored.
func (s *Session) Authenticated(ctx context.Context) bool {
	_, err := s.Token(ctx)
	return err == nil
}
