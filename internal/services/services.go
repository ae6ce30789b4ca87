// Package services exposes the dashboard's per-domain operations on top of the
// syncer (reads) and the optimistic controller (writes).
package services

import (
	"context"
	"fmt"

	"bizdash/internal/core"
	"bizdash/internal/log"
	"bizdash/internal/optimistic"
	"bizdash/internal/remote"
	"bizdash/internal/syncer"
)

// Deps are the collaborators every service shares.
type Deps struct {
	Syncer     *syncer.Syncer
	Controller *optimistic.Controller
	Client     *remote.Client
	Logger     *log.Logger
}

type base struct {
	sync   *syncer.Syncer
	ctrl   *optimistic.Controller
	client *remote.Client
	logger *log.Logger
}

func newBase(d Deps) base {
	logger := d.Logger
	if logger == nil {
		logger = log.Discard()
	}
	return base{sync: d.Syncer, ctrl: d.Controller, client: d.Client, logger: logger}
}

// mutate loads the scope if needed and runs m against it.
func (b base) mutate(ctx context.Context, m optimistic.Mutation) (optimistic.Outcome, error) {
	if _, err := b.sync.Ensure(ctx, m.Scope); err != nil {
		return optimistic.RolledBack, err
	}
	return b.ctrl.Run(ctx, m)
}

// list loads scope fresh and hands back a copy.
func (b base) list(ctx context.Context, scope core.Scope) ([]core.Entity, error) {
	list, err := b.sync.Load(ctx, scope)
	if err != nil {
		return nil, err
	}
	return core.CloneList(list), nil
}

func scopeFor(resource, parent, parentID string) core.Scope {
	r := core.MustResource(resource)
	if parentID == "" {
		return core.Scope{Resource: r}
	}
	return core.Scope{Resource: r, Parent: parent, ParentID: parentID}
}

// action builds a request against /{res}/{id}/{action}.
func action(scope core.Scope, method, id, name string, body map[string]any) remote.Request {
	req := remote.Request{Method: method, Path: scope.Resource.ActionPath(id, name)}
	if body != nil {
		req.Body = body
	}
	return req
}

func requireID(id string) error {
	if id == "" {
		return core.ErrEmptyID
	}
	return nil
}

func wrap(op, id string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}
