package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bizdash/internal/core"
	"bizdash/internal/optimistic"
)

// PipelineService moves deals or leads between sales stages.
type PipelineService struct {
	base
	resource string
}

// NewPipelineService serves resource, which must be core.Deals or core.Leads.
func NewPipelineService(d Deps, resource string) (*PipelineService, error) {
	if resource != core.Deals && resource != core.Leads {
		return nil, fmt.Errorf("%w: %q is not a pipeline", core.ErrUnknownResource, resource)
	}
	return &PipelineService{base: newBase(d), resource: resource}, nil
}

func (s *PipelineService) Scope() core.Scope {
	return scopeFor(s.resource, "", "")
}

func (s *PipelineService) List(ctx context.Context) ([]core.Deal, error) {
	list, err := s.list(ctx, s.Scope())
	if err != nil {
		return nil, err
	}
	out := make([]core.Deal, 0, len(list))
	for _, e := range list {
		out = append(out, core.DealFromEntity(e))
	}
	return out, nil
}

// ChangeStage sets the stage through PATCH /{deals|leads}/{id}/stage.
func (s *PipelineService) ChangeStage(ctx context.Context, id, stage string) (optimistic.Outcome, error) {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return optimistic.RolledBack, errors.New("stage is required")
	}
	scope := s.Scope()
	patch := map[string]any{core.FieldStage: stage}
	return s.mutate(ctx, optimistic.Mutation{
		Scope:   scope,
		ID:      id,
		Patch:   patch,
		Request: action(scope, http.MethodPatch, id, "stage", patch),
	})
}

// TimeLogService lists an employee's time logs and approves them.
type TimeLogService struct {
	base
}

func NewTimeLogService(d Deps) *TimeLogService {
	return &TimeLogService{base: newBase(d)}
}

func (s *TimeLogService) Scope(employeeID string) core.Scope {
	return scopeFor(core.TimeLogs, "employee", employeeID)
}

func (s *TimeLogService) ListByEmployee(ctx context.Context, employeeID string) ([]core.TimeLog, error) {
	list, err := s.list(ctx, s.Scope(employeeID))
	if err != nil {
		return nil, err
	}
	out := make([]core.TimeLog, 0, len(list))
	for _, e := range list {
		out = append(out, core.TimeLogFromEntity(e))
	}
	return out, nil
}

func (s *TimeLogService) Approve(ctx context.Context, employeeID, id string) (optimistic.Outcome, error) {
	scope := s.Scope(employeeID)
	patch := map[string]any{core.FieldApproved: true}
	return s.mutate(ctx, optimistic.Mutation{
		Scope:   scope,
		ID:      id,
		Patch:   patch,
		Request: action(scope, http.MethodPatch, id, "approve", patch),
	})
}
