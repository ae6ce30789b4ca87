package services

import (
	"context"
	"net/http"

	"bizdash/internal/core"
	"bizdash/internal/log"
	"bizdash/internal/normalize"
	"bizdash/internal/optimistic"
	"bizdash/internal/remote"
)

// ProjectService manages the projects of one client at a time. An empty clientID
// addresses the whole collection.
type ProjectService struct {
	base
}

func NewProjectService(d Deps) *ProjectService {
	return &ProjectService{base: newBase(d)}
}

// Scope is the list the service mutates for clientID.
func (s *ProjectService) Scope(clientID string) core.Scope {
	return scopeFor(core.Projects, "client", clientID)
}

func (s *ProjectService) List(ctx context.Context, clientID string) ([]core.Project, error) {
	list, err := s.list(ctx, s.Scope(clientID))
	if err != nil {
		return nil, err
	}
	out := make([]core.Project, 0, len(list))
	for _, e := range list {
		out = append(out, core.ProjectFromEntity(e))
	}
	return out, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (core.Project, error) {
	if err := requireID(id); err != nil {
		return core.Project{}, err
	}
	e, err := s.sync.Entity(ctx, core.MustResource(core.Projects), id)
	if err != nil {
		return core.Project{}, err
	}
	return core.ProjectFromEntity(e), nil
}

// ChangeStatus sets projectStatus through PATCH /projects/{id}/status.
func (s *ProjectService) ChangeStatus(ctx context.Context, clientID, id, status string) (optimistic.Outcome, error) {
	if err := core.ValidateProjectStatus(status); err != nil {
		return optimistic.RolledBack, wrap("change status of", id, err)
	}
	scope := s.Scope(clientID)
	patch := map[string]any{core.FieldProjectStatus: status}
	return s.mutate(ctx, optimistic.Mutation{
		Scope:   scope,
		ID:      id,
		Patch:   patch,
		Request: action(scope, http.MethodPatch, id, "status", patch),
	})
}

// SetProgress commits v clamped to [0,100] and rounded. The value stays pinned in
// the override cache until the backend answers.
func (s *ProjectService) SetProgress(ctx context.Context, clientID, id string, v float64) (optimistic.Outcome, error) {
	scope := s.Scope(clientID)
	if _, err := s.sync.Ensure(ctx, scope); err != nil {
		return optimistic.RolledBack, err
	}
	return s.ctrl.Run(ctx, s.progressMutation(scope, id, normalize.ClampPercent(v)))
}

// ProgressDrag starts a slider-style edit; see optimistic.Drag.
func (s *ProjectService) ProgressDrag(ctx context.Context, clientID, id string) (*optimistic.Drag, error) {
	scope := s.Scope(clientID)
	if _, err := s.sync.Ensure(ctx, scope); err != nil {
		return nil, err
	}
	return s.ctrl.NewDrag(scope, id, core.FieldProgress, func(value int) optimistic.Mutation {
		return s.progressMutation(scope, id, value)
	}), nil
}

func (s *ProjectService) progressMutation(scope core.Scope, id string, value int) optimistic.Mutation {
	patch := map[string]any{core.FieldProgress: float64(value)}
	return optimistic.Mutation{
		Scope:         scope,
		ID:            id,
		Patch:         patch,
		Request:       action(scope, http.MethodPatch, id, "progress", map[string]any{core.FieldProgress: value}),
		OverrideField: core.FieldProgress,
	}
}

func (s *ProjectService) Pin(ctx context.Context, clientID, id string, pinned bool) (optimistic.Outcome, error) {
	return s.toggle(ctx, clientID, id, "pin", core.FieldPinned, pinned)
}

func (s *ProjectService) Archive(ctx context.Context, clientID, id string, archived bool) (optimistic.Outcome, error) {
	return s.toggle(ctx, clientID, id, "archive", core.FieldArchived, archived)
}

func (s *ProjectService) toggle(ctx context.Context, clientID, id, name, field string, on bool) (optimistic.Outcome, error) {
	scope := s.Scope(clientID)
	patch := map[string]any{field: on}
	return s.mutate(ctx, optimistic.Mutation{
		Scope:   scope,
		ID:      id,
		Patch:   patch,
		Request: action(scope, http.MethodPatch, id, name, patch),
	})
}

func (s *ProjectService) Delete(ctx context.Context, clientID, id string) (optimistic.Outcome, error) {
	scope := s.Scope(clientID)
	return s.mutate(ctx, optimistic.Mutation{
		Scope:   scope,
		ID:      id,
		Remove:  true,
		Request: remote.Request{Method: http.MethodDelete, Path: scope.Resource.EntityPath(id)},
	})
}

// UploadFile attaches a file to a project. The backend answers with the stored
// file's URL in one of several shapes.
func (s *ProjectService) UploadFile(ctx context.Context, id string, u remote.Upload) (remote.UploadResult, error) {
	if err := requireID(id); err != nil {
		return remote.UploadResult{}, err
	}
	res, err := s.client.Upload(ctx, core.MustResource(core.Projects).ActionPath(id, "files"), u)
	if err != nil {
		return remote.UploadResult{}, wrap("upload file to project", id, err)
	}
	s.logger.InfoContext(ctx, "File uploaded",
		log.FieldOperation, log.OpUpload,
		log.FieldEntityID, id,
		"url", res.URL)
	return res, nil
}
