package services

import (
	"context"

	"bizdash/internal/core"
)

// ClientService lists the customers every other scope hangs off.
type ClientService struct {
	base
}

func NewClientService(d Deps) *ClientService {
	return &ClientService{base: newBase(d)}
}

func (s *ClientService) Scope() core.Scope {
	return scopeFor(core.Clients, "", "")
}

func (s *ClientService) List(ctx context.Context) ([]core.Client, error) {
	list, err := s.list(ctx, s.Scope())
	if err != nil {
		return nil, err
	}
	out := make([]core.Client, 0, len(list))
	for _, e := range list {
		out = append(out, core.ClientFromEntity(e))
	}
	return out, nil
}
