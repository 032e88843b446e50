package provider

import (
	"calsync-api/core/errors"
)

// Registry resolves a provider tag to its Client implementation. The sync
// engines are provider-agnostic and only ever see the Client interface.
type Registry interface {
	Get(tag string) (Client, error)
}

type registry struct {
	clients map[string]Client
}

func NewRegistry(clients map[string]Client) Registry {
	return &registry{clients: clients}
}

func (r *registry) Get(tag string) (Client, error) {
	client, ok := r.clients[tag]
	if !ok {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "unknown provider: "+tag, nil)
	}
	return client, nil
}
