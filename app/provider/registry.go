package provider

import (
	"errors"
	"strings"
)

var ErrProviderNotSupported = errors.New("provider is not supported")

// Registry resolves processors by name for webhook intake.
type Registry struct {
	providers map[string]Processor
}

func NewRegistry(providers ...Processor) *Registry {
	items := make(map[string]Processor, len(providers))
	for _, p := range providers {
		items[strings.ToLower(p.Name())] = p
	}
	return &Registry{providers: items}
}

func (r *Registry) Get(name string) (Processor, error) {
	provider, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	return provider, nil
}
