package source

import (
	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// StaticSource serves the statically-configured providers. It is built once
// at configuration-load time and never mutated afterwards, so reads need no
// synchronization.
type StaticSource struct {
	providers map[string]domain.IdentityProvider
	order     []string // insertion order, for deterministic All()
}

// NewStaticSource builds a static source from validated providers.
// Providers that fail Validate are rejected; the first validation error is
// returned and the source is not built.
func NewStaticSource(providers []domain.IdentityProvider) (*StaticSource, error) {
	s := &StaticSource{
		providers: make(map[string]domain.IdentityProvider, len(providers)),
	}
	for i := range providers {
		idp := providers[i]
		if err := idp.Validate(); err != nil {
			return nil, err
		}
		if _, ok := s.providers[idp.EntityID]; ok {
			return nil, domain.ConfigError(idp.EntityID, "configured more than once")
		}
		s.providers[idp.EntityID] = idp
		s.order = append(s.order, idp.EntityID)
	}
	return s, nil
}

// Name identifies the source in logs and metrics.
func (s *StaticSource) Name() string { return "static" }

// Lookup returns the provider with the given entity ID.
func (s *StaticSource) Lookup(entityID string) (*domain.IdentityProvider, error) {
	idp, ok := s.providers[entityID]
	if !ok {
		return nil, domain.ErrIdPNotFound
	}
	return &idp, nil
}

// All returns the static providers in configuration order.
func (s *StaticSource) All() []domain.IdentityProvider {
	result := make([]domain.IdentityProvider, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.providers[id])
	}
	return result
}

// Ensure StaticSource implements ports.ProviderSource
var _ ports.ProviderSource = (*StaticSource)(nil)
