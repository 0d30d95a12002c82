package samltrust

import (
	"errors"

	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// Registry is the single lookup surface over all trusted identity
// providers: one static source followed by zero or more federations in
// configuration order.
//
// A Registry is built once during service initialization and passed by
// reference to request-handling code. It is never mutated after
// construction; federations refresh their own snapshots internally, so
// concurrent lookups are safe without further locking.
type Registry struct {
	sources []ports.ProviderSource
	metrics ports.MetricsRecorder
}

// RegistryOption is a functional option for configuring a Registry.
type RegistryOption func(*Registry)

// WithRegistryMetrics returns an option that records lookup metrics.
func WithRegistryMetrics(recorder ports.MetricsRecorder) RegistryOption {
	return func(r *Registry) {
		r.metrics = recorder
	}
}

// NewRegistry composes the given sources in precedence order. The static
// source goes first; federations follow in configuration order.
func NewRegistry(sources []ports.ProviderSource, opts ...RegistryOption) *Registry {
	r := &Registry{sources: sources}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the trust record for the given entity ID. Sources are
// checked in precedence order and the first match wins; fields are never
// merged across sources. A miss in every source returns an error wrapping
// domain.ErrIdPNotFound.
func (r *Registry) Lookup(entityID string) (*domain.IdentityProvider, error) {
	for _, source := range r.sources {
		idp, err := source.Lookup(entityID)
		if err == nil {
			if r.metrics != nil {
				r.metrics.RecordLookup(source.Name(), true)
			}
			return idp, nil
		}
		if !errors.Is(err, domain.ErrIdPNotFound) {
			return nil, err
		}
	}
	if r.metrics != nil {
		r.metrics.RecordLookup("none", false)
	}
	return nil, domain.IdPNotFoundError(entityID)
}

// All returns every known trust record: static records first, then each
// federation's, in precedence order. The same entity ID appearing in
// several sources is returned once per source; the registry does not
// deduplicate across federations.
func (r *Registry) All() []domain.IdentityProvider {
	var result []domain.IdentityProvider
	for _, source := range r.sources {
		result = append(result, source.All()...)
	}
	return result
}
