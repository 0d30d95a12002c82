package ports

import (
	"github.com/philiph/saml-trust/internal/core/domain"
)

// ProviderSource is the port interface for one source of trust records.
// A registry composes a static source and zero or more federations in fixed
// precedence order. Implementations must be safe for concurrent reads.
type ProviderSource interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Lookup returns the provider with the given entity ID, or an error
	// wrapping domain.ErrIdPNotFound when this source does not know it.
	Lookup(entityID string) (*domain.IdentityProvider, error)

	// All returns this source's providers. The returned slice is owned by
	// the caller.
	All() []domain.IdentityProvider
}
