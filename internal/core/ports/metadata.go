package ports

import (
	"context"

	"github.com/philiph/saml-trust/internal/core/domain"
)

// DescriptorSource is the port interface for retrieving and parsing partner
// metadata documents. Retrieval failures are transient and scoped to the
// provider or federation being loaded.
type DescriptorSource interface {
	// FetchDescriptor retrieves the descriptor of a single partner.
	FetchDescriptor(ctx context.Context, location string) (*domain.PartnerDescriptor, error)

	// FetchDescriptors retrieves all partner descriptors from an aggregate
	// federation document, in document order.
	FetchDescriptors(ctx context.Context, location string) ([]domain.PartnerDescriptor, error)
}
