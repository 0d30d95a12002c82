package metadata

import (
	"context"
	"os"

	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// FileFetcher retrieves partner metadata documents from the local
// filesystem. Useful for air-gapped deployments where federation documents
// are distributed out of band.
type FileFetcher struct {
	verifier ports.SignatureVerifier
}

// NewFileFetcher creates a file-based descriptor source.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// NewFileFetcherWithVerifier creates a file-based descriptor source that
// verifies document signatures before parsing.
func NewFileFetcherWithVerifier(verifier ports.SignatureVerifier) *FileFetcher {
	return &FileFetcher{verifier: verifier}
}

// FetchDescriptor reads and parses a single-entity metadata file.
func (f *FileFetcher) FetchDescriptor(ctx context.Context, location string) (*domain.PartnerDescriptor, error) {
	data, err := f.read(location)
	if err != nil {
		return nil, err
	}
	descriptor, err := ParseDescriptor(data)
	if err != nil {
		return nil, domain.RetrievalError(location, err)
	}
	return descriptor, nil
}

// FetchDescriptors reads and parses an aggregate metadata file.
func (f *FileFetcher) FetchDescriptors(ctx context.Context, location string) ([]domain.PartnerDescriptor, error) {
	data, err := f.read(location)
	if err != nil {
		return nil, err
	}
	descriptors, err := ParseDescriptors(data)
	if err != nil {
		return nil, domain.RetrievalError(location, err)
	}
	return descriptors, nil
}

func (f *FileFetcher) read(location string) ([]byte, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, domain.RetrievalError(location, err)
	}
	if f.verifier != nil {
		data, err = f.verifier.Verify(data)
		if err != nil {
			return nil, domain.RetrievalError(location, err)
		}
	}
	return data, nil
}

// Ensure FileFetcher implements ports.DescriptorSource
var _ ports.DescriptorSource = (*FileFetcher)(nil)
