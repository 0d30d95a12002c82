package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// maxDocumentSize caps fetched metadata documents. Large federation
// aggregates run to a few tens of megabytes; anything beyond this is
// treated as a retrieval failure.
const maxDocumentSize = 64 << 20

// HTTPFetcher retrieves partner metadata documents over HTTP(S).
type HTTPFetcher struct {
	httpClient *http.Client
	verifier   ports.SignatureVerifier
	logger     *zap.Logger
}

// HTTPFetcherOption is a functional option for configuring an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithHTTPClient returns an option that sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.httpClient = client
	}
}

// WithSignatureVerifier returns an option that enables signature
// verification. When set, documents are verified against the trusted
// certificates before parsing and the validated bytes are parsed.
func WithSignatureVerifier(verifier ports.SignatureVerifier) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.verifier = verifier
	}
}

// WithFetcherLogger returns an option that sets the logger for fetch events.
func WithFetcherLogger(logger *zap.Logger) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher creates a fetcher with a 30 second request timeout.
func NewHTTPFetcher(opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchDescriptor retrieves the descriptor of a single partner.
func (f *HTTPFetcher) FetchDescriptor(ctx context.Context, location string) (*domain.PartnerDescriptor, error) {
	data, err := f.fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	descriptor, err := ParseDescriptor(data)
	if err != nil {
		return nil, domain.RetrievalError(location, err)
	}
	return descriptor, nil
}

// FetchDescriptors retrieves all partner descriptors from an aggregate
// federation document.
func (f *HTTPFetcher) FetchDescriptors(ctx context.Context, location string) ([]domain.PartnerDescriptor, error) {
	data, err := f.fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	descriptors, err := ParseDescriptors(data)
	if err != nil {
		return nil, domain.RetrievalError(location, err)
	}
	return descriptors, nil
}

// fetch retrieves the raw document and runs signature verification when
// configured.
func (f *HTTPFetcher) fetch(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, domain.RetrievalError(location, err)
	}
	req.Header.Set("User-Agent", "saml-trust")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, domain.RetrievalError(location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.RetrievalError(location, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, domain.RetrievalError(location, err)
	}

	if f.verifier != nil {
		data, err = f.verifier.Verify(data)
		if err != nil {
			if f.logger != nil {
				f.logger.Warn("metadata signature verification failed",
					zap.String("location", location),
					zap.Error(err))
			}
			return nil, domain.RetrievalError(location, err)
		}
	}

	return data, nil
}

// Ensure HTTPFetcher implements ports.DescriptorSource
var _ ports.DescriptorSource = (*HTTPFetcher)(nil)
