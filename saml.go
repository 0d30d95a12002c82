package samltrust

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/philiph/saml-trust/internal/adapters/driven/binding"
	"github.com/philiph/saml-trust/internal/adapters/driven/request"
	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// DefaultRequestValidity is how long an issued AuthnRequest stays
// consumable in the pending-request store.
const DefaultRequestValidity = 10 * time.Minute

// DefaultRequestCleanupInterval is the default interval for evicting
// expired pending-request entries.
const DefaultRequestCleanupInterval = 5 * time.Minute

// ServiceProvider issues outbound authentication requests on behalf of the
// relying service and tracks them for response correlation.
type ServiceProvider struct {
	entityID        string
	acsURL          *url.URL
	pending         ports.PendingRequestStore
	binders         map[domain.Binding]ports.RequestBinder
	relayCodec      ports.RelayStateCodec
	requestValidity time.Duration
	logger          *zap.Logger
	metrics         ports.MetricsRecorder
}

// ServiceProviderOption is a functional option for configuring a
// ServiceProvider.
type ServiceProviderOption func(*ServiceProvider)

// WithPendingStore returns an option that sets a custom pending-request
// store. The default is an in-memory store without background cleanup.
func WithPendingStore(store ports.PendingRequestStore) ServiceProviderOption {
	return func(s *ServiceProvider) {
		s.pending = store
	}
}

// WithBinder returns an option that registers a transport binding
// implementation, replacing the default for that binding.
func WithBinder(b ports.RequestBinder) ServiceProviderOption {
	return func(s *ServiceProvider) {
		s.binders[b.Binding()] = b
	}
}

// WithRelayStateCodec returns an option that sets the codec used to encode
// the relay state of outbound requests. Without a codec the return URL is
// carried as the relay state verbatim.
func WithRelayStateCodec(codec ports.RelayStateCodec) ServiceProviderOption {
	return func(s *ServiceProvider) {
		s.relayCodec = codec
	}
}

// WithRequestValidity returns an option that overrides how long issued
// requests stay consumable.
func WithRequestValidity(d time.Duration) ServiceProviderOption {
	return func(s *ServiceProvider) {
		s.requestValidity = d
	}
}

// WithServiceLogger returns an option that sets the logger.
func WithServiceLogger(logger *zap.Logger) ServiceProviderOption {
	return func(s *ServiceProvider) {
		s.logger = logger
	}
}

// WithServiceMetrics returns an option that records request metrics.
func WithServiceMetrics(recorder ports.MetricsRecorder) ServiceProviderOption {
	return func(s *ServiceProvider) {
		s.metrics = recorder
	}
}

// NewServiceProvider creates a service provider with the relying service's
// own entity ID and assertion consumer URL.
func NewServiceProvider(entityID string, acsURL *url.URL, opts ...ServiceProviderOption) *ServiceProvider {
	s := &ServiceProvider{
		entityID: entityID,
		acsURL:   acsURL,
		binders: map[domain.Binding]ports.RequestBinder{
			domain.BindingRedirect: binding.NewRedirectBinder(),
			domain.BindingPost:     binding.NewPostBinder(),
		},
		requestValidity: DefaultRequestValidity,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pending == nil {
		s.pending = request.NewInMemoryPendingStore()
	}
	return s
}

// PendingRequests exposes the correlation store so the response handler can
// consume entries.
func (s *ServiceProvider) PendingRequests() ports.PendingRequestStore {
	return s.pending
}

// Close stops the background cleanup goroutine of the pending store, if any.
func (s *ServiceProvider) Close() error {
	if closer, ok := s.pending.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// CreateAuthenticationRequest produces an outbound authentication request
// addressed to the provider's SSO endpoint and registers it in the
// pending-request store. The correlation entry exists before this method
// returns, so a response can never arrive before its entry does.
func (s *ServiceProvider) CreateAuthenticationRequest(idp *domain.IdentityProvider, returnURL string) (*domain.AuthnRequest, error) {
	if err := idp.Validate(); err != nil {
		return nil, err
	}

	id, err := newRequestID()
	if err != nil {
		return nil, domain.ServiceError("generate request ID", err)
	}

	req := &domain.AuthnRequest{
		ID:           id,
		Destination:  idp.SSOEndpoint,
		Issuer:       s.entityID,
		ACSURL:       s.acsURL,
		IssueInstant: time.Now().UTC(),
	}

	pending := domain.PendingRequest{
		RequestID:   id,
		IdPEntityID: idp.EntityID,
		ReturnURL:   returnURL,
	}
	if err := s.pending.Insert(pending, req.IssueInstant.Add(s.requestValidity)); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Debug("authentication request created",
			zap.String("request_id", id),
			zap.String("idp_entity_id", idp.EntityID))
	}
	if s.metrics != nil {
		s.metrics.RecordRequestIssued(idp.EntityID)
	}
	return req, nil
}

// Bind encodes the request for the provider's transport binding. It only
// selects the binding implementation; the encoding itself lives in the
// binding adapters.
func (s *ServiceProvider) Bind(idp *domain.IdentityProvider, req *domain.AuthnRequest) (*domain.BoundRequest, error) {
	binder, ok := s.binders[idp.Binding]
	if !ok {
		return nil, domain.ConfigError(idp.EntityID,
			fmt.Sprintf("no binder registered for binding %q", idp.Binding))
	}

	relayState, err := s.relayState(idp, req)
	if err != nil {
		return nil, err
	}
	return binder.Bind(req, relayState)
}

// CorrelateResponse consumes the pending entry for a response's
// InResponseTo request ID. Exactly one call per issued request succeeds; a
// second call reports replay via domain.ErrRequestReplayed, an unknown ID
// reports domain.ErrRequestNotFound.
func (s *ServiceProvider) CorrelateResponse(requestID string) (*domain.PendingRequest, error) {
	pending, err := s.pending.Consume(requestID)

	if s.metrics != nil {
		outcome := "consumed"
		switch {
		case errors.Is(err, domain.ErrRequestReplayed):
			outcome = "replayed"
		case err != nil:
			outcome = "not_found"
		}
		s.metrics.RecordCorrelation(outcome)
	}

	if err != nil {
		if s.logger != nil {
			s.logger.Warn("response correlation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
		}
		return nil, err
	}
	return pending, nil
}

// StartAuth is the common flow: create the request and bind it in one call.
func (s *ServiceProvider) StartAuth(idp *domain.IdentityProvider, returnURL string) (*domain.BoundRequest, error) {
	req, err := s.CreateAuthenticationRequest(idp, returnURL)
	if err != nil {
		return nil, err
	}
	return s.Bind(idp, req)
}

// relayState encodes the correlation key for the browser round trip.
func (s *ServiceProvider) relayState(idp *domain.IdentityProvider, req *domain.AuthnRequest) (string, error) {
	if s.relayCodec == nil {
		return "", nil
	}
	relay, err := s.relayCodec.Encode(domain.PendingRequest{
		RequestID:   req.ID,
		IdPEntityID: idp.EntityID,
	})
	if err != nil {
		return "", domain.ServiceError("encode relay state", err)
	}
	return relay, nil
}

// newRequestID generates a fresh unique request identifier in the
// id-<hex> form that SAML implementations conventionally use (XML IDs
// must not start with a digit).
func newRequestID() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("id-%x", buf), nil
}
