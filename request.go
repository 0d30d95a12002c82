package samltrust

import (
	"github.com/philiph/saml-trust/internal/adapters/driven/relay"
	"github.com/philiph/saml-trust/internal/adapters/driven/request"
	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// Re-export request types
type AuthnRequest = domain.AuthnRequest
type BoundRequest = domain.BoundRequest
type PendingRequest = domain.PendingRequest

// Re-export port interfaces
type PendingRequestStore = ports.PendingRequestStore
type RequestBinder = ports.RequestBinder
type RelayStateCodec = ports.RelayStateCodec

// Re-export pending store adapter
type InMemoryPendingStore = request.InMemoryPendingStore

var (
	NewInMemoryPendingStore            = request.NewInMemoryPendingStore
	NewInMemoryPendingStoreWithCleanup = request.NewInMemoryPendingStoreWithCleanup
	WithOnCleanup                      = request.WithOnCleanup
	WithStoreClock                     = request.WithStoreClock
)

// Re-export relay-state codec
type JWTRelayCodec = relay.JWTCodec

var (
	NewJWTRelayCodec     = relay.NewJWTCodec
	ErrInvalidRelayState = relay.ErrInvalidRelayState
)
