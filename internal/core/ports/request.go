package ports

import (
	"time"

	"github.com/philiph/saml-trust/internal/core/domain"
)

// PendingRequestStore tracks in-flight authentication requests so a later
// response can be matched to the request that triggered it.
// Implementations must be safe for concurrent use.
type PendingRequestStore interface {
	// Insert registers a pending request under its request ID with the
	// given expiry. Inserting an ID that is already present is an error.
	Insert(req domain.PendingRequest, expiry time.Time) error

	// Consume atomically reads and removes the entry for the given request
	// ID. A second consume of the same ID fails with an error wrapping
	// domain.ErrRequestReplayed; an unknown ID fails with
	// domain.ErrRequestNotFound. The distinction lets callers treat replay
	// as a potential forged response.
	Consume(requestID string) (*domain.PendingRequest, error)

	// Active returns the IDs of all unconsumed, unexpired entries.
	// Used for InResponseTo validation.
	Active() []string
}

// RequestBinder encodes an AuthnRequest for one transport binding.
type RequestBinder interface {
	// Binding reports which binding this implementation serves.
	Binding() domain.Binding

	// Bind encodes the request, carrying relayState through the round trip.
	Bind(req *domain.AuthnRequest, relayState string) (*domain.BoundRequest, error)
}

// RelayStateCodec encodes the correlation key carried through the browser
// round trip alongside the AuthnRequest.
type RelayStateCodec interface {
	// Encode returns the relay state for a pending request.
	Encode(req domain.PendingRequest) (string, error)

	// Decode returns the request ID carried by the relay state, verifying
	// its integrity.
	Decode(relayState string) (string, error)
}
