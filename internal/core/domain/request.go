package domain

import (
	"net/url"
	"time"
)

// PendingRequest correlates an outbound AuthnRequest with the context needed
// to process its eventual response. Entries are keyed by RequestID and
// consumed at most once.
type PendingRequest struct {
	// RequestID is the unique ID of the outbound AuthnRequest.
	RequestID string

	// IdPEntityID names the provider the request was sent to. The response
	// handler rejects responses issued by anyone else.
	IdPEntityID string

	// ReturnURL is where the user agent is sent after the response has
	// been processed.
	ReturnURL string
}

// AuthnRequest is an outbound authentication request before wire encoding.
// Encoding and signing happen in the binding adapters.
type AuthnRequest struct {
	// ID is the unique request identifier, also the correlation key in the
	// pending-request store.
	ID string

	// Destination is the IdP single sign-on endpoint.
	Destination *url.URL

	// Issuer is the relying service's own entity ID.
	Issuer string

	// ACSURL is the relying service's assertion consumer endpoint.
	ACSURL *url.URL

	// IssueInstant is when the request was created.
	IssueInstant time.Time
}

// BoundRequest is an AuthnRequest encoded for a specific transport binding.
// For the redirect binding URL is set; for the POST binding Body holds an
// auto-submitting HTML document.
type BoundRequest struct {
	Binding Binding
	URL     *url.URL
	Body    []byte
}
