package domain

import (
	"crypto"
	"crypto/x509"
	"net/url"
)

// Binding is the transport binding used to deliver an AuthnRequest to an IdP.
type Binding int

const (
	// BindingUnset means no binding has been resolved yet. A provider with
	// an unset binding never passes Validate.
	BindingUnset Binding = iota

	// BindingRedirect is the HTTP-Redirect binding (deflated request in a
	// query parameter).
	BindingRedirect

	// BindingPost is the HTTP-POST binding (auto-submitting HTML form).
	BindingPost
)

// SAML 2.0 binding URIs. Kept here so the resolver stays free of external
// dependencies; they are identical to the crewjam/saml constants used at
// the adapter edges.
const (
	HTTPRedirectBindingURI = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-Redirect"
	HTTPPostBindingURI     = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST"
)

// String returns a short name for the binding.
func (b Binding) String() string {
	switch b {
	case BindingRedirect:
		return "redirect"
	case BindingPost:
		return "post"
	default:
		return "unset"
	}
}

// URI returns the SAML binding URI, or empty string for BindingUnset.
func (b Binding) URI() string {
	switch b {
	case BindingRedirect:
		return HTTPRedirectBindingURI
	case BindingPost:
		return HTTPPostBindingURI
	default:
		return ""
	}
}

// BindingFromURI maps a SAML binding URI to the internal enum.
// Returns BindingUnset, false for unrecognized URIs.
func BindingFromURI(uri string) (Binding, bool) {
	switch uri {
	case HTTPRedirectBindingURI:
		return BindingRedirect, true
	case HTTPPostBindingURI:
		return BindingPost, true
	default:
		return BindingUnset, false
	}
}

// ParseBinding maps a configuration binding name ("redirect" or "post") to
// the internal enum. Returns BindingUnset, false for unknown names.
func ParseBinding(name string) (Binding, bool) {
	switch name {
	case "redirect":
		return BindingRedirect, true
	case "post":
		return BindingPost, true
	case "":
		return BindingUnset, true
	default:
		return BindingUnset, false
	}
}

// IdentityProvider is the validated trust record for one identity provider.
// This is the core domain model - it has no external dependencies.
//
// A record enters a provider source only after Validate has passed; after
// that it is immutable and safe to share across goroutines.
type IdentityProvider struct {
	// EntityID is the unique, case-sensitive identifier of the partner.
	EntityID string

	// Binding is the transport binding used for outbound AuthnRequests.
	Binding Binding

	// SSOEndpoint is the destination for outbound AuthnRequests.
	SSOEndpoint *url.URL

	// SigningCert is the certificate whose public key verifies assertions
	// and responses signed by this partner.
	SigningCert *x509.Certificate

	// AllowUnsolicited reports whether IdP-initiated (unsolicited)
	// responses from this partner are accepted.
	AllowUnsolicited bool
}

// SigningKey returns the public key of the signing certificate, or nil if
// no certificate has been resolved yet.
func (idp *IdentityProvider) SigningKey() crypto.PublicKey {
	if idp.SigningCert == nil {
		return nil
	}
	return idp.SigningCert.PublicKey
}

// Validate enforces the trust-record invariant: binding resolved, signing
// certificate present, SSO endpoint present. It runs as the final step of
// every construction path; a record failing it must never enter a registry.
func (idp *IdentityProvider) Validate() error {
	if idp.Binding == BindingUnset {
		return ConfigError(idp.EntityID, "no binding configured")
	}
	if idp.SigningCert == nil {
		return ConfigError(idp.EntityID, "no signing certificate configured")
	}
	if idp.SSOEndpoint == nil {
		return ConfigError(idp.EntityID, "no single sign-on endpoint configured")
	}
	return nil
}
