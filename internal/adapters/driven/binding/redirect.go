package binding

import (
	"crypto/rsa"
	"crypto/x509"

	"github.com/crewjam/saml"

	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// RedirectBinder encodes AuthnRequests for the HTTP-Redirect binding:
// deflated, base64-encoded and carried in the SAMLRequest query parameter.
type RedirectBinder struct {
	// Key and Certificate are optional. When both are set together with
	// SignatureMethod, redirect requests are signed (SigAlg/Signature
	// query parameters).
	Key             *rsa.PrivateKey
	Certificate     *x509.Certificate
	SignatureMethod string
}

// NewRedirectBinder creates an unsigned redirect binder.
func NewRedirectBinder() *RedirectBinder {
	return &RedirectBinder{}
}

// NewSignedRedirectBinder creates a redirect binder that signs requests with
// RSA-SHA256.
func NewSignedRedirectBinder(key *rsa.PrivateKey, cert *x509.Certificate) *RedirectBinder {
	return &RedirectBinder{
		Key:             key,
		Certificate:     cert,
		SignatureMethod: "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256",
	}
}

// Binding reports the binding this implementation serves.
func (b *RedirectBinder) Binding() domain.Binding { return domain.BindingRedirect }

// Bind encodes the request as a redirect URL.
func (b *RedirectBinder) Bind(req *domain.AuthnRequest, relayState string) (*domain.BoundRequest, error) {
	authReq := toSAMLRequest(req)

	sp := &saml.ServiceProvider{
		EntityID:        req.Issuer,
		Key:             b.Key,
		Certificate:     b.Certificate,
		SignatureMethod: b.SignatureMethod,
	}

	redirectURL, err := authReq.Redirect(relayState, sp)
	if err != nil {
		return nil, domain.ServiceError("encode redirect request", err)
	}
	return &domain.BoundRequest{
		Binding: domain.BindingRedirect,
		URL:     redirectURL,
	}, nil
}

// toSAMLRequest converts the domain request into the wire representation.
func toSAMLRequest(req *domain.AuthnRequest) *saml.AuthnRequest {
	return &saml.AuthnRequest{
		ID:                          req.ID,
		Version:                     "2.0",
		IssueInstant:                req.IssueInstant,
		Destination:                 req.Destination.String(),
		AssertionConsumerServiceURL: req.ACSURL.String(),
		ProtocolBinding:             saml.HTTPPostBinding,
		Issuer: &saml.Issuer{
			Format: "urn:oasis:names:tc:SAML:2.0:nameid-format:entity",
			Value:  req.Issuer,
		},
	}
}

// Ensure RedirectBinder implements ports.RequestBinder
var _ ports.RequestBinder = (*RedirectBinder)(nil)
