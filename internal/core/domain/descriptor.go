package domain

import (
	"crypto/x509"
	"fmt"
	"net/url"
)

// Key uses as declared in partner metadata. An empty use means unspecified,
// which counts as a signing key.
const (
	KeyUseSigning    = "signing"
	KeyUseEncryption = "encryption"
)

// Endpoint is one single sign-on service entry from a partner descriptor.
type Endpoint struct {
	// Binding is the SAML binding URI of the endpoint.
	Binding string

	// Location is the endpoint URL.
	Location string
}

// KeyDescriptor is one key entry from a partner descriptor.
type KeyDescriptor struct {
	// Use is the declared key use: "signing", "encryption", or "" for
	// unspecified.
	Use string

	// Certificate carries the key material.
	Certificate *x509.Certificate
}

// PartnerDescriptor is the parsed form of one partner's metadata document.
// Retrieval and XML parsing are adapter responsibilities; the resolver below
// only consumes the parsed result.
type PartnerDescriptor struct {
	// EntityID is the entity ID declared by the descriptor.
	EntityID string

	// SSOEndpoints are the single sign-on endpoints in document order.
	SSOEndpoints []Endpoint

	// SigningKeys are the declared keys in document order.
	SigningKeys []KeyDescriptor
}

// ApplyDescriptor resolves a partner descriptor into this trust record.
// It is pure given its input: no network access, no clock.
//
// Entity ID reconciliation: a record that already has an entity ID (the
// static-configuration path) must match the descriptor exactly; a record
// without one (the federation path) adopts the descriptor's.
//
// Endpoint selection prefers the HTTP-Redirect binding regardless of
// document order, falling back to HTTP-POST. Key selection requires exactly
// one signing key (use "signing" or unspecified).
//
// All failures are terminal configuration errors; on error the record is
// left unchanged.
func (idp *IdentityProvider) ApplyDescriptor(d *PartnerDescriptor) error {
	if d.EntityID == "" {
		return ConfigError(idp.EntityID, "metadata descriptor has no entity ID")
	}
	if idp.EntityID != "" && idp.EntityID != d.EntityID {
		return ConfigError(idp.EntityID,
			fmt.Sprintf("entity ID mismatch: configured %q but metadata reports %q", idp.EntityID, d.EntityID))
	}
	entityID := d.EntityID

	endpoint, binding, err := selectSSOEndpoint(entityID, d.SSOEndpoints)
	if err != nil {
		return err
	}

	cert, err := selectSigningKey(entityID, d.SigningKeys)
	if err != nil {
		return err
	}

	idp.EntityID = entityID
	idp.Binding = binding
	idp.SSOEndpoint = endpoint
	idp.SigningCert = cert
	return nil
}

// selectSSOEndpoint picks the redirect endpoint if any exists, otherwise the
// first POST endpoint. No usable endpoint is a configuration error.
func selectSSOEndpoint(entityID string, endpoints []Endpoint) (*url.URL, Binding, error) {
	var selected *Endpoint
	var binding Binding
	for i := range endpoints {
		ep := &endpoints[i]
		if ep.Binding == HTTPRedirectBindingURI {
			selected = ep
			binding = BindingRedirect
			break
		}
		if ep.Binding == HTTPPostBindingURI && selected == nil {
			selected = ep
			binding = BindingPost
		}
	}
	if selected == nil {
		return nil, BindingUnset, ConfigError(entityID, "metadata has no usable single sign-on endpoint")
	}

	location, err := url.Parse(selected.Location)
	if err != nil {
		return nil, BindingUnset, ConfigError(entityID,
			fmt.Sprintf("invalid single sign-on endpoint %q: %v", selected.Location, err))
	}
	return location, binding, nil
}

// selectSigningKey keeps keys declared for signing or with unspecified use
// and requires exactly one.
func selectSigningKey(entityID string, keys []KeyDescriptor) (*x509.Certificate, error) {
	var cert *x509.Certificate
	count := 0
	for i := range keys {
		if keys[i].Use == KeyUseSigning || keys[i].Use == "" {
			cert = keys[i].Certificate
			count++
		}
	}
	switch {
	case count == 0:
		return nil, ConfigError(entityID, "metadata has no signing key")
	case count > 1:
		return nil, ConfigError(entityID,
			fmt.Sprintf("metadata has %d signing keys, expected exactly one", count))
	case cert == nil:
		return nil, ConfigError(entityID, "signing key has no certificate material")
	}
	return cert, nil
}
