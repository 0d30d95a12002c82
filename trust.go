package samltrust

import (
	"github.com/philiph/saml-trust/internal/adapters/driven/source"
	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// Re-export domain types
type IdentityProvider = domain.IdentityProvider
type PartnerDescriptor = domain.PartnerDescriptor
type Endpoint = domain.Endpoint
type KeyDescriptor = domain.KeyDescriptor
type Binding = domain.Binding
type FederationHealth = domain.FederationHealth

// Re-export binding enum values
const (
	BindingUnset    = domain.BindingUnset
	BindingRedirect = domain.BindingRedirect
	BindingPost     = domain.BindingPost
)

// Re-export binding helpers
var (
	BindingFromURI = domain.BindingFromURI
	ParseBinding   = domain.ParseBinding
)

// Re-export port interfaces
type ProviderSource = ports.ProviderSource
type DescriptorSource = ports.DescriptorSource
type CertificateStore = ports.CertificateStore
type SignatureVerifier = ports.SignatureVerifier
type MetadataSigner = ports.MetadataSigner

// Re-export provider source adapters
type StaticSource = source.StaticSource
type Federation = source.Federation
type FederationOption = source.FederationOption

var (
	NewStaticSource          = source.NewStaticSource
	NewFederation            = source.NewFederation
	NewFederationWithRefresh = source.NewFederationWithRefresh
	WithAllowUnsolicited     = source.WithAllowUnsolicited
	WithLogger               = source.WithLogger
	WithMetricsRecorder      = source.WithMetricsRecorder
	WithOnRefresh            = source.WithOnRefresh
	WithClock                = source.WithClock
)
