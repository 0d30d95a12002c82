package samltrust

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/philiph/saml-trust/internal/adapters/driven/metadata"
	"github.com/philiph/saml-trust/internal/adapters/driven/signature"
	"github.com/philiph/saml-trust/internal/adapters/driven/source"
	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// Config is the YAML configuration of the relying service's trust setup.
type Config struct {
	SP          SPConfig           `yaml:"sp"`
	Providers   []ProviderConfig   `yaml:"providers"`
	Federations []FederationConfig `yaml:"federations"`
}

// SPConfig describes the relying service itself.
type SPConfig struct {
	// EntityID is the relying service's own entity ID, used as the issuer
	// of outbound requests.
	EntityID string `yaml:"entity_id"`

	// ACSURL is the assertion consumer endpoint responses are sent to.
	ACSURL string `yaml:"acs_url"`
}

// ProviderConfig describes one statically-configured identity provider.
type ProviderConfig struct {
	EntityID string `yaml:"entity_id"`

	// Binding is "redirect" or "post". May be left empty when MetadataURL
	// is set, in which case metadata resolution supplies it.
	Binding string `yaml:"binding"`

	// SSOURL is the single sign-on endpoint. Like Binding, metadata
	// resolution may supply or overwrite it.
	SSOURL string `yaml:"sso_url"`

	// Certificate references the partner's signing certificate in the
	// certificate store (a PEM file path for the file-based store).
	Certificate string `yaml:"certificate"`

	// MetadataURL, when set, loads the partner's metadata document after
	// the static fields and may overwrite binding, endpoint, and key.
	MetadataURL string `yaml:"metadata_url"`

	AllowUnsolicited bool `yaml:"allow_unsolicited"`
}

// FederationConfig describes one federation metadata source.
type FederationConfig struct {
	Name        string `yaml:"name"`
	MetadataURL string `yaml:"metadata_url"`

	// AllowUnsolicited is the default applied to every provider this
	// federation supplies.
	AllowUnsolicited bool `yaml:"allow_unsolicited"`

	// RefreshInterval is a Go duration string ("1h", "30m"). Empty
	// disables background refresh; the federation then only refreshes
	// when Refresh is called explicitly.
	RefreshInterval string `yaml:"refresh_interval"`

	// SigningCertificate references the federation operator's metadata
	// signing certificate. When set, documents must carry a valid
	// signature.
	SigningCertificate string `yaml:"signing_certificate"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for structural problems that no
// provider-level resolution can repair.
func (c *Config) Validate() error {
	if c.SP.EntityID == "" {
		return errors.New("sp.entity_id is required")
	}
	if c.SP.ACSURL == "" {
		return errors.New("sp.acs_url is required")
	}
	if _, err := url.Parse(c.SP.ACSURL); err != nil {
		return fmt.Errorf("sp.acs_url: %w", err)
	}

	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.EntityID == "" {
			return fmt.Errorf("providers[%d]: entity_id is required", i)
		}
		if seen[p.EntityID] {
			return fmt.Errorf("providers[%d]: entity ID %q configured more than once", i, p.EntityID)
		}
		seen[p.EntityID] = true
		if _, ok := domain.ParseBinding(p.Binding); !ok {
			return fmt.Errorf("providers[%d]: unknown binding %q", i, p.Binding)
		}
	}

	names := make(map[string]bool, len(c.Federations))
	for i, f := range c.Federations {
		if f.Name == "" {
			return fmt.Errorf("federations[%d]: name is required", i)
		}
		if names[f.Name] {
			return fmt.Errorf("federations[%d]: name %q configured more than once", i, f.Name)
		}
		names[f.Name] = true
		if f.MetadataURL == "" {
			return fmt.Errorf("federation %q: metadata_url is required", f.Name)
		}
		if f.RefreshInterval != "" {
			if _, err := time.ParseDuration(f.RefreshInterval); err != nil {
				return fmt.Errorf("federation %q: refresh_interval: %w", f.Name, err)
			}
		}
	}
	return nil
}

// BuildDeps are the external collaborators needed to assemble a registry
// from configuration.
type BuildDeps struct {
	// Fetcher retrieves and parses partner metadata documents.
	Fetcher ports.DescriptorSource

	// Certificates resolves signing certificate references from static
	// provider configuration.
	Certificates ports.CertificateStore

	// Logger is optional.
	Logger *zap.Logger

	// Metrics is optional.
	Metrics ports.MetricsRecorder
}

// BuildRegistry assembles the provider registry from configuration.
//
// Providers that fail construction or validation are skipped; their errors
// are joined into the returned error while the registry keeps serving every
// provider that did load. Federations are created and refreshed once; a
// failed initial refresh leaves the federation empty-but-registered and is
// likewise joined into the returned error. Callers own the returned
// federations and should Close them on shutdown.
func BuildRegistry(ctx context.Context, cfg *Config, deps BuildDeps) (*Registry, []*source.Federation, error) {
	var buildErrs []error

	var providers []domain.IdentityProvider
	for i := range cfg.Providers {
		idp, err := buildStaticProvider(ctx, &cfg.Providers[i], deps)
		if err != nil {
			if deps.Logger != nil {
				deps.Logger.Error("skipping misconfigured identity provider",
					zap.String("entity_id", cfg.Providers[i].EntityID),
					zap.Error(err))
			}
			buildErrs = append(buildErrs, err)
			continue
		}
		providers = append(providers, *idp)
	}

	static, err := source.NewStaticSource(providers)
	if err != nil {
		// NewStaticSource only fails on records that already passed
		// Validate, i.e. duplicates. Config.Validate catches those first.
		return nil, nil, err
	}

	sources := []ports.ProviderSource{static}
	var federations []*source.Federation
	for _, fc := range cfg.Federations {
		fed, err := buildFederation(ctx, fc, deps)
		if err != nil {
			buildErrs = append(buildErrs, err)
		}
		// A federation with a failed initial refresh still registers; it
		// serves nothing until a later refresh succeeds. Federations that
		// fail before construction (bad signing certificate reference) do
		// not register at all.
		if fed != nil {
			sources = append(sources, fed)
			federations = append(federations, fed)
		}
	}

	var opts []RegistryOption
	if deps.Metrics != nil {
		opts = append(opts, WithRegistryMetrics(deps.Metrics))
	}
	return NewRegistry(sources, opts...), federations, errors.Join(buildErrs...)
}

// buildStaticProvider runs the static construction path: direct fields,
// certificate loading, then optional metadata resolution, ending in
// Validate.
func buildStaticProvider(ctx context.Context, pc *ProviderConfig, deps BuildDeps) (*domain.IdentityProvider, error) {
	b, _ := domain.ParseBinding(pc.Binding)
	idp := &domain.IdentityProvider{
		EntityID:         pc.EntityID,
		Binding:          b,
		AllowUnsolicited: pc.AllowUnsolicited,
	}

	if pc.SSOURL != "" {
		sso, err := url.Parse(pc.SSOURL)
		if err != nil {
			return nil, domain.ConfigError(pc.EntityID, fmt.Sprintf("invalid sso_url %q: %v", pc.SSOURL, err))
		}
		idp.SSOEndpoint = sso
	}

	if pc.Certificate != "" {
		if deps.Certificates == nil {
			return nil, domain.ConfigError(pc.EntityID, "certificate configured but no certificate store available")
		}
		cert, err := deps.Certificates.LoadCertificate(pc.Certificate)
		if err != nil {
			return nil, domain.ConfigError(pc.EntityID, fmt.Sprintf("load certificate %q: %v", pc.Certificate, err))
		}
		idp.SigningCert = cert
	}

	if pc.MetadataURL != "" {
		if deps.Fetcher == nil {
			return nil, domain.ConfigError(pc.EntityID, "metadata_url configured but no metadata fetcher available")
		}
		descriptor, err := deps.Fetcher.FetchDescriptor(ctx, pc.MetadataURL)
		if err != nil {
			return nil, err
		}
		if err := idp.ApplyDescriptor(descriptor); err != nil {
			return nil, err
		}
	}

	if err := idp.Validate(); err != nil {
		return nil, err
	}
	return idp, nil
}

// buildFederation creates a federation source and performs its initial
// refresh.
func buildFederation(ctx context.Context, fc FederationConfig, deps BuildDeps) (*source.Federation, error) {
	opts := []source.FederationOption{
		source.WithAllowUnsolicited(fc.AllowUnsolicited),
	}
	if deps.Logger != nil {
		opts = append(opts, source.WithLogger(deps.Logger))
	}
	if deps.Metrics != nil {
		opts = append(opts, source.WithMetricsRecorder(deps.Metrics))
	}

	fetcher := deps.Fetcher
	if fc.SigningCertificate != "" {
		if deps.Certificates == nil {
			return nil, fmt.Errorf("federation %q: signing_certificate configured but no certificate store available", fc.Name)
		}
		cert, err := deps.Certificates.LoadCertificate(fc.SigningCertificate)
		if err != nil {
			return nil, fmt.Errorf("federation %q: load signing certificate: %w", fc.Name, err)
		}
		verifier := signature.NewXMLDsigVerifier(cert)
		if deps.Logger != nil {
			verifier = verifier.WithLogger(deps.Logger)
		}
		fetcherOpts := []metadata.HTTPFetcherOption{
			metadata.WithSignatureVerifier(verifier),
		}
		if deps.Logger != nil {
			fetcherOpts = append(fetcherOpts, metadata.WithFetcherLogger(deps.Logger))
		}
		fetcher = metadata.NewHTTPFetcher(fetcherOpts...)
	}

	var fed *source.Federation
	if fc.RefreshInterval != "" {
		interval, err := time.ParseDuration(fc.RefreshInterval)
		if err != nil {
			// Config.Validate rejects this earlier; kept for direct callers.
			return nil, fmt.Errorf("federation %q: refresh_interval: %w", fc.Name, err)
		}
		fed = source.NewFederationWithRefresh(fc.Name, fc.MetadataURL, fetcher, interval, opts...)
	} else {
		fed = source.NewFederation(fc.Name, fc.MetadataURL, fetcher, opts...)
	}

	if err := fed.Refresh(ctx); err != nil {
		return fed, err
	}
	return fed, nil
}
