package metadata

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crewjam/saml"

	"github.com/philiph/saml-trust/internal/core/domain"
)

// ErrMetadataExpired is returned when a metadata document carries a
// validUntil attribute that is in the past. Expired trust data is never
// served.
var ErrMetadataExpired = errors.New("metadata expired")

// rawMetadataValidity is used to extract validUntil from metadata.
// Works for both EntitiesDescriptor and EntityDescriptor.
type rawMetadataValidity struct {
	ValidUntil string `xml:"validUntil,attr"`
}

// ParseDescriptors parses SAML metadata XML into partner descriptors,
// supporting both single EntityDescriptor and aggregate EntitiesDescriptor
// formats (including nested aggregates).
// Entities without an IDPSSODescriptor (SP metadata, attribute authorities)
// are skipped.
func ParseDescriptors(data []byte) ([]domain.PartnerDescriptor, error) {
	if err := checkExpiry(data, time.Now()); err != nil {
		return nil, err
	}

	// Try EntitiesDescriptor first (aggregate metadata)
	var entities saml.EntitiesDescriptor
	if err := xml.Unmarshal(data, &entities); err == nil && (len(entities.EntityDescriptors) > 0 || len(entities.EntitiesDescriptors) > 0) {
		descriptors := collectDescriptors(&entities)
		if len(descriptors) == 0 {
			return nil, fmt.Errorf("no identity providers found in aggregate metadata")
		}
		return descriptors, nil
	}

	// Fall back to single EntityDescriptor
	var entity saml.EntityDescriptor
	if err := xml.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	descriptor, err := toPartnerDescriptor(&entity)
	if err != nil {
		return nil, err
	}
	return []domain.PartnerDescriptor{*descriptor}, nil
}

// ParseDescriptor parses a single-entity metadata document.
func ParseDescriptor(data []byte) (*domain.PartnerDescriptor, error) {
	descriptors, err := ParseDescriptors(data)
	if err != nil {
		return nil, err
	}
	if len(descriptors) != 1 {
		return nil, fmt.Errorf("expected a single entity descriptor, found %d", len(descriptors))
	}
	return &descriptors[0], nil
}

// checkExpiry rejects metadata whose validUntil is in the past.
func checkExpiry(data []byte, now time.Time) error {
	var validity rawMetadataValidity
	if err := xml.Unmarshal(data, &validity); err != nil {
		// Let the main parser report the malformed document.
		return nil
	}
	if validity.ValidUntil == "" {
		return nil
	}

	validUntil, err := time.Parse(time.RFC3339, validity.ValidUntil)
	if err != nil {
		return fmt.Errorf("invalid validUntil format %q: %w", validity.ValidUntil, err)
	}
	if !now.Before(validUntil) {
		return fmt.Errorf("%w: validUntil %s is in the past", ErrMetadataExpired, validity.ValidUntil)
	}
	return nil
}

// collectDescriptors walks an aggregate document, including nested
// EntitiesDescriptor elements, in document order.
func collectDescriptors(entities *saml.EntitiesDescriptor) []domain.PartnerDescriptor {
	var descriptors []domain.PartnerDescriptor
	for i := range entities.EntityDescriptors {
		descriptor, err := toPartnerDescriptor(&entities.EntityDescriptors[i])
		if err != nil {
			continue
		}
		descriptors = append(descriptors, *descriptor)
	}
	for i := range entities.EntitiesDescriptors {
		descriptors = append(descriptors, collectDescriptors(&entities.EntitiesDescriptors[i])...)
	}
	return descriptors
}

// toPartnerDescriptor extracts the SSO endpoints and keys of one entity.
func toPartnerDescriptor(ed *saml.EntityDescriptor) (*domain.PartnerDescriptor, error) {
	if ed.EntityID == "" {
		return nil, fmt.Errorf("missing entityID attribute")
	}
	if len(ed.IDPSSODescriptors) == 0 {
		return nil, fmt.Errorf("no IDPSSODescriptor found")
	}

	idpDesc := ed.IDPSSODescriptors[0]
	descriptor := &domain.PartnerDescriptor{EntityID: ed.EntityID}

	for _, sso := range idpDesc.SingleSignOnServices {
		descriptor.SSOEndpoints = append(descriptor.SSOEndpoints, domain.Endpoint{
			Binding:  sso.Binding,
			Location: sso.Location,
		})
	}

	for _, kd := range idpDesc.KeyDescriptors {
		for _, raw := range kd.KeyInfo.X509Data.X509Certificates {
			cert, err := parseCertificate(raw.Data)
			if err != nil {
				return nil, fmt.Errorf("entity %q: parse certificate: %w", ed.EntityID, err)
			}
			descriptor.SigningKeys = append(descriptor.SigningKeys, domain.KeyDescriptor{
				Use:         kd.Use,
				Certificate: cert,
			})
		}
	}

	return descriptor, nil
}

// parseCertificate decodes the base64 DER certificate carried in a
// KeyDescriptor. Metadata documents commonly wrap the base64 across lines.
func parseCertificate(data string) (*x509.Certificate, error) {
	compact := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, data)

	der, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse DER: %w", err)
	}
	return cert, nil
}
