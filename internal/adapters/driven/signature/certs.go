package signature

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/philiph/saml-trust/internal/core/ports"
)

// LoadCertificates loads X.509 certificates from a PEM file.
// Supports multiple certificates in a single file for rotation scenarios.
func LoadCertificates(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate file: %w", err)
	}

	var certs []*x509.Certificate
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parse certificate: %w", err)
			}
			certs = append(certs, cert)
		}
		data = rest
	}

	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}

	return certs, nil
}

// FileCertificateStore resolves certificate references as PEM file paths,
// optionally relative to a base directory.
type FileCertificateStore struct {
	// BaseDir is prepended to relative references. Empty means references
	// are used as-is.
	BaseDir string
}

// NewFileCertificateStore creates a certificate store rooted at baseDir.
func NewFileCertificateStore(baseDir string) *FileCertificateStore {
	return &FileCertificateStore{BaseDir: baseDir}
}

// LoadCertificate resolves a certificate reference. An empty reference
// returns (nil, nil); when the file holds several certificates the first
// one is returned.
func (s *FileCertificateStore) LoadCertificate(ref string) (*x509.Certificate, error) {
	if ref == "" {
		return nil, nil
	}
	path := ref
	if s.BaseDir != "" && !filepath.IsAbs(ref) {
		path = filepath.Join(s.BaseDir, ref)
	}
	certs, err := LoadCertificates(path)
	if err != nil {
		return nil, err
	}
	return certs[0], nil
}

// Ensure FileCertificateStore implements ports.CertificateStore
var _ ports.CertificateStore = (*FileCertificateStore)(nil)
