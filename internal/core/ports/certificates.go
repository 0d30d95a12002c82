package ports

import "crypto/x509"

// CertificateStore loads partner signing certificates referenced from
// static configuration.
type CertificateStore interface {
	// LoadCertificate resolves a certificate reference. It returns
	// (nil, nil) when the reference is empty and an error when the
	// reference cannot be resolved.
	LoadCertificate(ref string) (*x509.Certificate, error)
}
