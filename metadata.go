package samltrust

import (
	"github.com/philiph/saml-trust/internal/adapters/driven/metadata"
	"github.com/philiph/saml-trust/internal/adapters/driven/signature"
)

// Re-export metadata fetchers
type HTTPFetcher = metadata.HTTPFetcher
type HTTPFetcherOption = metadata.HTTPFetcherOption
type FileFetcher = metadata.FileFetcher

var (
	NewHTTPFetcher             = metadata.NewHTTPFetcher
	WithHTTPClient             = metadata.WithHTTPClient
	WithSignatureVerifier      = metadata.WithSignatureVerifier
	WithFetcherLogger          = metadata.WithFetcherLogger
	NewFileFetcher             = metadata.NewFileFetcher
	NewFileFetcherWithVerifier = metadata.NewFileFetcherWithVerifier
	ParseDescriptors           = metadata.ParseDescriptors
	ParseDescriptor            = metadata.ParseDescriptor
	ErrMetadataExpired         = metadata.ErrMetadataExpired
)

// Re-export signature adapters
type XMLDsigVerifier = signature.XMLDsigVerifier
type XMLDsigSigner = signature.XMLDsigSigner
type FileCertificateStore = signature.FileCertificateStore

var (
	NewXMLDsigVerifier          = signature.NewXMLDsigVerifier
	NewXMLDsigVerifierWithCerts = signature.NewXMLDsigVerifierWithCerts
	NewXMLDsigSigner            = signature.NewXMLDsigSigner
	NewFileCertificateStore     = signature.NewFileCertificateStore
	LoadCertificates            = signature.LoadCertificates
)
