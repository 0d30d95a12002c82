package signature

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"go.uber.org/zap"

	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// XMLDsigVerifier verifies enveloped XML signatures on federation metadata
// against a set of trust anchor certificates.
type XMLDsigVerifier struct {
	certStore dsig.X509CertificateStore
	certs     []*x509.Certificate // kept for logging cert details on success
	logger    *zap.Logger
}

// NewXMLDsigVerifier creates a verifier with a single trust anchor
// certificate.
func NewXMLDsigVerifier(cert *x509.Certificate) *XMLDsigVerifier {
	return NewXMLDsigVerifierWithCerts([]*x509.Certificate{cert})
}

// NewXMLDsigVerifierWithCerts creates a verifier with multiple trust anchor
// certificates. This supports certificate rollover scenarios.
func NewXMLDsigVerifierWithCerts(certs []*x509.Certificate) *XMLDsigVerifier {
	return &XMLDsigVerifier{
		certStore: &dsig.MemoryX509CertificateStore{
			Roots: certs,
		},
		certs: certs,
	}
}

// WithLogger sets a logger for verification events and returns the verifier.
func (v *XMLDsigVerifier) WithLogger(logger *zap.Logger) *XMLDsigVerifier {
	v.logger = logger
	return v
}

// Verify validates the XML signature on metadata and returns the validated
// XML bytes. The returned bytes are re-serialized from the validated
// element to prevent signature wrapping attacks.
func (v *XMLDsigVerifier) Verify(data []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, domain.RetrievalError("metadata", fmt.Errorf("parse XML: %w", err))
	}

	root := doc.Root()
	if root == nil {
		return nil, domain.RetrievalError("metadata", errors.New("empty XML document"))
	}

	ctx := dsig.NewDefaultValidationContext(v.certStore)

	validated, err := ctx.Validate(root)
	if err != nil {
		return nil, domain.RetrievalError("metadata", fmt.Errorf("signature verification failed: %w", err))
	}

	if v.logger != nil && len(v.certs) > 0 {
		cert := v.certs[0]
		v.logger.Info("metadata signature verified",
			zap.String("cert_subject", cert.Subject.String()),
			zap.Time("cert_expiry", cert.NotAfter),
		)
	}

	validatedDoc := etree.NewDocument()
	validatedDoc.SetRoot(validated)
	result, err := validatedDoc.WriteToBytes()
	if err != nil {
		return nil, domain.ServiceError("serialize validated metadata", err)
	}
	return result, nil
}

// XMLDsigSigner signs XML metadata documents with an enveloped signature.
// Used by tooling that publishes federation documents.
type XMLDsigSigner struct {
	privateKey  *rsa.PrivateKey
	certificate *x509.Certificate
}

// NewXMLDsigSigner creates a signer with the given key pair.
func NewXMLDsigSigner(privateKey *rsa.PrivateKey, certificate *x509.Certificate) *XMLDsigSigner {
	return &XMLDsigSigner{
		privateKey:  privateKey,
		certificate: certificate,
	}
}

// Sign adds an enveloped XML signature to the document and returns the
// signed bytes.
func (s *XMLDsigSigner) Sign(metadata []byte) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, errors.New("empty metadata")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(metadata); err != nil {
		return nil, fmt.Errorf("parse XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, errors.New("empty XML document")
	}

	tlsCert := tls.Certificate{
		Certificate: [][]byte{s.certificate.Raw},
		PrivateKey:  s.privateKey,
	}
	keyStore := dsig.TLSCertKeyStore(tlsCert)

	signingContext := dsig.NewDefaultSigningContext(keyStore)
	signingContext.Canonicalizer = dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")

	signedRoot, err := signingContext.SignEnveloped(root)
	if err != nil {
		return nil, fmt.Errorf("sign XML: %w", err)
	}

	doc.SetRoot(signedRoot)

	signedBytes, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize signed XML: %w", err)
	}

	return signedBytes, nil
}

// Ensure implementations satisfy interfaces
var _ ports.SignatureVerifier = (*XMLDsigVerifier)(nil)
var _ ports.MetadataSigner = (*XMLDsigSigner)(nil)
