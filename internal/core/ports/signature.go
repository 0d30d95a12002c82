package ports

// SignatureVerifier verifies XML signatures on federation metadata.
//
// Verify returns the validated bytes, and callers must parse those rather
// than the input: an attacker can wrap signed content in unsigned elements.
type SignatureVerifier interface {
	// Verify validates the XML signature on metadata and returns the
	// validated XML bytes. Returns error if signature is invalid or missing.
	Verify(data []byte) ([]byte, error)
}

// MetadataSigner signs XML metadata documents.
type MetadataSigner interface {
	// Sign adds an enveloped XML signature to the metadata and returns
	// the signed XML bytes.
	Sign(data []byte) ([]byte, error)
}
