// Command fedidp runs a local test federation for exercising the trust
// registry: it starts several SAML Identity Providers and writes an
// aggregate federation metadata document describing them.
// Usage: go run ./cmd/fedidp
//
// The generated document can feed a federation source directly
// (metadata_url pointing at the output file) or be served over HTTP. With
// -sign-key/-sign-cert the document carries an enveloped XML signature so
// signature verification can be exercised too.
package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/crewjam/saml/samlidp"

	samltrust "github.com/philiph/saml-trust"
)

type idpConfig struct {
	Port int
	Name string
}

var idpConfigs = []idpConfig{
	{Port: 8081, Name: "idp-alpha"},
	{Port: 8082, Name: "idp-beta"},
	{Port: 8083, Name: "idp-gamma"},
}

func main() {
	outputFile := flag.String("output", "federation-metadata.xml", "Output file for the aggregate metadata")
	signKeyFile := flag.String("sign-key", "", "PEM private key for signing the aggregate (optional)")
	signCertFile := flag.String("sign-cert", "", "PEM certificate matching -sign-key (optional)")
	validFor := flag.Duration("valid-for", 24*time.Hour, "validUntil window of the aggregate")
	flag.Parse()

	var wg sync.WaitGroup
	certs := make(map[int]string) // port -> base64 cert
	var certMu sync.Mutex

	for _, cfg := range idpConfigs {
		wg.Add(1)
		go func(cfg idpConfig) {
			defer wg.Done()
			cert := startIdP(cfg)
			certMu.Lock()
			certs[cfg.Port] = cert
			certMu.Unlock()
		}(cfg)
	}
	wg.Wait()

	doc := buildAggregate(certs, time.Now().Add(*validFor))

	if *signKeyFile != "" || *signCertFile != "" {
		signed, err := signAggregate(doc, *signKeyFile, *signCertFile)
		if err != nil {
			log.Fatalf("Failed to sign aggregate metadata: %v", err)
		}
		doc = signed
	}

	if err := os.WriteFile(*outputFile, doc, 0644); err != nil {
		log.Fatalf("Failed to write aggregate metadata: %v", err)
	}
	log.Printf("Wrote aggregate metadata for %d IdPs: %s", len(idpConfigs), *outputFile)
	log.Println("Test credentials: testuser / password")

	// Keep the IdPs running
	select {}
}

func startIdP(cfg idpConfig) string {
	key, cert, err := generateSelfSignedCert(cfg.Name)
	if err != nil {
		log.Fatalf("[%s] Failed to generate certificate: %v", cfg.Name, err)
	}

	store := &samlidp.MemoryStore{}
	baseURL, _ := url.Parse(fmt.Sprintf("http://localhost:%d", cfg.Port))

	idpServer, err := samlidp.New(samlidp.Options{
		URL:         *baseURL,
		Key:         key,
		Certificate: cert,
		Store:       store,
	})
	if err != nil {
		log.Fatalf("[%s] Failed to create IdP server: %v", cfg.Name, err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		if err := addUser(fmt.Sprintf("http://localhost:%d", cfg.Port), "testuser", "password"); err != nil {
			log.Printf("[%s] Warning: Failed to add test user: %v", cfg.Name, err)
		}
	}()

	log.Printf("[%s] Starting on http://localhost:%d", cfg.Name, cfg.Port)

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Port), idpServer); err != nil {
			log.Fatalf("[%s] Server failed: %v", cfg.Name, err)
		}
	}()

	return base64.StdEncoding.EncodeToString(cert.Raw)
}

// buildAggregate renders an EntitiesDescriptor for the running IdPs. Each
// entity offers both redirect and POST endpoints so endpoint selection can
// be exercised against real documents.
func buildAggregate(certs map[int]string, validUntil time.Time) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<?xml version="1.0" encoding="UTF-8"?>
<EntitiesDescriptor xmlns="urn:oasis:names:tc:SAML:2.0:metadata" Name="Local Test Federation" validUntil=%q>
`, validUntil.UTC().Format(time.RFC3339))

	for _, cfg := range idpConfigs {
		fmt.Fprintf(&buf, `
    <EntityDescriptor entityID="http://localhost:%d/metadata">
        <IDPSSODescriptor protocolSupportEnumeration="urn:oasis:names:tc:SAML:2.0:protocol">
            <KeyDescriptor use="signing">
                <KeyInfo xmlns="http://www.w3.org/2000/09/xmldsig#">
                    <X509Data>
                        <X509Certificate>%s</X509Certificate>
                    </X509Data>
                </KeyInfo>
            </KeyDescriptor>
            <SingleSignOnService Binding="urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST"
                                 Location="http://localhost:%d/sso"/>
            <SingleSignOnService Binding="urn:oasis:names:tc:SAML:2.0:bindings:HTTP-Redirect"
                                 Location="http://localhost:%d/sso"/>
        </IDPSSODescriptor>
    </EntityDescriptor>
`, cfg.Port, certs[cfg.Port], cfg.Port, cfg.Port)
	}

	buf.WriteString(`
</EntitiesDescriptor>
`)
	return buf.Bytes()
}

// signAggregate adds an enveloped XML signature with the given key pair.
func signAggregate(doc []byte, keyFile, certFile string) ([]byte, error) {
	if keyFile == "" || certFile == "" {
		return nil, fmt.Errorf("-sign-key and -sign-cert must be set together")
	}
	keyData, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	key, err := parsePrivateKey(keyData)
	if err != nil {
		return nil, err
	}
	certs, err := samltrust.LoadCertificates(certFile)
	if err != nil {
		return nil, err
	}
	return samltrust.NewXMLDsigSigner(key, certs[0]).Sign(doc)
}

func addUser(baseURL, username, password string) error {
	user := samlidp.User{
		Name:              username,
		PlaintextPassword: &password,
		Email:             username + "@example.com",
		CommonName:        username,
		GivenName:         username,
		Surname:           "Test",
	}

	body, err := json.Marshal(user)
	if err != nil {
		return err
	}
	req, _ := http.NewRequest(http.MethodPut, baseURL+"/users/"+username, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

func generateSelfSignedCert(name string) (*rsa.PrivateKey, *x509.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			CommonName: name,
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, err
	}
	return key, cert, nil
}

func parsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in key file")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return key, nil
}
