// Command trustcheck loads a trust configuration, builds the provider
// registry, and reports what resolved: every provider with its binding,
// endpoint, and signing certificate, plus federation health. Exits non-zero
// when any configured provider failed to load.
// Usage: go run ./cmd/trustcheck -config trust.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	samltrust "github.com/philiph/saml-trust"
)

func main() {
	configFile := flag.String("config", "trust.yaml", "Path to the trust configuration file")
	certDir := flag.String("cert-dir", ".", "Base directory for relative certificate references")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout for metadata retrieval")
	flag.Parse()

	cfg, err := samltrust.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	deps := samltrust.BuildDeps{
		Fetcher:      samltrust.NewHTTPFetcher(),
		Certificates: samltrust.NewFileCertificateStore(*certDir),
	}

	registry, federations, buildErr := samltrust.BuildRegistry(ctx, cfg, deps)
	for _, fed := range federations {
		defer fed.Close()
	}

	fmt.Printf("Service provider: %s\n", cfg.SP.EntityID)
	fmt.Printf("ACS endpoint:     %s\n\n", cfg.SP.ACSURL)

	providers := registry.All()
	fmt.Printf("Resolved %d identity provider(s):\n", len(providers))
	for _, idp := range providers {
		fmt.Printf("  %s\n", idp.EntityID)
		fmt.Printf("    binding:  %s\n", idp.Binding)
		fmt.Printf("    endpoint: %s\n", idp.SSOEndpoint)
		if idp.SigningCert != nil {
			fmt.Printf("    cert:     %s (expires %s)\n",
				idp.SigningCert.Subject, idp.SigningCert.NotAfter.Format(time.RFC3339))
		}
		if idp.AllowUnsolicited {
			fmt.Printf("    unsolicited responses allowed\n")
		}
	}

	if len(federations) > 0 {
		fmt.Printf("\nFederations:\n")
		for _, fed := range federations {
			h := fed.Health()
			status := "stale"
			if h.IsFresh {
				status = "fresh"
			}
			fmt.Printf("  %s: %s, %d provider(s)\n", fed.Name(), status, h.ProviderCount)
			if h.LastError != nil {
				fmt.Printf("    last error: %v\n", h.LastError)
			}
		}
	}

	if buildErr != nil {
		fmt.Fprintf(os.Stderr, "\nSome providers failed to load:\n%v\n", buildErr)
		os.Exit(1)
	}
}
