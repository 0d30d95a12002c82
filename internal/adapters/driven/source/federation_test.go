//go:build unit

package source

import (
	"context"
	"crypto/x509"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/philiph/saml-trust/internal/core/domain"
)

// fakeDescriptorSource serves canned descriptors and can be flipped into a
// failing state between refreshes.
type fakeDescriptorSource struct {
	mu          sync.Mutex
	descriptors []domain.PartnerDescriptor
	err         error
}

func (f *fakeDescriptorSource) set(descriptors []domain.PartnerDescriptor, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.descriptors = descriptors
	f.err = err
}

func (f *fakeDescriptorSource) FetchDescriptor(ctx context.Context, location string) (*domain.PartnerDescriptor, error) {
	descriptors, err := f.FetchDescriptors(ctx, location)
	if err != nil {
		return nil, err
	}
	if len(descriptors) == 0 {
		return nil, errors.New("no descriptors")
	}
	return &descriptors[0], nil
}

func (f *fakeDescriptorSource) FetchDescriptors(ctx context.Context, location string) ([]domain.PartnerDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.PartnerDescriptor, len(f.descriptors))
	copy(out, f.descriptors)
	return out, nil
}

func testDescriptor(entityID string) domain.PartnerDescriptor {
	return domain.PartnerDescriptor{
		EntityID: entityID,
		SSOEndpoints: []domain.Endpoint{
			{Binding: domain.HTTPRedirectBindingURI, Location: entityID + "/sso"},
		},
		SigningKeys: []domain.KeyDescriptor{
			{Use: domain.KeyUseSigning, Certificate: &x509.Certificate{}},
		},
	}
}

func TestFederation_RefreshAndLookup(t *testing.T) {
	fetcher := &fakeDescriptorSource{descriptors: []domain.PartnerDescriptor{
		testDescriptor("https://idp-a.example.com"),
		testDescriptor("https://idp-b.example.com"),
	}}
	fed := NewFederation("incommon", "https://fed.example.com/metadata", fetcher)

	if err := fed.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() returned error: %v", err)
	}

	idp, err := fed.Lookup("https://idp-a.example.com")
	if err != nil {
		t.Fatalf("Lookup() returned error: %v", err)
	}
	if idp.Binding != domain.BindingRedirect {
		t.Errorf("Binding = %v, want redirect", idp.Binding)
	}
	if _, err := fed.Lookup("https://unknown.example.com"); !errors.Is(err, domain.ErrIdPNotFound) {
		t.Errorf("Lookup(unknown) = %v, want ErrIdPNotFound", err)
	}
}

func TestFederation_EmptyBeforeFirstRefresh(t *testing.T) {
	fed := NewFederation("incommon", "https://fed.example.com/metadata", &fakeDescriptorSource{})

	if _, err := fed.Lookup("https://idp.example.com"); !errors.Is(err, domain.ErrIdPNotFound) {
		t.Errorf("Lookup() before refresh = %v, want ErrIdPNotFound", err)
	}
	if got := len(fed.All()); got != 0 {
		t.Errorf("All() before refresh returned %d providers, want 0", got)
	}
	if h := fed.Health(); h.IsFresh {
		t.Error("Health().IsFresh = true before first refresh, want false")
	}
}

func TestFederation_SkipsBadEntities(t *testing.T) {
	bad := testDescriptor("https://idp-bad.example.com")
	bad.SigningKeys = nil // fails key selection

	fetcher := &fakeDescriptorSource{descriptors: []domain.PartnerDescriptor{
		testDescriptor("https://idp-good.example.com"),
		bad,
	}}
	fed := NewFederation("incommon", "https://fed.example.com/metadata", fetcher)

	if err := fed.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() returned error: %v", err)
	}
	if _, err := fed.Lookup("https://idp-good.example.com"); err != nil {
		t.Errorf("good entity not served after refresh: %v", err)
	}
	if _, err := fed.Lookup("https://idp-bad.example.com"); !errors.Is(err, domain.ErrIdPNotFound) {
		t.Errorf("bad entity served, want ErrIdPNotFound, got %v", err)
	}
}

func TestFederation_FirstDuplicateWins(t *testing.T) {
	first := testDescriptor("https://idp.example.com")
	first.SSOEndpoints[0].Location = "https://idp.example.com/sso/first"
	second := testDescriptor("https://idp.example.com")
	second.SSOEndpoints[0].Location = "https://idp.example.com/sso/second"

	fetcher := &fakeDescriptorSource{descriptors: []domain.PartnerDescriptor{first, second}}
	fed := NewFederation("incommon", "https://fed.example.com/metadata", fetcher)

	if err := fed.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() returned error: %v", err)
	}
	idp, err := fed.Lookup("https://idp.example.com")
	if err != nil {
		t.Fatalf("Lookup() returned error: %v", err)
	}
	if got := idp.SSOEndpoint.String(); got != "https://idp.example.com/sso/first" {
		t.Errorf("SSOEndpoint = %q, want the first descriptor's endpoint", got)
	}
	if got := len(fed.All()); got != 1 {
		t.Errorf("All() returned %d providers, want 1", got)
	}
}

func TestFederation_StaleServesPreviousSnapshot(t *testing.T) {
	fetcher := &fakeDescriptorSource{descriptors: []domain.PartnerDescriptor{
		testDescriptor("https://idp.example.com"),
	}}
	fed := NewFederation("incommon", "https://fed.example.com/metadata", fetcher)

	if err := fed.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh() returned error: %v", err)
	}

	fetcher.set(nil, errors.New("connection refused"))
	if err := fed.Refresh(context.Background()); err == nil {
		t.Fatal("second Refresh() = nil, want error")
	}

	// Previous snapshot keeps being served.
	if _, err := fed.Lookup("https://idp.example.com"); err != nil {
		t.Errorf("Lookup() after failed refresh = %v, want previous snapshot served", err)
	}

	h := fed.Health()
	if h.IsFresh {
		t.Error("Health().IsFresh = true after failed refresh, want false")
	}
	if h.LastError == nil {
		t.Error("Health().LastError = nil after failed refresh")
	}
	if h.ProviderCount != 1 {
		t.Errorf("Health().ProviderCount = %d, want 1", h.ProviderCount)
	}
}

func TestFederation_AllowUnsolicitedDefault(t *testing.T) {
	fetcher := &fakeDescriptorSource{descriptors: []domain.PartnerDescriptor{
		testDescriptor("https://idp.example.com"),
	}}
	fed := NewFederation("incommon", "https://fed.example.com/metadata", fetcher,
		WithAllowUnsolicited(true))

	if err := fed.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() returned error: %v", err)
	}
	idp, err := fed.Lookup("https://idp.example.com")
	if err != nil {
		t.Fatalf("Lookup() returned error: %v", err)
	}
	if !idp.AllowUnsolicited {
		t.Error("AllowUnsolicited = false, want federation default applied")
	}
}

func TestFederation_ConcurrentRefreshAndLookup(t *testing.T) {
	fetcher := &fakeDescriptorSource{descriptors: []domain.PartnerDescriptor{
		testDescriptor("https://idp-a.example.com"),
		testDescriptor("https://idp-b.example.com"),
	}}
	fed := NewFederation("incommon", "https://fed.example.com/metadata", fetcher)
	if err := fed.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() returned error: %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = fed.Refresh(context.Background())
			}
		}
	}()

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				idp, err := fed.Lookup("https://idp-a.example.com")
				if err != nil {
					t.Errorf("Lookup() during refresh = %v", err)
					return
				}
				// A torn snapshot would surface as a half-built record.
				if idp.SSOEndpoint == nil || idp.SigningCert == nil {
					t.Error("Lookup() returned incomplete provider during refresh")
					return
				}
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}

func TestFederation_BackgroundRefresh(t *testing.T) {
	fetcher := &fakeDescriptorSource{descriptors: []domain.PartnerDescriptor{
		testDescriptor("https://idp.example.com"),
	}}

	refreshed := make(chan error, 16)
	fed := NewFederationWithRefresh("incommon", "https://fed.example.com/metadata", fetcher,
		5*time.Millisecond,
		WithOnRefresh(func(err error) { refreshed <- err }))
	defer fed.Close()

	select {
	case err := <-refreshed:
		if err != nil {
			t.Fatalf("background refresh returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("background refresh never ran")
	}

	if _, err := fed.Lookup("https://idp.example.com"); err != nil {
		t.Errorf("Lookup() after background refresh = %v", err)
	}
}

func TestFederation_CloseIdempotent(t *testing.T) {
	fed := NewFederationWithRefresh("incommon", "https://fed.example.com/metadata",
		&fakeDescriptorSource{}, time.Hour)
	if err := fed.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	if err := fed.Close(); err != nil {
		t.Fatalf("second Close() returned error: %v", err)
	}
}
