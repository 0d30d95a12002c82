//go:build unit

package relay

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/philiph/saml-trust/internal/core/domain"
)

func testCodec(t *testing.T, duration time.Duration) *JWTCodec {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	return NewJWTCodec(key, "https://sp.example.com/metadata", duration)
}

func TestJWTCodec_RoundTrip(t *testing.T) {
	codec := testCodec(t, 10*time.Minute)

	relay, err := codec.Encode(domain.PendingRequest{
		RequestID:   "id-001122",
		IdPEntityID: "https://idp.example.com/metadata",
	})
	if err != nil {
		t.Fatalf("Encode() returned error: %v", err)
	}

	id, err := codec.Decode(relay)
	if err != nil {
		t.Fatalf("Decode() returned error: %v", err)
	}
	if id != "id-001122" {
		t.Errorf("Decode() = %q, want id-001122", id)
	}
}

func TestJWTCodec_Decode_Tampered(t *testing.T) {
	codec := testCodec(t, 10*time.Minute)
	relay, err := codec.Encode(domain.PendingRequest{RequestID: "id-001122"})
	if err != nil {
		t.Fatalf("Encode() returned error: %v", err)
	}

	// Flip the payload; the signature no longer matches.
	parts := strings.Split(relay, ".")
	tampered := parts[0] + "." + parts[1][:len(parts[1])-2] + "xx." + parts[2]

	if _, err := codec.Decode(tampered); !errors.Is(err, ErrInvalidRelayState) {
		t.Errorf("Decode(tampered) = %v, want ErrInvalidRelayState", err)
	}
}

func TestJWTCodec_Decode_WrongKey(t *testing.T) {
	relay, err := testCodec(t, 10*time.Minute).Encode(domain.PendingRequest{RequestID: "id-001122"})
	if err != nil {
		t.Fatalf("Encode() returned error: %v", err)
	}

	other := testCodec(t, 10*time.Minute)
	if _, err := other.Decode(relay); !errors.Is(err, ErrInvalidRelayState) {
		t.Errorf("Decode() with wrong key = %v, want ErrInvalidRelayState", err)
	}
}

func TestJWTCodec_Decode_Expired(t *testing.T) {
	codec := testCodec(t, -time.Minute)
	relay, err := codec.Encode(domain.PendingRequest{RequestID: "id-001122"})
	if err != nil {
		t.Fatalf("Encode() returned error: %v", err)
	}

	if _, err := codec.Decode(relay); !errors.Is(err, ErrInvalidRelayState) {
		t.Errorf("Decode(expired) = %v, want ErrInvalidRelayState", err)
	}
}

func TestJWTCodec_Decode_Garbage(t *testing.T) {
	codec := testCodec(t, 10*time.Minute)
	if _, err := codec.Decode("not-a-jwt"); !errors.Is(err, ErrInvalidRelayState) {
		t.Errorf("Decode(garbage) = %v, want ErrInvalidRelayState", err)
	}
}
