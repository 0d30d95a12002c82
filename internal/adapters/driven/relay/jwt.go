package relay

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// ErrInvalidRelayState is returned for relay states that fail signature or
// claim validation.
var ErrInvalidRelayState = errors.New("invalid relay state")

// relayClaims defines the JWT claims carried in a relay state token.
// The request ID travels as the jti claim; the return URL stays server-side
// in the pending-request store.
type relayClaims struct {
	jwt.RegisteredClaims
	IdPEntityID string `json:"idp"`
}

// JWTCodec signs the correlation key carried through the browser round trip
// so a response handler can reject tampered relay states before touching the
// pending-request store.
type JWTCodec struct {
	privateKey *rsa.PrivateKey
	audience   string
	duration   time.Duration
}

// NewJWTCodec creates a relay-state codec. The audience is the relying
// service's own entity ID; tokens expire after duration.
func NewJWTCodec(privateKey *rsa.PrivateKey, audience string, duration time.Duration) *JWTCodec {
	return &JWTCodec{
		privateKey: privateKey,
		audience:   audience,
		duration:   duration,
	}
}

// Encode generates a signed relay state for a pending request.
func (c *JWTCodec) Encode(req domain.PendingRequest) (string, error) {
	now := time.Now()
	claims := relayClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        req.RequestID,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.duration)),
		},
		IdPEntityID: req.IdPEntityID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(c.privateKey)
}

// Decode validates a relay state and returns the request ID it carries.
func (c *JWTCodec) Decode(relayState string) (string, error) {
	parsed, err := jwt.ParseWithClaims(relayState, &relayClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return &c.privateKey.PublicKey, nil
	}, jwt.WithAudience(c.audience))
	if err != nil {
		return "", ErrInvalidRelayState
	}

	claims, ok := parsed.Claims.(*relayClaims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return "", ErrInvalidRelayState
	}
	return claims.ID, nil
}

// Ensure JWTCodec implements ports.RelayStateCodec
var _ ports.RelayStateCodec = (*JWTCodec)(nil)
