package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures, one variant per rejection reason so the protocol
// layer can surface a precise error frame.
var (
	// ErrTokenMissing is returned when no credential was supplied at all.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for malformed, unsigned, or forged tokens.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the identity claim carried by a signed credential.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Config holds the signing parameters shared with the account service.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Gate verifies opaque bearer credentials and resolves them to identity
// claims. Stateless and safe for concurrent use.
type Gate struct {
	cfg *Config
}

// NewGate creates a gate with the given signing configuration.
func NewGate(cfg *Config) *Gate {
	return &Gate{cfg: cfg}
}

// Verify parses and validates a credential, returning the identity claim.
// Failures are classified as ErrTokenMissing, ErrTokenExpired, or
// ErrTokenInvalid.
func (g *Gate) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.cfg.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, ErrTokenInvalid
	}

	if g.cfg.Issuer != "" && claims.Issuer != g.cfg.Issuer {
		return nil, ErrTokenInvalid
	}

	if g.cfg.Audience != "" {
		validAudience := false
		for _, aud := range claims.Audience {
			if aud == g.cfg.Audience {
				validAudience = true
				break
			}
		}
		if !validAudience {
			return nil, ErrTokenInvalid
		}
	}

	return claims, nil
}

// Issue mints a signed credential for the given username. The production
// issuer lives in the external account service; this helper exists for
// tooling and tests that need valid tokens.
func (g *Gate) Issue(username string) (string, error) {
	return IssueToken(g.cfg, username, g.cfg.TTL)
}

// IssueToken creates a credential with an explicit time-to-live. A negative
// TTL produces an already-expired token.
func IssueToken(cfg *Config, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}
