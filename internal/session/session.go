// Package session carries the operator identity through request contexts
// and validates the bearer tokens issued by the identity provider.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingIdentity = errors.New("no operator identity in context")
	ErrTokenExpired    = errors.New("token expired")
)

// Identity is the authenticated operator. Subject keys the per-operator
// workspace and preferences.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Claims is the subset of JWT claims the dashboard reads.
type Claims struct {
	Sub   string `json:"sub"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Iss   string `json:"iss,omitempty"`
	Iat   int64  `json:"iat,omitempty"`
	Exp   int64  `json:"exp"`
}

func (c *Claims) Identity() Identity {
	return Identity{Subject: c.Sub, Email: c.Email, Name: c.Name}
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || id.Subject == "" {
		return Identity{}, ErrMissingIdentity
	}
	return id, nil
}

// Validator checks HS256 tokens against a shared secret.
type Validator struct {
	secret []byte
	now    func() time.Time
}

func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret), now: time.Now}
}

// ValidateToken parses and validates a JWT, returning the claims.
func (v *Validator) ValidateToken(tokenStr string) (*Claims, error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid token format")
	}

	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid header encoding")
	}
	var h struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(header, &h); err != nil || h.Alg != "HS256" {
		return nil, fmt.Errorf("unsupported token algorithm")
	}

	signingInput := parts[0] + "." + parts[1]
	expectedSig := v.hmacSign([]byte(signingInput))
	actualSig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding")
	}
	if subtle.ConstantTimeCompare(expectedSig, actualSig) != 1 {
		return nil, fmt.Errorf("invalid signature")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid payload encoding")
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("invalid claims: %w", err)
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	if v.now().Unix() > claims.Exp {
		return nil, ErrTokenExpired
	}

	return &claims, nil
}

// Sign issues a token for claims. The dashboard never issues tokens to
// operators; this is for local tooling and tests.
func (v *Validator) Sign(claims Claims) (string, error) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(claimsJSON)

	signingInput := header + "." + payload
	sig := base64.RawURLEncoding.EncodeToString(v.hmacSign([]byte(signingInput)))

	return signingInput + "." + sig, nil
}

func (v *Validator) hmacSign(data []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(data)
	return mac.Sum(nil)
}
