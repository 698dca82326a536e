package web

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/oklog/ulid/v2"
)

const visitorTokenTTL = 90 * 24 * time.Hour

// VisitorSigner issues and checks the visitor cookie
type VisitorSigner struct {
	secret []byte
}

// NewVisitorSigner creates a signer. An empty secret gets a random one, which
// means visitors lose their progress when the process restarts.
func NewVisitorSigner(secret string) (*VisitorSigner, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}
	return &VisitorSigner{secret: key}, nil
}

// NewVisitor returns a fresh visitor ID and its signed token
func (v *VisitorSigner) NewVisitor() (id string, token string, err error) {
	id = ulid.Make().String()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(visitorTokenTTL)),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign visitor token: %w", err)
	}
	return id, token, nil
}

// Verify returns the visitor ID carried by a valid token
func (v *VisitorSigner) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("invalid visitor token")
	}
	if _, err := ulid.ParseStrict(claims.Subject); err != nil {
		return "", fmt.Errorf("invalid visitor id: %w", err)
	}
	return claims.Subject, nil
}
