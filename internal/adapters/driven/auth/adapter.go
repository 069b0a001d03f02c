// Package auth signs the browser-session cookie as a JWT. The cookie only
// carries a session ID; the credential itself never leaves the server.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
)

// Ensure Adapter implements SessionTokens
var _ driven.SessionTokens = (*Adapter)(nil)

// jwtClaims carries the session ID inside the registered claim set
type jwtClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Adapter signs and verifies session tokens with HMAC-SHA256
type Adapter struct {
	jwtSecret []byte
}

// NewAdapter creates a new auth adapter with the given JWT secret
func NewAdapter(jwtSecret string) *Adapter {
	return &Adapter{jwtSecret: []byte(jwtSecret)}
}

// Sign wraps a session ID in a signed JWT with the given lifetime
func (a *Adapter) Sign(sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	jc := jwtClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	return token.SignedString(a.jwtSecret)
}

// Verify validates a JWT and extracts the session ID
func (a *Adapter) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(*jwtClaims); ok && token.Valid && claims.SessionID != "" {
		return claims.SessionID, nil
	}
	return "", fmt.Errorf("invalid token claims")
}
