/**
 * @description
 * This file implements the session guard for the checkout flow. A session is
 * valid only if it carries a bearer token that parses as an HS256 JWT, is
 * unexpired, and names a customer id in its `sub` claim. The guard runs before
 * the state machine starts and again whenever a downstream call reports an
 * authorization failure; an invalid session halts the flow with no further
 * network calls.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: JWT parsing and claim validation.
 */

package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stayfront/checkout-service/internal/domain"
)

// SessionGuard validates traveler sessions against the shared signing secret.
type SessionGuard struct {
	secret []byte
	now    func() time.Time
}

// NewSessionGuard creates a guard for the given HS256 signing secret.
func NewSessionGuard(secret string) *SessionGuard {
	return &SessionGuard{secret: []byte(secret), now: time.Now}
}

// Check validates the session's token. On success it returns the session with
// CustomerID and ExpiresAt normalized from the token claims; on any failure it
// returns ErrSessionExpired so callers run the single expiry path.
func (g *SessionGuard) Check(s domain.Session) (domain.Session, error) {
	if strings.TrimSpace(s.Token) == "" {
		return domain.Session{}, ErrSessionExpired
	}
	return g.ParseToken(s.Token)
}

// ParseToken validates a raw bearer token and builds the session it encodes.
func (g *SessionGuard) ParseToken(tokenString string) (domain.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil || !token.Valid {
		return domain.Session{}, ErrSessionExpired
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Session{}, ErrSessionExpired
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Session{}, ErrSessionExpired
	}

	// The expiry claim must be present and parseable; a token without one is
	// treated as expired rather than eternal.
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return domain.Session{}, ErrSessionExpired
	}
	if !exp.After(g.now()) {
		return domain.Session{}, ErrSessionExpired
	}

	return domain.Session{
		Token:      tokenString,
		CustomerID: sub,
		ExpiresAt:  exp.Time,
	}, nil
}
