// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package session issues and validates the signed identity marker set after a
// successful authentication ceremony. The marker is a compact HS256 JWT bound
// to the client through an HttpOnly cookie; there is no server-side session
// table. Absence or invalidity of the marker means "not authenticated" —
// whether the named user still exists is the caller's check.
package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultCookieName is the cookie carrying the session marker.
const DefaultCookieName = "passkey_session"

// DefaultLifetime is the absolute validity of an issued marker.
const DefaultLifetime = 24 * time.Hour

// ErrNoSession is returned when the request carries no valid session marker.
var ErrNoSession = errors.New("no valid session")

// Config configures a Manager.
type Config struct {
	// Secret is the HMAC signing key. A random key is generated when empty,
	// which invalidates all markers on restart.
	Secret []byte

	// Lifetime is the absolute marker validity. Default: 24 hours.
	Lifetime time.Duration

	// CookieName overrides the cookie name. Default: "passkey_session".
	CookieName string

	// Secure marks the cookie for HTTPS-only transport. Enable in any
	// production deployment.
	Secure bool
}

// Manager mints, resolves, and revokes session markers.
type Manager struct {
	secret     []byte
	lifetime   time.Duration
	cookieName string
	secure     bool
}

// NewManager creates a session manager.
func NewManager(cfg Config) (*Manager, error) {
	secret := cfg.Secret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
	}

	lifetime := cfg.Lifetime
	if lifetime == 0 {
		lifetime = DefaultLifetime
	}

	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	return &Manager{
		secret:     secret,
		lifetime:   lifetime,
		cookieName: cookieName,
		secure:     cfg.Secure,
	}, nil
}

// Issue mints a marker for the username and binds it to the response as an
// HttpOnly cookie. Client-side scripts cannot read it.
func (m *Manager) Issue(w http.ResponseWriter, username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("failed to sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.lifetime.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Resolve extracts the username from the request's session marker. Returns
// ErrNoSession when the cookie is absent, expired, or fails signature
// verification.
func (m *Manager) Resolve(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return "", ErrNoSession
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrNoSession
	}
	return claims.Subject, nil
}

// Clear revokes the marker by expiring the cookie. Idempotent.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string {
	return m.cookieName
}
