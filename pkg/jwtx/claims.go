package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrIssuer      = errors.New("jwtx: unexpected issuer")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Claims are the access-token claims the portal cares about. The identity
// provider issues the token; we only read it.
type Claims struct {
	jwt.RegisteredClaims

	// RealmAccess carries the provider's realm-level role grants.
	RealmAccess RoleAccess `json:"realm_access,omitempty"`

	// Email of the authenticated user.
	Email string `json:"email,omitempty"`

	// PreferredUsername is the provider-side username (email here).
	PreferredUsername string `json:"preferred_username,omitempty"`

	// Name is the display name for the user.
	Name string `json:"name,omitempty"`
}

// RoleAccess wraps the role list the provider nests under realm_access.
type RoleAccess struct {
	Roles []string `json:"roles,omitempty"`
}

// Roles returns the realm-level roles granted to the token subject.
func (c *Claims) Roles() []string {
	return c.RealmAccess.Roles
}

// ValidateIssuer checks if the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
