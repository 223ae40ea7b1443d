// Package idp defines the identity provider boundary. The service layer talks
// to this interface; the keycloak subpackage implements it over the Keycloak
// admin REST API.
package idp

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmailInvalid         = errors.New("idp: email is invalid")
	ErrWeakPassword         = errors.New("idp: password does not meet policy")
	ErrAccountAlreadyExists = errors.New("idp: account already exists")
	ErrUnknownRole          = errors.New("idp: unknown role")
	ErrInvalidArgument      = errors.New("idp: invalid argument")
)

// ProviderError wraps transport or provider failures so callers can tell a
// policy violation (the sentinels above) apart from an unreachable or
// misbehaving provider.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("idp: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Wrap returns err unchanged when it is already one of the package sentinels,
// otherwise it wraps it in a ProviderError tagged with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		ErrEmailInvalid,
		ErrWeakPassword,
		ErrAccountAlreadyExists,
		ErrUnknownRole,
		ErrInvalidArgument,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return &ProviderError{Op: op, Err: err}
}

// Account is the provider-side view of a user.
type Account struct {
	ID        string
	Username  string
	Email     string
	FirstName string
	LastName  string
	Enabled   bool
}

// Client provisions and maintains accounts in the external identity provider.
type Client interface {
	// FindByEmail returns the account matching email exactly, or (nil, nil)
	// when no account exists.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// CreateAccount creates an enabled account and returns its provider id.
	// Returns ErrAccountAlreadyExists when the email or username is taken.
	CreateAccount(ctx context.Context, name, email, password string) (string, error)

	// SetPassword sets a permanent (non-temporary) credential.
	SetPassword(ctx context.Context, accountID, password string) error

	// AssignRoles grants realm roles to the account. Unknown role names
	// yield ErrUnknownRole; an empty slice yields ErrInvalidArgument.
	AssignRoles(ctx context.Context, accountID string, roles []string) error

	// RemoveRoles revokes realm roles from the account.
	RemoveRoles(ctx context.Context, accountID string, roles []string) error

	// ListCurrentRoles returns the realm roles currently mapped to the
	// account. Failures degrade to an empty slice; they are logged, not
	// returned, so a read error never blocks a profile update.
	ListCurrentRoles(ctx context.Context, accountID string) []string

	// Enable re-activates a disabled account.
	Enable(ctx context.Context, accountID string) error

	// Disable deactivates the account, blocking new logins.
	Disable(ctx context.Context, accountID string) error

	// UpdateProfile rewrites the account's name, email and enabled flag.
	UpdateProfile(ctx context.Context, accountID, firstName, lastName, email string, enabled bool) error
}
