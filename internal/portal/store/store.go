package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/pointerhq/portal/internal/portal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrMatriculaTaken is the matricula-specific uniqueness violation. It
	// wraps ErrAlreadyExists so generic conflict handling still matches,
	// while the provisioning workflow can retry only this case.
	ErrMatriculaTaken = fmt.Errorf("%w: matricula taken", ErrAlreadyExists)
)

// UserFilter is a fixed conjunction of optional equality predicates. A zero
// field means no constraint on that column.
type UserFilter struct {
	Sector  string
	Profile string
	Active  *bool
}

// Page selects a zero-based page of a fixed size.
type Page struct {
	Number int
	Size   int
}

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Announcements() Announcements
	ReadReceipts() ReadReceipts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Preferred over
	// Tx for multi-step writes.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is the lookup every provisioning operation keys on.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists on any unique-constraint violation
	// (email, cpf or matricula).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser rewrites the mutable profile columns (name, cpf, job
	// title, sector, profile, status) and bumps updated_at.
	UpdateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateStatus flips the active flag and bumps updated_at.
	UpdateStatus(ctx context.Context, userID string, active bool) error

	// Count returns the total number of users, used for matricula
	// generation.
	Count(ctx context.Context) (int64, error)

	// List returns one page of users matching the filter, ordered by
	// primary key ascending, plus the total number of matches.
	List(ctx context.Context, f UserFilter, p Page) ([]domain.User, int64, error)
}

type Announcements interface {
	// GetByID returns an announcement by id.
	GetByID(ctx context.Context, id string) (domain.Announcement, error)

	// ListAll returns all announcements, newest publication first.
	ListAll(ctx context.Context) ([]domain.Announcement, error)

	// Create inserts a new announcement (id is ULID).
	Create(ctx context.Context, a domain.Announcement) error

	// Update rewrites the mutable columns and bumps updated_at.
	Update(ctx context.Context, a domain.Announcement) error

	// Delete removes an announcement; read receipts cascade per schema.
	Delete(ctx context.Context, id string) error
}

type ReadReceipts interface {
	// Create inserts a read receipt. Returns ErrAlreadyExists when the
	// user already read the announcement.
	Create(ctx context.Context, r domain.ReadReceipt) error

	// ListByAnnouncement returns receipts for one announcement, oldest
	// first.
	ListByAnnouncement(ctx context.Context, announcementID string) ([]domain.ReadReceipt, error)

	// Exists reports whether a receipt links the user and announcement.
	Exists(ctx context.Context, userID, announcementID string) (bool, error)
}
