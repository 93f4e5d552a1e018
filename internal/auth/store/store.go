package store

import (
	"context"
	"errors"
	"time"

	"github.com/pallidlabs/authgate/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrUnavailable   = errors.New("store: backend unavailable")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement it. Sub-repositories keep the user directory and the
// revocation ledger separately testable.
type Store interface {
	Users() Users
	Tokens() Tokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit() or Rollback().
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. Use it for the revoke-then-record
	// pairs that must land atomically.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the user directory consumed by the authentication service.
type Users interface {
	// GetUserByUsername is used on login, refresh and authorize.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// ExistsByUsernameOrEmail backs the registration conflict check.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateRole mutates the role during the authorize flow and records
	// who performed the change.
	UpdateRole(ctx context.Context, username string, role domain.Role, updatedBy string) error

	// UpdateProfile mutates name and email, bumping updated_at.
	UpdateProfile(ctx context.Context, username, name, email string) error

	// DeleteUser cascades to the user's ledger rows (per schema).
	DeleteUser(ctx context.Context, username string) error

	// ListUsers returns all users ordered by creation date.
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// Tokens is the revocation ledger. Callers pass raw token strings; drivers
// store and match fingerprints.
type Tokens interface {
	// Record inserts a live ledger row. A token that exists
	// cryptographically but was never recorded is not authenticating.
	Record(ctx context.Context, t domain.IssuedToken) error

	// IsLive reports whether a matching row exists with both flags false.
	// An absent row is (false, nil), not an error.
	IsLive(ctx context.Context, token string) (bool, error)

	// RevokeOne flips both flags on exactly one row; no-op if absent.
	RevokeOne(ctx context.Context, token string) error

	// RevokeAllLiveForSubject sweeps every currently-live row for the
	// subject in one atomic update. Rows recorded after the sweep starts
	// are untouched.
	RevokeAllLiveForSubject(ctx context.Context, subject string) error

	// DeleteRevokedBefore removes dead rows last touched before the
	// cutoff (housekeeping; the ledger only needs live rows).
	DeleteRevokedBefore(ctx context.Context, cutoff time.Time) error
}
