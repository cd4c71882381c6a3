package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/domain"
)

// UserStore defines the interface for user data persistence, including the
// per-user list of live session tokens and the avatar image.
type UserStore interface {
	// Create saves a new user. The user must already carry a HashedPassword.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user and its session tokens.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by normalized email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByToken retrieves the user with the given ID only if token is one of
	// its stored session tokens. Returns ErrTokenNotFound otherwise.
	GetByToken(ctx context.Context, id uuid.UUID, token string) (*domain.User, error)

	// Update persists name, email, age and hashed password.
	// Returns ErrUserNotFound or ErrEmailExists.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes the user. Returns ErrUserNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// AddToken appends a session token to the user's list.
	AddToken(ctx context.Context, id uuid.UUID, token string) error

	// RemoveToken removes one session token. Removing an absent token is not an error.
	RemoveToken(ctx context.Context, id uuid.UUID, token string) error

	// RemoveAllTokens clears the user's session tokens.
	RemoveAllTokens(ctx context.Context, id uuid.UUID) error

	// SetAvatar replaces the avatar image; nil clears it.
	SetAvatar(ctx context.Context, id uuid.UUID, avatar []byte) error

	// GetAvatar returns the stored avatar image.
	// Returns ErrUserNotFound or ErrAvatarNotFound.
	GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error)

	// WithTx returns a UserStore bound to the given transaction.
	WithTx(tx *sql.Tx) UserStore
}
