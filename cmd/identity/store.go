package identity

import (
	"context"
	"time"
)

// User is Warden's canonical security principal.
//
// RefreshToken is the single source of truth for session validity: it is
// either nil (no active session) or equal to the refresh token most recently
// issued to this user. PasswordHash is a PHC-encoded Argon2id string; the
// plaintext password is never stored.
type User struct {
	ID           string
	Email        string
	EmailNorm    string
	Username     *string
	PasswordHash string
	RefreshToken *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateUserInput describes a user registration request.
// The password arrives already hashed; hashing is the session layer's job.
type CreateUserInput struct {
	Email        string
	Username     *string
	PasswordHash string
	Now          time.Time
}

// Store is the credential persistence boundary.
//
// Implementations must provide read-modify-write atomicity on the
// refresh_token field: SwapRefreshToken is the only synchronization point
// between concurrent refresh rotations for the same user.
type Store interface {
	// CreateUser creates a new user. Returns a ConflictError (field "email")
	// if a user already exists for the normalized email.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// GetUserByEmail loads a user by normalized email. Returns ErrNotFound if absent.
	GetUserByEmail(ctx context.Context, email string) (User, error)

	// GetUserByID loads a user by ID. Returns ErrNotFound if absent.
	GetUserByID(ctx context.Context, id string) (User, error)

	// SaveRefreshToken stores token as the user's current refresh token,
	// overwriting any prior value. This is the login rotation point.
	SaveRefreshToken(ctx context.Context, userID string, token string) error

	// SwapRefreshToken replaces the stored refresh token only if the stored
	// value still equals old (compare-and-set). Returns ErrNotCurrent when the
	// stored token no longer matches, ErrNotFound when the user is gone.
	SwapRefreshToken(ctx context.Context, userID string, old string, next string) error

	// ClearRefreshToken sets the user's refresh token to absent,
	// unconditionally. Idempotent.
	ClearRefreshToken(ctx context.Context, userID string) error
}
