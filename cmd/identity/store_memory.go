package identity

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for DB-less dev mode and unit tests.
//
// A single mutex provides the same read-modify-write atomicity on the
// refresh token field that the Postgres row UPDATE provides.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]string // email_norm -> id
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

// CreateUser creates a new user, enforcing email uniqueness.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	email := in.Email
	if email == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email is required"}
	}
	if in.PasswordHash == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	norm := NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[norm]; taken {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	u := &User{
		ID:           id,
		Email:        email,
		EmailNorm:    norm,
		Username:     copyPtr(in.Username),
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[id] = u
	s.byEmail[norm] = id

	return *u, nil
}

// GetUserByEmail loads a user by normalized email.
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return snapshot(s.byID[id]), nil
}

// GetUserByID loads a user by ID.
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return snapshot(u), nil
}

// SaveRefreshToken overwrites the user's current refresh token.
func (s *MemoryStore) SaveRefreshToken(ctx context.Context, userID string, token string) error {
	const op = "identity.SaveRefreshToken"

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	t := token
	u.RefreshToken = &t
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// SwapRefreshToken replaces the stored token only if it still equals old.
func (s *MemoryStore) SwapRefreshToken(ctx context.Context, userID string, old string, next string) error {
	const op = "identity.SwapRefreshToken"

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	if u.RefreshToken == nil || *u.RefreshToken != old {
		return OpError{Op: op, Kind: ErrNotCurrent, Msg: "stored refresh token mismatch"}
	}
	t := next
	u.RefreshToken = &t
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ClearRefreshToken sets the refresh token to absent (idempotent).
func (s *MemoryStore) ClearRefreshToken(ctx context.Context, userID string) error {
	const op = "identity.ClearRefreshToken"

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	u.RefreshToken = nil
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func snapshot(u *User) User {
	out := *u
	out.Username = copyPtr(u.Username)
	out.RefreshToken = copyPtr(u.RefreshToken)
	return out
}

func copyPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
