package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func mustCreate(t *testing.T, s Store, email string) User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), CreateUserInput{
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestMemoryStore_CreateUser_DuplicateEmail(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	mustCreate(t, s, "a@x.com")

	_, err := s.CreateUser(ctx, CreateUserInput{
		Email:        "  A@X.COM  ",
		PasswordHash: "hash",
	})
	if !IsConflict(err) {
		t.Fatalf("expected ConflictError for duplicate email, got %v", err)
	}

	var ce ConflictError
	if !errors.As(err, &ce) || ce.Field != "email" {
		t.Fatalf("expected conflict field=email, got %+v", err)
	}
}

func TestMemoryStore_GetUserByEmail_Normalizes(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	created := mustCreate(t, s, "Person@Example.com")

	got, err := s.GetUserByEmail(context.Background(), "  person@example.COM ")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("id mismatch: got %q want %q", got.ID, created.ID)
	}
	if got.RefreshToken != nil {
		t.Fatalf("new user must have no refresh token")
	}
}

func TestMemoryStore_SwapRefreshToken_CompareAndSet(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	u := mustCreate(t, s, "swap@x.com")

	// No stored token yet: swap must fail.
	if err := s.SwapRefreshToken(ctx, u.ID, "t1", "t2"); !IsNotCurrent(err) {
		t.Fatalf("expected ErrNotCurrent with no stored token, got %v", err)
	}

	if err := s.SaveRefreshToken(ctx, u.ID, "t1"); err != nil {
		t.Fatalf("SaveRefreshToken: %v", err)
	}
	if err := s.SwapRefreshToken(ctx, u.ID, "t1", "t2"); err != nil {
		t.Fatalf("SwapRefreshToken: %v", err)
	}

	// The superseded value must no longer match.
	if err := s.SwapRefreshToken(ctx, u.ID, "t1", "t3"); !IsNotCurrent(err) {
		t.Fatalf("expected ErrNotCurrent for superseded token, got %v", err)
	}

	got, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.RefreshToken == nil || *got.RefreshToken != "t2" {
		t.Fatalf("stored token = %v, want t2", got.RefreshToken)
	}
}

func TestMemoryStore_SwapRefreshToken_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	u := mustCreate(t, s, "race@x.com")

	if err := s.SaveRefreshToken(ctx, u.ID, "old"); err != nil {
		t.Fatalf("SaveRefreshToken: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.SwapRefreshToken(ctx, u.ID, "old", "new")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case IsNotCurrent(err):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning swap, got %d", wins)
	}
}

func TestMemoryStore_ClearRefreshToken_Unconditional(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	u := mustCreate(t, s, "clear@x.com")

	if err := s.SaveRefreshToken(ctx, u.ID, "t1"); err != nil {
		t.Fatalf("SaveRefreshToken: %v", err)
	}
	if err := s.ClearRefreshToken(ctx, u.ID); err != nil {
		t.Fatalf("ClearRefreshToken: %v", err)
	}

	got, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.RefreshToken != nil {
		t.Fatalf("expected cleared token, got %q", *got.RefreshToken)
	}

	// Clearing again stays a no-op.
	if err := s.ClearRefreshToken(ctx, u.ID); err != nil {
		t.Fatalf("second ClearRefreshToken: %v", err)
	}
}

func TestMemoryStore_GetUserByID_NotFound(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	_, err := s.GetUserByID(context.Background(), "01JZZZZZZZZZZZZZZZZZZZZZZZ")
	if !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
