package identity

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are enabled when WARDEN_DATABASE_URL is set.
// They assume the schema from cmd/internal/app/migrations has been applied.

func itestPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("WARDEN_DATABASE_URL")
	if dbURL == "" {
		t.Skip("WARDEN_DATABASE_URL is not set; skipping Postgres integration test")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	return pool
}

func itestEmail(t *testing.T) string {
	t.Helper()
	id, err := NewULID(time.Now().UTC())
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	return fmt.Sprintf("itest-%s@warden.test", id)
}

func itestCleanup(ctx context.Context, t *testing.T, pool *pgxpool.Pool, userID string) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM warden.users WHERE id = $1`, userID)
	})
}

func TestPostgresStore_CreateAndLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := itestPool(ctx, t)
	defer pool.Close()

	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	email := itestEmail(t)
	u, err := store.CreateUser(ctx, CreateUserInput{
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA",
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	itestCleanup(ctx, t, pool, u.ID)

	if _, err := store.CreateUser(ctx, CreateUserInput{
		Email:        email,
		PasswordHash: "hash",
	}); !IsConflict(err) {
		t.Fatalf("expected ConflictError for duplicate email, got %v", err)
	}

	got, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != u.ID || got.RefreshToken != nil {
		t.Fatalf("unexpected user row: %+v", got)
	}
}

func TestPostgresStore_SwapRefreshToken_SingleWinner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := itestPool(ctx, t)
	defer pool.Close()

	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	u, err := store.CreateUser(ctx, CreateUserInput{
		Email:        itestEmail(t),
		PasswordHash: "hash",
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	itestCleanup(ctx, t, pool, u.ID)

	if err := store.SaveRefreshToken(ctx, u.ID, "old"); err != nil {
		t.Fatalf("SaveRefreshToken: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.SwapRefreshToken(ctx, u.ID, "old", fmt.Sprintf("new-%d", i))
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

func TestPostgresStore_ClearRefreshToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := itestPool(ctx, t)
	defer pool.Close()

	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	u, err := store.CreateUser(ctx, CreateUserInput{
		Email:        itestEmail(t),
		PasswordHash: "hash",
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	itestCleanup(ctx, t, pool, u.ID)

	if err := store.SaveRefreshToken(ctx, u.ID, "t1"); err != nil {
		t.Fatalf("SaveRefreshToken: %v", err)
	}
	if err := store.ClearRefreshToken(ctx, u.ID); err != nil {
		t.Fatalf("ClearRefreshToken: %v", err)
	}

	got, err := store.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.RefreshToken != nil {
		t.Fatalf("expected cleared token, got %q", *got.RefreshToken)
	}
}
