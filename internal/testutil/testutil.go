// Package testutil provides shared helpers for integration tests:
// environment gating, schema resets and test data factories.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bookloft/bookloft/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 730731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops and recreates both tables for tests. Books depend on
// users through a foreign key, so the drop order is books first and the
// create order is users first.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	steps := []struct {
		name string
		path string
	}{
		{"books down", filepath.Join(root, "migrations", "000002_books.down.sql")},
		{"users down", filepath.Join(root, "migrations", "000001_users.down.sql")},
		{"users up", filepath.Join(root, "migrations", "000001_users.up.sql")},
		{"books up", filepath.Join(root, "migrations", "000002_books.up.sql")},
	}

	for _, step := range steps {
		sql, err := os.ReadFile(step.path)
		if err != nil {
			return fmt.Errorf("read %s migration: %w", step.name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s migration: %w", step.name, err)
		}
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a test user with sensible defaults.
func NewTestUser(t testing.TB, email string) *model.User {
	t.Helper()
	return &model.User{
		ID:           "user-" + ulid.Make().String(),
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$dGVzdHNhbHQ$dGVzdGhhc2g",
		BookIDs:      []string{},
		CreatedAt:    time.Now().UTC(),
	}
}

// NewTestBook creates a test book owned by creatorID with sensible defaults.
func NewTestBook(t testing.TB, creatorID string) *model.Book {
	t.Helper()
	now := time.Now().UTC()
	id := ulid.Make().String()
	return &model.Book{
		ID:          id,
		Title:       "A Study in Scarlet",
		Description: "The first Sherlock Holmes novel.",
		Author:      "Arthur Conan Doyle",
		Year:        "1887",
		ImageURL:    "uploads/" + id + ".png",
		CreatorID:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// UniqueEmail returns an email address unlikely to collide across tests.
func UniqueEmail(t testing.TB) string {
	t.Helper()
	return fmt.Sprintf("reader-%s@example.com", ulid.Make().String())
}
