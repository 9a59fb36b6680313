//go:build integration

package repository

import (
	"errors"
	"testing"

	"github.com/bookloft/bookloft/internal/testutil"
)

// ============================================================================
// User Repository Integration Tests
// ============================================================================

func TestIntegrationUserRepository_CreateUser(t *testing.T) {
	ctx, repo := newBookTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueEmail(t))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	retrieved, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}

	if retrieved.Email != user.Email {
		t.Errorf("Email mismatch: got %q, want %q", retrieved.Email, user.Email)
	}
	if retrieved.PasswordHash != user.PasswordHash {
		t.Error("PasswordHash should round-trip")
	}
	if retrieved.BookIDs == nil {
		t.Error("BookIDs should scan as an empty slice, not nil")
	}
	if len(retrieved.BookIDs) != 0 {
		t.Errorf("new user should have no books, got %v", retrieved.BookIDs)
	}
}

func TestIntegrationUserRepository_CreateUser_DuplicateEmail(t *testing.T) {
	ctx, repo := newBookTestEnv(t)

	email := testutil.UniqueEmail(t)
	user1 := testutil.NewTestUser(t, email)
	user2 := testutil.NewTestUser(t, email)

	if err := repo.CreateUser(ctx, user1); err != nil {
		t.Fatalf("CreateUser (first) failed: %v", err)
	}

	err := repo.CreateUser(ctx, user2)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("Expected ErrEmailExists, got: %v", err)
	}
}

func TestIntegrationUserRepository_GetUserByEmail(t *testing.T) {
	ctx, repo := newBookTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueEmail(t))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	retrieved, err := repo.GetUserByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if retrieved.ID != user.ID {
		t.Errorf("ID mismatch: got %q, want %q", retrieved.ID, user.ID)
	}
}

func TestIntegrationUserRepository_GetUserByEmail_NotFound(t *testing.T) {
	ctx, repo := newBookTestEnv(t)

	_, err := repo.GetUserByEmail(ctx, "ghost@example.com")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got: %v", err)
	}
}

func TestIntegrationUserRepository_AppendAndRemoveBookID(t *testing.T) {
	ctx, repo := newBookTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueEmail(t))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := repo.AppendBookID(ctx, user.ID, "book-a"); err != nil {
		t.Fatalf("AppendBookID failed: %v", err)
	}
	if err := repo.AppendBookID(ctx, user.ID, "book-b"); err != nil {
		t.Fatalf("AppendBookID failed: %v", err)
	}

	retrieved, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if !retrieved.HasBook("book-a") || !retrieved.HasBook("book-b") {
		t.Errorf("both appended ids should be present, got %v", retrieved.BookIDs)
	}

	if err := repo.RemoveBookID(ctx, user.ID, "book-a"); err != nil {
		t.Fatalf("RemoveBookID failed: %v", err)
	}

	retrieved, err = repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if retrieved.HasBook("book-a") {
		t.Error("book-a should be removed")
	}
	if !retrieved.HasBook("book-b") {
		t.Error("book-b should survive the removal of book-a")
	}
}

func TestIntegrationUserRepository_AppendBookID_UnknownUser(t *testing.T) {
	ctx, repo := newBookTestEnv(t)

	err := repo.AppendBookID(ctx, "ghost", "book-a")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got: %v", err)
	}
}

func TestIntegrationUserRepository_DeleteUser(t *testing.T) {
	ctx, repo := newBookTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueEmail(t))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := repo.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	if _, err := repo.GetUserByID(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("user should be gone, got: %v", err)
	}
}

func TestIntegrationUserRepository_DeleteUser_BlockedByBooks(t *testing.T) {
	ctx, repo := newBookTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueEmail(t))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := repo.CreateBook(ctx, testutil.NewTestBook(t, user.ID)); err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}

	// books.creator_id references users: the user's books must be
	// deleted first, which is what the account deletion flow does.
	if err := repo.DeleteUser(ctx, user.ID); err == nil {
		t.Error("Expected foreign key violation while books remain")
	}
}
