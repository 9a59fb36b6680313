package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bookloft/bookloft/internal/auth"
	"github.com/bookloft/bookloft/internal/model"
	"github.com/bookloft/bookloft/internal/repository"
)

// Auth service errors.
var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotSelf            = errors.New("caller may only delete their own account")
)

const minPasswordLength = 8

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AccountStore is the user persistence surface AuthService needs.
// Implemented by *repository.Repository.
type AccountStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
	ListBooksByCreator(ctx context.Context, creatorID string) ([]*model.Book, error)
	DeleteBook(ctx context.Context, id string) error
}

// SessionStore issues and revokes login sessions.
// Implemented by *cache.Cache.
type SessionStore interface {
	SetSession(ctx context.Context, token string, sess *model.Session, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// AuthService handles signup, login and account deletion.
type AuthService struct {
	store    AccountStore
	sessions SessionStore
	files    FileStore
	ttl      time.Duration
	logger   *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(store AccountStore, sessions SessionStore, files FileStore, ttl time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:    store,
		sessions: sessions,
		files:    files,
		ttl:      ttl,
		logger:   logger,
	}
}

// Signup creates a new account with an argon2id-hashed password.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		BookIDs:      []string{},
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and issues an opaque session token stored
// in Redis with the configured TTL. Unknown email and wrong password
// produce the same error so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	match, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	sess := &model.Session{UserID: user.ID, Email: user.Email}
	if err := s.sessions.SetSession(ctx, token, sess, s.ttl); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}

	return token, user, nil
}

// DeleteAccount removes a user, their books and cover images, and
// revokes the presented session. Only the account owner may delete it.
// Cover file removal is best-effort; book rows must go before the user
// row because of the creator_id foreign key.
func (s *AuthService) DeleteAccount(ctx context.Context, userID, callerID, token string) error {
	if callerID != userID {
		return ErrNotSelf
	}

	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	books, err := s.store.ListBooksByCreator(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}

	for _, book := range books {
		if book.ImageURL != "" {
			if err := s.files.Delete(book.ImageURL); err != nil {
				s.logger.Warn("failed to delete cover image",
					slog.String("path", book.ImageURL),
					slog.String("error", err.Error()),
				)
			}
		}
		if err := s.store.DeleteBook(ctx, book.ID); err != nil {
			return fmt.Errorf("failed to delete book %s: %w", book.ID, err)
		}
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		s.logger.Warn("failed to revoke session", slog.String("error", err.Error()))
	}

	return nil
}
