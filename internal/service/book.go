// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/bookloft/bookloft/internal/model"
	"github.com/bookloft/bookloft/internal/repository"
)

// Service errors.
var (
	ErrBookNotFound = errors.New("book not found")
	ErrNotOwner     = errors.New("caller is not the book's creator")
	ErrNoImage      = errors.New("no image provided")
)

// BookStore is the persistence surface BookService needs.
// Implemented by *repository.Repository.
type BookStore interface {
	CreateBook(ctx context.Context, book *model.Book) error
	GetBookByID(ctx context.Context, id string) (*model.Book, error)
	GetBookWithCreator(ctx context.Context, id string) (*repository.BookWithCreator, error)
	ListBooks(ctx context.Context) ([]*repository.BookWithCreator, error)
	UpdateBook(ctx context.Context, book *model.Book) error
	DeleteBook(ctx context.Context, id string) error
}

// UserStore is the user persistence surface the services need.
// Implemented by *repository.Repository.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	AppendBookID(ctx context.Context, userID, bookID string) error
	RemoveBookID(ctx context.Context, userID, bookID string) error
}

// FileStore deletes stored cover images by path.
// Implemented by *filestore.Store.
type FileStore interface {
	Delete(path string) error
}

// BookService handles book business logic: ownership checks, image
// lifecycle and keeping the owner's book list in step with the books
// table. The book row and the owner's list are written sequentially with
// no transaction; a crash between the two can leave them out of sync.
// Clients tolerate that window, so it is documented rather than closed.
type BookService struct {
	books  BookStore
	users  UserStore
	files  FileStore
	logger *slog.Logger
}

// NewBookService creates a new BookService.
func NewBookService(books BookStore, users UserStore, files FileStore, logger *slog.Logger) *BookService {
	return &BookService{
		books:  books,
		users:  users,
		files:  files,
		logger: logger,
	}
}

// List returns every book with its creator's email resolved.
func (s *BookService) List(ctx context.Context) ([]*repository.BookWithCreator, error) {
	return s.books.ListBooks(ctx)
}

// Get retrieves one book with its creator's email resolved.
func (s *BookService) Get(ctx context.Context, id string) (*repository.BookWithCreator, error) {
	book, err := s.books.GetBookWithCreator(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// CreateBookInput defines input for creating a book.
type CreateBookInput struct {
	Title       string
	Description string
	Author      string
	Year        string
	ImagePath   string
	CreatorID   string
}

// Create persists a new book owned by the creator and appends its id to
// the creator's book list. Returns the book and the resolved creator.
//
// If the book insert succeeds but the list update fails, the book stays
// persisted and the error is surfaced - no rollback. The stored cover is
// discarded only when the insert itself failed; once a persisted row
// references the file, it is kept.
func (s *BookService) Create(ctx context.Context, input CreateBookInput) (*model.Book, *model.User, error) {
	if input.ImagePath == "" {
		return nil, nil, ErrNoImage
	}

	now := time.Now().UTC()
	book := &model.Book{
		ID:          ulid.Make().String(),
		Title:       input.Title,
		Description: input.Description,
		Author:      input.Author,
		Year:        input.Year,
		ImageURL:    input.ImagePath,
		CreatorID:   input.CreatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.books.CreateBook(ctx, book); err != nil {
		s.discardFile(input.ImagePath)
		return nil, nil, fmt.Errorf("failed to create book: %w", err)
	}

	creator, err := s.users.GetUserByID(ctx, input.CreatorID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve creator: %w", err)
	}

	if err := s.users.AppendBookID(ctx, input.CreatorID, book.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to update creator book list: %w", err)
	}

	return book, creator, nil
}

// UpdateBookInput defines input for updating a book.
// NewImagePath is empty when the request carried no replacement image.
type UpdateBookInput struct {
	ID           string
	CallerID     string
	Title        string
	Description  string
	Author       string
	Year         string
	NewImagePath string
}

// Update overwrites a book's fields.
//
// The not-found check runs before the ownership check, so an unknown id
// is always ErrBookNotFound even for a foreign caller. Title,
// description, author and year are replaced with whatever the form
// carried - an absent field clears the stored value (legacy full-replace
// semantics, kept on purpose). A replacement image with a different path
// triggers one best-effort delete of the old file; the same path triggers
// none.
func (s *BookService) Update(ctx context.Context, input UpdateBookInput) (*model.Book, error) {
	book, err := s.books.GetBookByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	if !book.OwnedBy(input.CallerID) {
		return nil, ErrNotOwner
	}

	if input.NewImagePath != "" && input.NewImagePath != book.ImageURL {
		s.discardFile(book.ImageURL)
		book.ImageURL = input.NewImagePath
	}

	book.Title = input.Title
	book.Description = input.Description
	book.Author = input.Author
	book.Year = input.Year
	book.UpdatedAt = time.Now().UTC()

	if err := s.books.UpdateBook(ctx, book); err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	return book, nil
}

// Delete removes a book, its cover file (best-effort) and the id from
// the owner's book list.
func (s *BookService) Delete(ctx context.Context, id, callerID string) error {
	book, err := s.books.GetBookByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return ErrBookNotFound
		}
		return err
	}

	if !book.OwnedBy(callerID) {
		return ErrNotOwner
	}

	s.discardFile(book.ImageURL)

	if err := s.books.DeleteBook(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return ErrBookNotFound
		}
		return err
	}

	if err := s.users.RemoveBookID(ctx, book.CreatorID, id); err != nil {
		return fmt.Errorf("failed to update creator book list: %w", err)
	}

	return nil
}

// discardFile deletes a stored cover image, logging failure instead of
// returning it. Image cleanup never blocks a book mutation.
func (s *BookService) discardFile(path string) {
	if path == "" {
		return
	}
	if err := s.files.Delete(path); err != nil {
		s.logger.Warn("failed to delete cover image",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
