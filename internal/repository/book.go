package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bookloft/bookloft/internal/model"
)

// ErrBookNotFound indicates no book exists for the given id.
var ErrBookNotFound = errors.New("book not found")

// BookWithCreator is a book joined with its owner's email for responses
// that resolve the creator reference.
type BookWithCreator struct {
	model.Book
	CreatorEmail string
}

// CreateBook inserts a new book into the database.
func (r *Repository) CreateBook(ctx context.Context, book *model.Book) error {
	query := `
		INSERT INTO books (id, title, description, author, year, image_url, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		book.ID,
		book.Title,
		book.Description,
		book.Author,
		book.Year,
		book.ImageURL,
		book.CreatorID,
		book.CreatedAt,
		book.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}

	return nil
}

// GetBookByID retrieves a book by its id.
func (r *Repository) GetBookByID(ctx context.Context, id string) (*model.Book, error) {
	query := `
		SELECT id, title, description, author, year, image_url, creator_id, created_at, updated_at
		FROM books
		WHERE id = $1
	`

	book, err := scanBook(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book by ID: %w", err)
	}

	return book, nil
}

// GetBookWithCreator retrieves a book by id with the creator's email resolved.
func (r *Repository) GetBookWithCreator(ctx context.Context, id string) (*BookWithCreator, error) {
	query := `
		SELECT b.id, b.title, b.description, b.author, b.year, b.image_url, b.creator_id, b.created_at, b.updated_at, u.email
		FROM books b
		JOIN users u ON u.id = b.creator_id
		WHERE b.id = $1
	`

	var bc BookWithCreator
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&bc.ID,
		&bc.Title,
		&bc.Description,
		&bc.Author,
		&bc.Year,
		&bc.ImageURL,
		&bc.CreatorID,
		&bc.CreatedAt,
		&bc.UpdatedAt,
		&bc.CreatorEmail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book with creator: %w", err)
	}

	return &bc, nil
}

// ListBooks retrieves every book with its creator's email resolved.
// The listing endpoint returns the entire collection; there is no
// pagination in the API contract.
func (r *Repository) ListBooks(ctx context.Context) ([]*BookWithCreator, error) {
	query := `
		SELECT b.id, b.title, b.description, b.author, b.year, b.image_url, b.creator_id, b.created_at, b.updated_at, u.email
		FROM books b
		JOIN users u ON u.id = b.creator_id
		ORDER BY b.created_at, b.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*BookWithCreator
	for rows.Next() {
		var bc BookWithCreator
		err := rows.Scan(
			&bc.ID,
			&bc.Title,
			&bc.Description,
			&bc.Author,
			&bc.Year,
			&bc.ImageURL,
			&bc.CreatorID,
			&bc.CreatedAt,
			&bc.UpdatedAt,
			&bc.CreatorEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, &bc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return books, nil
}

// ListBooksByCreator retrieves all books owned by the given user.
func (r *Repository) ListBooksByCreator(ctx context.Context, creatorID string) ([]*model.Book, error) {
	query := `
		SELECT id, title, description, author, year, image_url, creator_id, created_at, updated_at
		FROM books
		WHERE creator_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list books by creator: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		book, err := scanBookFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return books, nil
}

// UpdateBook updates a book's mutable fields.
func (r *Repository) UpdateBook(ctx context.Context, book *model.Book) error {
	query := `
		UPDATE books
		SET title = $2, description = $3, author = $4, year = $5, image_url = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		book.ID,
		book.Title,
		book.Description,
		book.Author,
		book.Year,
		book.ImageURL,
		book.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrBookNotFound
	}

	return nil
}

// DeleteBook removes a book row.
func (r *Repository) DeleteBook(ctx context.Context, id string) error {
	query := `DELETE FROM books WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrBookNotFound
	}

	return nil
}

// scanBook scans a single row into a Book model.
func scanBook(row pgx.Row) (*model.Book, error) {
	var book model.Book
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Description,
		&book.Author,
		&book.Year,
		&book.ImageURL,
		&book.CreatorID,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	return &book, err
}

// scanBookFromRows scans a row from pgx.Rows into a Book model.
func scanBookFromRows(rows pgx.Rows) (*model.Book, error) {
	var book model.Book
	err := rows.Scan(
		&book.ID,
		&book.Title,
		&book.Description,
		&book.Author,
		&book.Year,
		&book.ImageURL,
		&book.CreatorID,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	return &book, err
}
