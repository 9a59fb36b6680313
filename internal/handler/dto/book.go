// Package dto provides Data Transfer Objects for API requests and responses.
//
// The JSON field names (_id, imageUrl, request) preserve the wire contract
// of the original API so existing clients keep working.
package dto

import (
	"github.com/bookloft/bookloft/internal/model"
	"github.com/bookloft/bookloft/internal/repository"
)

// RequestLink is the self link embedded in list and create responses.
type RequestLink struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// CreatorRef identifies a book's creator in responses.
type CreatorRef struct {
	ID    string `json:"_id,omitempty"`
	Email string `json:"email,omitempty"`
}

// BookData is a book as it appears on the wire.
type BookData struct {
	ID          string       `json:"_id"`
	Title       string       `json:"title"`
	ImageURL    string       `json:"imageUrl"`
	Description string       `json:"description"`
	Author      string       `json:"author"`
	Year        string       `json:"year"`
	Creator     *CreatorRef  `json:"creator,omitempty"`
	Request     *RequestLink `json:"request,omitempty"`
}

// BookListResponse is the GET /api/book envelope.
type BookListResponse struct {
	Count int        `json:"count"`
	Data  []BookData `json:"data"`
}

// BookEnvelope wraps a single book with a message.
type BookEnvelope struct {
	Message string   `json:"message"`
	Data    BookData `json:"data"`
}

// BookUpdateResponse is the PUT /api/book/{bookId} envelope.
type BookUpdateResponse struct {
	Message string   `json:"message"`
	Book    BookData `json:"book"`
}

// DeletedBook carries the id of a removed book.
type DeletedBook struct {
	ID string `json:"_id"`
}

// BookDeleteResponse is the DELETE /api/book/{bookId} envelope.
type BookDeleteResponse struct {
	Message string      `json:"message"`
	Result  DeletedBook `json:"result"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// SelfLink builds the canonical GET link for a book.
func SelfLink(baseURL, bookID string) *RequestLink {
	return &RequestLink{
		Type: "GET",
		URL:  baseURL + "/api/book/" + bookID,
	}
}

// ToListItem converts a joined book row to its listing representation.
func ToListItem(bc *repository.BookWithCreator, baseURL string) BookData {
	return BookData{
		ID:          bc.ID,
		Title:       bc.Title,
		ImageURL:    bc.ImageURL,
		Description: bc.Description,
		Author:      bc.Author,
		Year:        bc.Year,
		Creator:     &CreatorRef{Email: bc.CreatorEmail},
		Request:     SelfLink(baseURL, bc.ID),
	}
}

// ToBookListResponse converts joined book rows to the listing envelope.
func ToBookListResponse(books []*repository.BookWithCreator, baseURL string) BookListResponse {
	data := make([]BookData, 0, len(books))
	for _, bc := range books {
		data = append(data, ToListItem(bc, baseURL))
	}
	return BookListResponse{
		Count: len(data),
		Data:  data,
	}
}

// ToCreatedBook converts a freshly created book and its creator to the
// creation response body.
func ToCreatedBook(book *model.Book, creator *model.User, baseURL string) BookData {
	return BookData{
		ID:          book.ID,
		Title:       book.Title,
		ImageURL:    book.ImageURL,
		Description: book.Description,
		Author:      book.Author,
		Year:        book.Year,
		Creator:     &CreatorRef{ID: creator.ID, Email: creator.Email},
		Request:     SelfLink(baseURL, book.ID),
	}
}

// ToFetchedBook converts a joined book row to the single-book response.
// No self link here; the caller already has the URL.
func ToFetchedBook(bc *repository.BookWithCreator) BookData {
	return BookData{
		ID:          bc.ID,
		Title:       bc.Title,
		ImageURL:    bc.ImageURL,
		Description: bc.Description,
		Author:      bc.Author,
		Year:        bc.Year,
		Creator:     &CreatorRef{Email: bc.CreatorEmail},
	}
}

// ToUpdatedBook converts an updated book to the response body. The
// creator appears as a bare reference, mirroring the stored document the
// legacy API echoed back.
func ToUpdatedBook(book *model.Book) BookData {
	return BookData{
		ID:          book.ID,
		Title:       book.Title,
		ImageURL:    book.ImageURL,
		Description: book.Description,
		Author:      book.Author,
		Year:        book.Year,
		Creator:     &CreatorRef{ID: book.CreatorID},
	}
}
