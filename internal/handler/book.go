package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookloft/bookloft/internal/auth"
	"github.com/bookloft/bookloft/internal/handler/dto"
	"github.com/bookloft/bookloft/internal/model"
	"github.com/bookloft/bookloft/internal/repository"
	"github.com/bookloft/bookloft/internal/service"
)

// multipartMemory is the in-memory buffer for multipart parsing; larger
// uploads spill to temp files.
const multipartMemory = 4 << 20 // 4MB

// BookService is the business logic surface the book handlers need.
// Implemented by *service.BookService.
type BookService interface {
	List(ctx context.Context) ([]*repository.BookWithCreator, error)
	Get(ctx context.Context, id string) (*repository.BookWithCreator, error)
	Create(ctx context.Context, input service.CreateBookInput) (*model.Book, *model.User, error)
	Update(ctx context.Context, input service.UpdateBookInput) (*model.Book, error)
	Delete(ctx context.Context, id, callerID string) error
}

// UploadStore stores and deletes uploaded cover images.
// Implemented by *filestore.Store.
type UploadStore interface {
	Save(originalName string, content io.Reader) (string, error)
	Delete(path string) error
}

// BookHandler handles HTTP requests for book operations.
type BookHandler struct {
	books   BookService
	uploads UploadStore
	baseURL string
	logger  *slog.Logger
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(books BookService, uploads UploadStore, baseURL string, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		books:   books,
		uploads: uploads,
		baseURL: baseURL,
		logger:  logger,
	}
}

// List handles GET /api/book.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.List(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBookListResponse(books, h.baseURL))
}

// Get handles GET /api/book/{bookId}.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookId")

	book, err := h.books.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			writeError(w, http.StatusNotFound, "No valid book with the ID.")
			return
		}
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BookEnvelope{
		Message: "Book fetched successfully",
		Data:    dto.ToFetchedBook(book),
	})
}

// Create handles POST /api/book.
// The cover image is required; without it the request fails with 422
// before anything is persisted.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "No image provided!")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "No image provided!")
		return
	}
	defer file.Close()

	path, err := h.uploads.Save(header.Filename, file)
	if err != nil {
		h.logger.Error("failed to store cover image", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Could not store the image.")
		return
	}

	input := service.CreateBookInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Author:      r.FormValue("author"),
		Year:        r.FormValue("year"),
		ImagePath:   path,
		CreatorID:   identity.UserID,
	}

	// The service owns cleanup of the stored file: it discards the cover
	// when the insert fails and keeps it once a persisted row refers to it.
	book, creator, err := h.books.Create(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("book_created",
		slog.String("book_id", book.ID),
		slog.String("creator_id", creator.ID),
	)

	writeJSON(w, http.StatusCreated, dto.BookEnvelope{
		Message: "Book created successfully!",
		Data:    dto.ToCreatedBook(book, creator, h.baseURL),
	})
}

// Update handles PUT /api/book/{bookId}.
// A replacement image is optional; the text fields replace the stored
// values wholesale.
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	id := chi.URLParam(r, "bookId")

	// A body without a file is still a valid update.
	_ = r.ParseMultipartForm(multipartMemory)

	var newPath string
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		newPath, err = h.uploads.Save(header.Filename, file)
		if err != nil {
			h.logger.Error("failed to store cover image", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "Could not store the image.")
			return
		}
	}

	input := service.UpdateBookInput{
		ID:           id,
		CallerID:     identity.UserID,
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		Author:       r.FormValue("author"),
		Year:         r.FormValue("year"),
		NewImagePath: newPath,
	}

	book, err := h.books.Update(r.Context(), input)
	if err != nil {
		if newPath != "" {
			h.discardUpload(newPath)
		}
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("book_updated", slog.String("book_id", book.ID))

	writeJSON(w, http.StatusOK, dto.BookUpdateResponse{
		Message: "Book updated successfully!",
		Book:    dto.ToUpdatedBook(book),
	})
}

// Delete handles DELETE /api/book/{bookId}.
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	id := chi.URLParam(r, "bookId")

	if err := h.books.Delete(r.Context(), id, identity.UserID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("book_deleted",
		slog.String("book_id", id),
		slog.String("user_id", identity.UserID),
	)

	writeJSON(w, http.StatusOK, dto.BookDeleteResponse{
		Message: "Book deleted successfully!",
		Result:  dto.DeletedBook{ID: id},
	})
}

// handleServiceError maps book service errors to HTTP responses.
func (h *BookHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoImage):
		writeError(w, http.StatusUnprocessableEntity, "No image provided!")
	case errors.Is(err, service.ErrBookNotFound):
		writeError(w, http.StatusNotFound, "No book found!")
	case errors.Is(err, service.ErrNotOwner):
		writeError(w, http.StatusForbidden, "Not authorized!")
	default:
		h.logger.Error("internal_error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "An internal error occurred.")
	}
}

// discardUpload removes a stored upload after a failed mutation,
// logging failure instead of surfacing it.
func (h *BookHandler) discardUpload(path string) {
	if err := h.uploads.Delete(path); err != nil {
		h.logger.Warn("failed to delete stored upload",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
