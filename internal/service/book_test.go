package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/bookloft/bookloft/internal/model"
	"github.com/bookloft/bookloft/internal/repository"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeBookStore struct {
	books map[string]*model.Book

	createErr error
	updateErr error
	deleteErr error
}

func newFakeBookStore() *fakeBookStore {
	return &fakeBookStore{books: make(map[string]*model.Book)}
}

func (f *fakeBookStore) CreateBook(_ context.Context, book *model.Book) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *book
	f.books[book.ID] = &cp
	return nil
}

func (f *fakeBookStore) GetBookByID(_ context.Context, id string) (*model.Book, error) {
	book, ok := f.books[id]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	cp := *book
	return &cp, nil
}

func (f *fakeBookStore) GetBookWithCreator(_ context.Context, id string) (*repository.BookWithCreator, error) {
	book, ok := f.books[id]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	return &repository.BookWithCreator{Book: *book, CreatorEmail: "creator@example.com"}, nil
}

func (f *fakeBookStore) ListBooks(_ context.Context) ([]*repository.BookWithCreator, error) {
	out := make([]*repository.BookWithCreator, 0, len(f.books))
	for _, book := range f.books {
		out = append(out, &repository.BookWithCreator{Book: *book, CreatorEmail: "creator@example.com"})
	}
	return out, nil
}

func (f *fakeBookStore) UpdateBook(_ context.Context, book *model.Book) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.books[book.ID]; !ok {
		return repository.ErrBookNotFound
	}
	cp := *book
	f.books[book.ID] = &cp
	return nil
}

func (f *fakeBookStore) DeleteBook(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.books[id]; !ok {
		return repository.ErrBookNotFound
	}
	delete(f.books, id)
	return nil
}

type fakeUserStore struct {
	users map[string]*model.User

	appended  [][2]string // userID, bookID pairs
	removed   [][2]string
	appendErr error
	removeErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (f *fakeUserStore) AppendBookID(_ context.Context, userID, bookID string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, [2]string{userID, bookID})
	if user, ok := f.users[userID]; ok {
		user.BookIDs = append(user.BookIDs, bookID)
	}
	return nil
}

func (f *fakeUserStore) RemoveBookID(_ context.Context, userID, bookID string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, [2]string{userID, bookID})
	if user, ok := f.users[userID]; ok {
		kept := user.BookIDs[:0]
		for _, id := range user.BookIDs {
			if id != bookID {
				kept = append(kept, id)
			}
		}
		user.BookIDs = kept
	}
	return nil
}

type fakeFileStore struct {
	deleted   []string
	deleteErr error
}

func (f *fakeFileStore) Delete(path string) error {
	f.deleted = append(f.deleted, path)
	return f.deleteErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBookServiceForTest() (*BookService, *fakeBookStore, *fakeUserStore, *fakeFileStore) {
	books := newFakeBookStore()
	users := newFakeUserStore()
	files := &fakeFileStore{}
	svc := NewBookService(books, users, files, testLogger())
	return svc, books, users, files
}

func seedBook(books *fakeBookStore, id, creatorID, imageURL string) *model.Book {
	book := &model.Book{
		ID:          id,
		Title:       "Dune",
		Description: "Desert planet",
		Author:      "Frank Herbert",
		Year:        "1965",
		ImageURL:    imageURL,
		CreatorID:   creatorID,
	}
	books.books[id] = book
	return book
}

// ============================================================================
// Create
// ============================================================================

func TestBookService_Create_NoImage(t *testing.T) {
	svc, books, users, _ := newBookServiceForTest()

	_, _, err := svc.Create(context.Background(), CreateBookInput{
		Title:     "Dune",
		CreatorID: "user-1",
	})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}

	if len(books.books) != 0 {
		t.Error("nothing should be persisted without an image")
	}
	if len(users.appended) != 0 {
		t.Error("no book list update should happen without an image")
	}
}

func TestBookService_Create_Success(t *testing.T) {
	svc, books, users, _ := newBookServiceForTest()
	users.users["user-1"] = &model.User{ID: "user-1", Email: "reader@example.com", BookIDs: []string{}}

	book, creator, err := svc.Create(context.Background(), CreateBookInput{
		Title:       "Dune",
		Description: "Desert planet",
		Author:      "Frank Herbert",
		Year:        "1965",
		ImagePath:   "uploads/cover.png",
		CreatorID:   "user-1",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if book.ID == "" {
		t.Error("book should get a generated id")
	}
	if book.ImageURL != "uploads/cover.png" {
		t.Errorf("unexpected image url: %s", book.ImageURL)
	}
	if book.CreatorID != "user-1" {
		t.Errorf("unexpected creator id: %s", book.CreatorID)
	}

	if creator.Email != "reader@example.com" {
		t.Errorf("unexpected creator email: %s", creator.Email)
	}

	if _, ok := books.books[book.ID]; !ok {
		t.Error("book should be persisted")
	}

	if len(users.appended) != 1 {
		t.Fatalf("expected one book list append, got %d", len(users.appended))
	}
	if users.appended[0] != [2]string{"user-1", book.ID} {
		t.Errorf("unexpected append: %v", users.appended[0])
	}
}

func TestBookService_Create_InsertFails(t *testing.T) {
	svc, books, users, files := newBookServiceForTest()
	users.users["user-1"] = &model.User{ID: "user-1", Email: "reader@example.com"}
	books.createErr = errors.New("insert blew up")

	_, _, err := svc.Create(context.Background(), CreateBookInput{
		ImagePath: "uploads/cover.png",
		CreatorID: "user-1",
	})
	if err == nil {
		t.Fatal("expected error when the insert fails")
	}

	// Nothing references the stored cover, so it gets discarded.
	if len(files.deleted) != 1 || files.deleted[0] != "uploads/cover.png" {
		t.Errorf("orphaned cover should be deleted once, got %v", files.deleted)
	}
	if len(users.appended) != 0 {
		t.Error("no book list update should happen when the insert fails")
	}
}

func TestBookService_Create_ListUpdateFails(t *testing.T) {
	svc, books, users, files := newBookServiceForTest()
	users.users["user-1"] = &model.User{ID: "user-1", Email: "reader@example.com"}
	users.appendErr = errors.New("array_append blew up")

	_, _, err := svc.Create(context.Background(), CreateBookInput{
		ImagePath: "uploads/cover.png",
		CreatorID: "user-1",
	})
	if err == nil {
		t.Fatal("expected error when list update fails")
	}

	// The book row stays; there is no rollback across the two writes.
	if len(books.books) != 1 {
		t.Errorf("book row should remain persisted, found %d", len(books.books))
	}

	// The persisted row references the cover, so the file must survive.
	if len(files.deleted) != 0 {
		t.Errorf("cover referenced by a persisted book must not be deleted, got %v", files.deleted)
	}
}

// ============================================================================
// Get / List
// ============================================================================

func TestBookService_Get_NotFound(t *testing.T) {
	svc, _, _, _ := newBookServiceForTest()

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

func TestBookService_Get_Found(t *testing.T) {
	svc, books, _, _ := newBookServiceForTest()
	seedBook(books, "b1", "user-1", "uploads/cover.png")

	book, err := svc.Get(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if book.ID != "b1" {
		t.Errorf("unexpected book id: %s", book.ID)
	}
	if book.CreatorEmail == "" {
		t.Error("creator email should be resolved")
	}
}

// ============================================================================
// Update
// ============================================================================

func TestBookService_Update_NotFound(t *testing.T) {
	svc, _, _, files := newBookServiceForTest()

	// Unknown id reports not-found even for a caller who owns nothing;
	// existence is checked before ownership.
	_, err := svc.Update(context.Background(), UpdateBookInput{
		ID:       "missing",
		CallerID: "someone-else",
	})
	if !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
	if len(files.deleted) != 0 {
		t.Error("no file should be touched")
	}
}

func TestBookService_Update_NotOwner(t *testing.T) {
	svc, books, _, files := newBookServiceForTest()
	seedBook(books, "b1", "user-1", "uploads/old.png")

	_, err := svc.Update(context.Background(), UpdateBookInput{
		ID:           "b1",
		CallerID:     "user-2",
		Title:        "Hijacked",
		NewImagePath: "uploads/new.png",
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	if books.books["b1"].Title != "Dune" {
		t.Error("book should be untouched after failed ownership check")
	}
	if len(files.deleted) != 0 {
		t.Error("old image should not be deleted on failed ownership check")
	}
}

func TestBookService_Update_ReplacesImage(t *testing.T) {
	svc, books, _, files := newBookServiceForTest()
	seedBook(books, "b1", "user-1", "uploads/old.png")

	book, err := svc.Update(context.Background(), UpdateBookInput{
		ID:           "b1",
		CallerID:     "user-1",
		Title:        "Dune Messiah",
		Description:  "Sequel",
		Author:       "Frank Herbert",
		Year:         "1969",
		NewImagePath: "uploads/new.png",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if book.ImageURL != "uploads/new.png" {
		t.Errorf("expected new image url, got %s", book.ImageURL)
	}

	if len(files.deleted) != 1 || files.deleted[0] != "uploads/old.png" {
		t.Errorf("old image should be deleted exactly once, got %v", files.deleted)
	}
}

func TestBookService_Update_SameImagePath(t *testing.T) {
	svc, books, _, files := newBookServiceForTest()
	seedBook(books, "b1", "user-1", "uploads/same.png")

	_, err := svc.Update(context.Background(), UpdateBookInput{
		ID:           "b1",
		CallerID:     "user-1",
		Title:        "Dune",
		NewImagePath: "uploads/same.png",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if len(files.deleted) != 0 {
		t.Errorf("identical image path should trigger no delete, got %v", files.deleted)
	}
}

func TestBookService_Update_OverwritesAllFields(t *testing.T) {
	svc, books, _, files := newBookServiceForTest()
	seedBook(books, "b1", "user-1", "uploads/cover.png")

	// Absent form fields arrive as empty strings and clear the stored
	// values; partial updates were never part of the contract.
	book, err := svc.Update(context.Background(), UpdateBookInput{
		ID:       "b1",
		CallerID: "user-1",
		Title:    "Only Title Survives",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if book.Title != "Only Title Survives" {
		t.Errorf("unexpected title: %s", book.Title)
	}
	if book.Description != "" || book.Author != "" || book.Year != "" {
		t.Errorf("absent fields should clear stored values: %+v", book)
	}
	if book.ImageURL != "uploads/cover.png" {
		t.Error("image should survive an update without a replacement file")
	}
	if len(files.deleted) != 0 {
		t.Error("no file should be deleted without a replacement image")
	}
}

func TestBookService_Update_ImageDeleteFailureIsNotFatal(t *testing.T) {
	svc, books, _, files := newBookServiceForTest()
	seedBook(books, "b1", "user-1", "uploads/old.png")
	files.deleteErr = errors.New("disk unhappy")

	book, err := svc.Update(context.Background(), UpdateBookInput{
		ID:           "b1",
		CallerID:     "user-1",
		NewImagePath: "uploads/new.png",
	})
	if err != nil {
		t.Fatalf("Update should succeed despite file delete failure: %v", err)
	}
	if book.ImageURL != "uploads/new.png" {
		t.Errorf("expected new image url, got %s", book.ImageURL)
	}
}

// ============================================================================
// Delete
// ============================================================================

func TestBookService_Delete_NotFound(t *testing.T) {
	svc, _, _, files := newBookServiceForTest()

	err := svc.Delete(context.Background(), "missing", "user-1")
	if !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
	if len(files.deleted) != 0 {
		t.Error("no file should be touched")
	}
}

func TestBookService_Delete_NotOwner(t *testing.T) {
	svc, books, users, files := newBookServiceForTest()
	seedBook(books, "b1", "user-1", "uploads/cover.png")

	err := svc.Delete(context.Background(), "b1", "user-2")
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	if _, ok := books.books["b1"]; !ok {
		t.Error("book should survive a foreign delete attempt")
	}
	if len(files.deleted) != 0 {
		t.Error("cover should survive a foreign delete attempt")
	}
	if len(users.removed) != 0 {
		t.Error("book list should be untouched")
	}
}

func TestBookService_Delete_Success(t *testing.T) {
	svc, books, users, files := newBookServiceForTest()
	seedBook(books, "b1", "user-1", "uploads/cover.png")
	users.users["user-1"] = &model.User{ID: "user-1", BookIDs: []string{"b1"}}

	if err := svc.Delete(context.Background(), "b1", "user-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, ok := books.books["b1"]; ok {
		t.Error("book row should be gone")
	}
	if len(files.deleted) != 1 || files.deleted[0] != "uploads/cover.png" {
		t.Errorf("cover should be deleted once, got %v", files.deleted)
	}
	if len(users.removed) != 1 || users.removed[0] != [2]string{"user-1", "b1"} {
		t.Errorf("book id should be removed from the owner's list, got %v", users.removed)
	}
}

func TestBookService_Delete_FileFailureIsNotFatal(t *testing.T) {
	svc, books, _, files := newBookServiceForTest()
	seedBook(books, "b1", "user-1", "uploads/cover.png")
	files.deleteErr = errors.New("disk unhappy")

	if err := svc.Delete(context.Background(), "b1", "user-1"); err != nil {
		t.Fatalf("Delete should succeed despite file delete failure: %v", err)
	}
	if _, ok := books.books["b1"]; ok {
		t.Error("book row should be gone")
	}
}
