package model

import "time"

// User represents an account that owns books.
// BookIDs mirrors books.creator_id: every id in the list belongs to a book
// whose creator is this user. Both sides are maintained by the book
// handlers with sequential store calls; there is no transaction across
// the pair.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	BookIDs      []string  `json:"book_ids"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasBook reports whether the user's book list contains the given id.
func (u *User) HasBook(bookID string) bool {
	for _, id := range u.BookIDs {
		if id == bookID {
			return true
		}
	}
	return false
}
