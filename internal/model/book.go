// Package model defines domain entities for the application.
package model

import "time"

// Book represents a book record owned by a single user.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Year        string    `json:"year"`
	ImageURL    string    `json:"image_url"`
	CreatorID   string    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OwnedBy reports whether the given user is the book's creator.
// Only the creator may mutate or delete a book.
func (b *Book) OwnedBy(userID string) bool {
	return userID != "" && b.CreatorID == userID
}
