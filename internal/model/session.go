package model

// Session is the identity attached to a login token.
// Stored in Redis keyed by the opaque token; the token itself is never
// persisted in PostgreSQL.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
