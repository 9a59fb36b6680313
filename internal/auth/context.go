package auth

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID string
	Email  string
	// Token is the session token the caller presented. Kept so logout
	// style operations can revoke the exact session.
	Token string
}

// ContextWithIdentity adds the authenticated identity to the context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext retrieves the identity from the context.
// Returns nil if the request is unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok {
		return nil
	}
	return id
}

// UserIDFromContext is a convenience function to get the caller's user id.
// Returns empty string if not authenticated.
func UserIDFromContext(ctx context.Context) string {
	id := IdentityFromContext(ctx)
	if id == nil {
		return ""
	}
	return id.UserID
}
