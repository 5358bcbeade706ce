package context

import (
	"context"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey ContextKey = "user_id"
	// UsernameKey is the context key for the authenticated user's name
	UsernameKey ContextKey = "username"
)

// WithUser stores the authenticated user's identity in the context
func WithUser(ctx context.Context, userID int64, username string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UsernameKey, username)
}

// ExtractUserID extracts the user ID from the request context
func ExtractUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

// ExtractUsername extracts the username from the request context
func ExtractUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}
