// Package utils provides helper utilities shared across the server:
// type-safe context keys, credential hashing, token signing and parsing,
// and JSON response writing.
package utils

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is a private type for context keys. A dedicated type prevents
// collisions with string keys set by other packages.
type contextKey string

// String returns the string representation of the context key.
func (c contextKey) String() string {
	return string(c)
}

// UserIDCtxKey is the key under which the authenticated user's ID is stored
// in the request context by the auth middleware.
var UserIDCtxKey = contextKey("userID")

// UserIDFromContext retrieves the authenticated user's ID from the context.
// ok is false when no user is attached or the stored value has the wrong
// type.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(uuid.UUID)
	return userID, ok
}
