// Package owner carries the account owner every inventory record is scoped to.
package owner

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// contextKey is a private type for context keys to prevent collisions
type contextKey string

const ownerIDKey contextKey = "owner_id"

var (
	// ErrNoOwnerInContext is returned when owner context is missing
	ErrNoOwnerInContext = errors.New("no owner in context")
	// ErrInvalidOwnerID is returned for identifiers that are not UUIDs
	ErrInvalidOwnerID = errors.New("owner id must be a UUID")
)

// WithOwnerID adds the owner ID to context
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

// OwnerID extracts owner ID from context
// Returns ErrNoOwnerInContext if owner ID is not found
func OwnerID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(ownerIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoOwnerInContext
	}
	return id, nil
}

// MustOwnerID extracts owner ID from context and panics if not found
// Use only in cases where missing owner is a programming error
func MustOwnerID(ctx context.Context) string {
	id, err := OwnerID(ctx)
	if err != nil {
		panic("owner ID not found in context")
	}
	return id
}

// Parse normalizes an owner identifier
func Parse(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", ErrInvalidOwnerID
	}
	return id.String(), nil
}
