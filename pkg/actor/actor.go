// Package actor identifies the user or system behind a stock mutation.
//
// Stock transactions record the actor as created_by; alert emails resolve
// recipients through the Contact records kept in sync from user events.
package actor

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// SystemID is the actor ID used for mutations no user initiated
const SystemID = "00000000-0000-0000-0000-000000000000"

// Actor represents the entity performing an action in the system.
type Actor struct {
	ID      string `json:"id"`
	Email   string `json:"email,omitempty"`
	OwnerID string `json:"owner_id"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil || a.ID == "" {
		return "system"
	}
	if a.Email == "" {
		return a.ID
	}
	return a.ID + " (" + a.Email + ")"
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	return a == nil || a.ID == "" || a.ID == SystemID
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// CreatedBy returns the actor ID to persist. System mutations and actors
// whose ID is not a UUID record nil.
func CreatedBy(ctx context.Context) *string {
	a := FromContext(ctx)
	if a.IsSystem() {
		return nil
	}
	parsed, err := uuid.Parse(a.ID)
	if err != nil {
		return nil
	}
	id := parsed.String()
	return &id
}

// Contact is a user of an owner account who can receive stock alerts.
// Rows are synced from user events, never edited through the inventory API.
type Contact struct {
	UserID         string `json:"user_id" db:"user_id"`
	OwnerID        string `json:"owner_id" db:"owner_id"`
	Email          string `json:"email" db:"email"`
	FirstName      string `json:"first_name" db:"first_name"`
	LastName       string `json:"last_name" db:"last_name"`
	ReceivesAlerts bool   `json:"receives_alerts" db:"receives_alerts"`
}

// FullName returns the contact's full name.
func (c *Contact) FullName() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ToActor converts a Contact entry to an Actor.
func (c *Contact) ToActor() *Actor {
	if c == nil {
		return nil
	}
	return &Actor{ID: c.UserID, Email: c.Email, OwnerID: c.OwnerID}
}
