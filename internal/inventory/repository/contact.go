package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/kitchenbook/kitchenbook-backend/pkg/actor"
	"github.com/kitchenbook/kitchenbook-backend/pkg/database"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
)

// ContactRepository keeps the local copy of account users that alert
// emails are sent to. Rows arrive through user events, which carry their
// owner explicitly, so the owner is a parameter here rather than read from
// the context.
type ContactRepository struct {
	db *database.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *database.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Upsert creates or replaces a contact
func (r *ContactRepository) Upsert(ctx context.Context, c *actor.Contact) error {
	query := `
		INSERT INTO account_contacts (user_id, owner_id, email, first_name, last_name, receives_alerts, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET owner_id = $2, email = $3, first_name = $4, last_name = $5, receives_alerts = $6, updated_at = NOW()
	`

	_, err := r.db.Ext(ctx).ExecContext(ctx, query,
		c.UserID, c.OwnerID, c.Email, c.FirstName, c.LastName, c.ReceivesAlerts)
	return database.MapError("upsert contact", err)
}

// Get returns a contact by user ID
func (r *ContactRepository) Get(ctx context.Context, userID string) (*actor.Contact, error) {
	query := `SELECT user_id, owner_id, email, first_name, last_name, receives_alerts FROM account_contacts WHERE user_id = $1`

	var c actor.Contact
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &c, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("contact")
		}
		return nil, database.MapError("get contact", err)
	}
	return &c, nil
}

// Delete removes a contact. Deleting an unknown user is not an error;
// events may arrive for users this service never saw.
func (r *ContactRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.Ext(ctx).ExecContext(ctx, `DELETE FROM account_contacts WHERE user_id = $1`, userID)
	return database.MapError("delete contact", err)
}

// Recipients returns the alert email addresses of an owner
func (r *ContactRepository) Recipients(ctx context.Context, ownerID string) ([]string, error) {
	query := `
		SELECT DISTINCT email FROM account_contacts
		WHERE owner_id = $1 AND receives_alerts = TRUE AND email <> ''
		ORDER BY email
	`

	emails := []string{}
	if err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &emails, query, ownerID); err != nil {
		return nil, database.MapError("list recipients", err)
	}
	return emails, nil
}
