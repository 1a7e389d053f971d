package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/pkg/database"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/owner"
)

const notificationColumns = `id, owner_id, type, severity, title, message, inventory_item_id,
	item_name, item_sku, current_stock, minimum_stock, is_read, created_at`

// NotificationRepository persists stock alerts
type NotificationRepository struct {
	db *database.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a notification for the owner in ctx
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.OwnerID = ownerID

	query := `
		INSERT INTO notifications (
			id, owner_id, type, severity, title, message, inventory_item_id,
			item_name, item_sku, current_stock, minimum_stock
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING is_read, created_at
	`

	row := r.db.Ext(ctx).QueryRowxContext(ctx, query,
		n.ID, n.OwnerID, n.Type, n.Severity, n.Title, n.Message, n.InventoryItemID,
		n.ItemName, n.ItemSKU, n.CurrentStock, n.MinimumStock,
	)
	if err := row.Scan(&n.IsRead, &n.CreatedAt); err != nil {
		return database.MapError("create notification", err)
	}
	return nil
}

// List returns a page of notifications, newest first
func (r *NotificationRepository) List(ctx context.Context, unreadOnly bool, page, perPage int) ([]*domain.Notification, int64, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, 0, err
	}

	where := ` WHERE owner_id = $1`
	if unreadOnly {
		where += ` AND is_read = FALSE`
	}

	var total int64
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &total, `SELECT COUNT(*) FROM notifications`+where, ownerID); err != nil {
		return nil, 0, database.MapError("count notifications", err)
	}

	page, perPage = normalizePage(page, perPage)
	query := `SELECT ` + notificationColumns + ` FROM notifications` + where +
		` ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	items := []*domain.Notification{}
	if err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &items, query, ownerID, perPage, (page-1)*perPage); err != nil {
		return nil, 0, database.MapError("list notifications", err)
	}
	return items, total, nil
}

// UnreadCount counts the owner's unread notifications
func (r *NotificationRepository) UnreadCount(ctx context.Context) (int64, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE owner_id = $1 AND is_read = FALSE`
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &count, query, ownerID); err != nil {
		return 0, database.MapError("count unread notifications", err)
	}
	return count, nil
}

// MarkRead flags one notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) (*domain.Notification, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND owner_id = $2 RETURNING ` + notificationColumns

	var n domain.Notification
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &n, query, id, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("notification")
		}
		return nil, database.MapError("mark notification read", err)
	}
	return &n, nil
}

// MarkAllRead flags every unread notification of the owner and returns how many changed
func (r *NotificationRepository) MarkAllRead(ctx context.Context) (int64, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return 0, err
	}

	result, err := r.db.Ext(ctx).ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE owner_id = $1 AND is_read = FALSE`, ownerID)
	if err != nil {
		return 0, database.MapError("mark notifications read", err)
	}

	affected, _ := result.RowsAffected()
	return affected, nil
}

// Delete removes one notification
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	result, err := r.db.Ext(ctx).ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return database.MapError("delete notification", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("notification")
	}
	return nil
}
