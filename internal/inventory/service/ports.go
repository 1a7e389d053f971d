package service

import (
	"context"
	"time"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
)

// Transactor runs fn inside a database transaction carried by the context
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(context.Context) error) error
}

// ItemStore persists inventory items
type ItemStore interface {
	Create(ctx context.Context, item *domain.InventoryItem) error
	GetByID(ctx context.Context, id string) (*domain.ItemView, error)
	GetForUpdate(ctx context.Context, id string) (*domain.InventoryItem, error)
	ExistsSKU(ctx context.Context, sku, excludeID string) (bool, error)
	List(ctx context.Context, filter domain.ItemFilter) ([]*domain.ItemView, int64, error)
	UpdateDetails(ctx context.Context, item *domain.InventoryItem) error
	UpdateLedger(ctx context.Context, id string, l domain.Ledger, purchasedAt *time.Time) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*domain.DashboardStats, error)
}

// TransactionStore appends and reads stock transactions
type TransactionStore interface {
	Create(ctx context.Context, tx *domain.StockTransaction) error
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.TransactionView, int64, error)
	Each(ctx context.Context, filter domain.TransactionFilter, fn func(*domain.TransactionView) error) error
}

// ReferenceStore manages one kind of reference data
type ReferenceStore[T any] interface {
	GetOrCreate(ctx context.Context, name string, attrs map[string]*string) (*T, bool, error)
	GetByID(ctx context.Context, id string) (*T, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]T, error)
}

// NotificationStore persists stock alerts
type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, unreadOnly bool, page, perPage int) ([]*domain.Notification, int64, error)
	UnreadCount(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, id string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

// RecipientSource resolves the alert email addresses of an owner
type RecipientSource interface {
	Recipients(ctx context.Context, ownerID string) ([]string, error)
}

// Mailer delivers a notification by email
type Mailer interface {
	Send(ctx context.Context, recipients []string, n *domain.Notification) error
}

// Broadcaster pushes a message to every live connection of an owner
type Broadcaster interface {
	Broadcast(ownerID, kind string, payload interface{})
}

// Message kinds pushed to connected clients
const (
	MessageStockChanged = "stock_changed"
	MessageItemDeleted  = "item_deleted"
	MessageNotification = "notification"
)
