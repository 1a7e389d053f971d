package events

import (
	"context"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
	"github.com/kitchenbook/kitchenbook-backend/pkg/messaging"
)

// Publisher is the part of messaging.Publisher the inventory events need
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// InventoryEventPublisher publishes inventory events. A nil publisher is
// valid and drops everything, which is how the service runs without RabbitMQ.
// Publish failures are logged and never reach the caller.
type InventoryEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a publisher on the inventory exchange
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}

	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing publisher
func NewWithPublisher(p Publisher, log *logger.Logger) *InventoryEventPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &InventoryEventPublisher{publisher: p, logger: log}
}

// PublishStockRecorded publishes the result of a committed stock transaction
func (p *InventoryEventPublisher) PublishStockRecorded(ctx context.Context, item *domain.InventoryItem, tx *domain.StockTransaction, previous domain.Status) {
	if p == nil {
		return
	}

	createdBy := ""
	if tx.CreatedBy != nil {
		createdBy = *tx.CreatedBy
	}

	data := messaging.StockRecordedEvent{
		OwnerID:         item.OwnerID,
		ItemID:          item.ID,
		TransactionID:   tx.ID,
		TransactionType: string(tx.Type),
		Quantity:        tx.Quantity.String(),
		BeforeStock:     tx.BeforeStock.String(),
		AfterStock:      tx.AfterStock.String(),
		AverageCost:     item.AverageCost.String(),
		TotalValue:      item.TotalValue.String(),
		PreviousStatus:  string(previous),
		Status:          string(item.Status),
		CreatedBy:       createdBy,
		RecordedAt:      tx.CreatedAt,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockRecorded, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", item.ID).Str("transaction_id", tx.ID).Msg("failed to publish stock recorded event")
	}
}

// PublishItemDeleted publishes the removal of an item
func (p *InventoryEventPublisher) PublishItemDeleted(ctx context.Context, ownerID, itemID, sku string) {
	if p == nil {
		return
	}

	data := messaging.ItemDeletedEvent{OwnerID: ownerID, ItemID: itemID, SKU: sku}
	if err := p.publisher.Publish(ctx, messaging.EventItemDeleted, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", itemID).Msg("failed to publish item deleted event")
	}
}

// PublishNotificationCreated publishes a raised stock alert. The error is
// returned so the alert bridge can account for the failed channel.
func (p *InventoryEventPublisher) PublishNotificationCreated(ctx context.Context, n *domain.Notification) error {
	if p == nil {
		return nil
	}

	itemID := ""
	if n.InventoryItemID != nil {
		itemID = *n.InventoryItemID
	}

	data := messaging.NotificationCreatedEvent{
		NotificationID: n.ID,
		OwnerID:        n.OwnerID,
		Type:           string(n.Type),
		Severity:       string(n.Severity),
		Title:          n.Title,
		Message:        n.Message,
		ItemID:         itemID,
		ItemName:       n.ItemName,
		ItemSKU:        n.ItemSKU,
		CurrentStock:   n.CurrentStock.String(),
		MinimumStock:   n.MinimumStock.String(),
	}

	return p.publisher.Publish(ctx, messaging.EventNotificationCreated, data)
}
