package domain

import (
	"fmt"
	"time"
)

// EntersAlert reports whether moving from prev to next crosses into a worse
// state. Staying in low or critical, or recovering, raises nothing.
func EntersAlert(prev, next Status) bool {
	switch {
	case prev == StatusNormal && next == StatusLow:
		return true
	case prev != StatusCritical && next == StatusCritical:
		return true
	default:
		return false
	}
}

// NewStockAlert builds the notification for an item that just entered an
// alert state. ok is false when no alert is due.
func NewStockAlert(item *InventoryItem, prev Status, now time.Time) (*Notification, bool) {
	if !EntersAlert(prev, item.Status) {
		return nil, false
	}

	itemID := item.ID
	n := &Notification{
		OwnerID:         item.OwnerID,
		InventoryItemID: &itemID,
		ItemName:        item.Name,
		ItemSKU:         item.SKU,
		CurrentStock:    item.CurrentStock,
		MinimumStock:    item.MinimumStock,
		CreatedAt:       now,
	}

	label := fmt.Sprintf("%s (%s)", item.Name, item.SKU)
	switch {
	case item.CurrentStock.IsNegative():
		n.Type = NotificationNegativeStock
		n.Severity = SeverityCritical
		n.Title = "Negative stock: " + item.Name
		n.Message = fmt.Sprintf("%s is at %s. More was used or sold than recorded; record a purchase or adjustment to correct it.",
			label, item.CurrentStock.String())
	case item.Status == StatusCritical:
		n.Type = NotificationOutOfStock
		n.Severity = SeverityCritical
		n.Title = "Out of stock: " + item.Name
		n.Message = fmt.Sprintf("%s is out of stock.", label)
	default:
		n.Type = NotificationLowStock
		n.Severity = SeverityWarning
		n.Title = "Low stock: " + item.Name
		n.Message = fmt.Sprintf("%s is down to %s, at or below the minimum of %s.",
			label, item.CurrentStock.String(), item.MinimumStock.String())
	}

	return n, true
}
