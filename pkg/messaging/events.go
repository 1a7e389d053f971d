package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// User events, consumed to keep alert recipients in sync
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"

	// Inventory events
	EventStockRecorded       = "inventory.stock.recorded"
	EventItemDeleted         = "inventory.item.deleted"
	EventNotificationCreated = "inventory.notification.created"
)

// Exchange names
const (
	ExchangeUserEvents      = "user.events"
	ExchangeInventoryEvents = "inventory.events"
	ExchangeDeadLetter      = "dlx.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// User Events

// UserCreatedEvent is published by the account service when a user joins an owner account
type UserCreatedEvent struct {
	UserID      string `json:"user_id"`
	OwnerID     string `json:"owner_id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	StockAlerts *bool  `json:"stock_alerts,omitempty"`
}

// UserUpdatedEvent is published when a user is updated
type UserUpdatedEvent struct {
	UserID  string         `json:"user_id"`
	OwnerID string         `json:"owner_id"`
	Fields  map[string]any `json:"fields"` // Changed fields

	NewEmail *string `json:"new_email,omitempty"`
}

// UserDeletedEvent is published when a user is deleted
type UserDeletedEvent struct {
	UserID  string `json:"user_id"`
	OwnerID string `json:"owner_id"`
}

// Inventory Events

// StockRecordedEvent is published after a stock transaction commits.
// Decimal values travel as strings to keep full precision.
type StockRecordedEvent struct {
	OwnerID         string    `json:"owner_id"`
	ItemID          string    `json:"item_id"`
	TransactionID   string    `json:"transaction_id"`
	TransactionType string    `json:"transaction_type"`
	Quantity        string    `json:"quantity"`
	BeforeStock     string    `json:"before_stock"`
	AfterStock      string    `json:"after_stock"`
	AverageCost     string    `json:"average_cost"`
	TotalValue      string    `json:"total_value"`
	PreviousStatus  string    `json:"previous_status"`
	Status          string    `json:"status"`
	CreatedBy       string    `json:"created_by,omitempty"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// ItemDeletedEvent is published when an inventory item is removed
type ItemDeletedEvent struct {
	OwnerID string `json:"owner_id"`
	ItemID  string `json:"item_id"`
	SKU     string `json:"sku"`
}

// NotificationCreatedEvent is published when a stock alert is raised
type NotificationCreatedEvent struct {
	NotificationID string `json:"notification_id"`
	OwnerID        string `json:"owner_id"`
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	ItemID         string `json:"item_id,omitempty"`
	ItemName       string `json:"item_name"`
	ItemSKU        string `json:"item_sku"`
	CurrentStock   string `json:"current_stock"`
	MinimumStock   string `json:"minimum_stock"`
}
