package consumers

import (
	"context"
	"strings"

	"github.com/kitchenbook/kitchenbook-backend/pkg/actor"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
	"github.com/kitchenbook/kitchenbook-backend/pkg/messaging"
)

// ContactStore keeps the alert contacts synced from user events
type ContactStore interface {
	Upsert(ctx context.Context, c *actor.Contact) error
	Get(ctx context.Context, userID string) (*actor.Contact, error)
	Delete(ctx context.Context, userID string) error
}

// UserEventConsumer consumes user events into the contact store
type UserEventConsumer struct {
	consumer *messaging.Consumer
}

// NewUserEventConsumer creates a new user event consumer
func NewUserEventConsumer(rmq *messaging.RabbitMQ, contacts ContactStore, log *logger.Logger) (*UserEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "inventory-service.user-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeUserEvents, "user.#"); err != nil {
		return nil, err
	}

	h := NewUserEventHandler(contacts, log)
	consumer.RegisterHandler(messaging.EventUserCreated, h.HandleUserCreated)
	consumer.RegisterHandler(messaging.EventUserUpdated, h.HandleUserUpdated)
	consumer.RegisterHandler(messaging.EventUserDeleted, h.HandleUserDeleted)

	return &UserEventConsumer{consumer: consumer}, nil
}

// Start starts consuming messages
func (c *UserEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// UserEventHandler applies user events to the contact store
type UserEventHandler struct {
	contacts ContactStore
	logger   *logger.Logger
}

// NewUserEventHandler creates the handlers without a broker connection
func NewUserEventHandler(contacts ContactStore, log *logger.Logger) *UserEventHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &UserEventHandler{contacts: contacts, logger: log.WithComponent("user-events")}
}

// HandleUserCreated stores the new user as a contact. Users receive alerts
// unless the event opts them out.
func (h *UserEventHandler) HandleUserCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("user_id", data.UserID).
		Str("owner_id", data.OwnerID).
		Msg("received user created event")

	receives := true
	if data.StockAlerts != nil {
		receives = *data.StockAlerts
	}

	return h.contacts.Upsert(ctx, &actor.Contact{
		UserID:         data.UserID,
		OwnerID:        data.OwnerID,
		Email:          strings.TrimSpace(data.Email),
		FirstName:      data.FirstName,
		LastName:       data.LastName,
		ReceivesAlerts: receives,
	})
}

// HandleUserUpdated applies changed fields to a known contact. Updates for
// users never seen are dropped.
func (h *UserEventHandler) HandleUserUpdated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserUpdatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("user_id", data.UserID).
		Msg("received user updated event")

	existing, err := h.contacts.Get(ctx, data.UserID)
	if errors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if v, ok := changedTo(data.Fields, "first_name").(string); ok {
		existing.FirstName = v
	}
	if v, ok := changedTo(data.Fields, "last_name").(string); ok {
		existing.LastName = v
	}
	if v, ok := changedTo(data.Fields, "email").(string); ok {
		existing.Email = strings.TrimSpace(v)
	}
	if data.NewEmail != nil {
		existing.Email = strings.TrimSpace(*data.NewEmail)
	}
	if v, ok := changedTo(data.Fields, "stock_alerts").(bool); ok {
		existing.ReceivesAlerts = v
	}

	return h.contacts.Upsert(ctx, existing)
}

// HandleUserDeleted forgets the contact
func (h *UserEventHandler) HandleUserDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("user_id", data.UserID).
		Msg("received user deleted event")

	return h.contacts.Delete(ctx, data.UserID)
}

// changedTo returns the "to" value of a changed field, shaped as
// {"field": {"from": ..., "to": ...}}
func changedTo(fields map[string]any, name string) any {
	change, ok := fields[name].(map[string]interface{})
	if !ok {
		return nil
	}
	return change["to"]
}
