package consumers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/inventorytest"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
	"github.com/kitchenbook/kitchenbook-backend/pkg/messaging"
	"github.com/kitchenbook/kitchenbook-backend/pkg/testutil"
)

func event(t *testing.T, eventType string, data interface{}) *messaging.Event {
	t.Helper()
	e, err := messaging.NewEvent(eventType, "account-service", "", data)
	require.NoError(t, err)
	return e
}

func TestUserEvents_Lifecycle(t *testing.T) {
	store := inventorytest.NewStore()
	contacts := store.ContactStore()
	h := NewUserEventHandler(contacts, logger.Nop())
	ctx := context.Background()

	require.NoError(t, h.HandleUserCreated(ctx, event(t, messaging.EventUserCreated, messaging.UserCreatedEvent{
		UserID:    "u1",
		OwnerID:   "o1",
		Email:     " chef@example.com ",
		FirstName: "Ana",
		LastName:  "Lima",
	})))

	c, err := contacts.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "chef@example.com", c.Email)
	assert.True(t, c.ReceivesAlerts, "alerts are on by default")
	assert.Equal(t, "Ana Lima", c.FullName())

	recipients, err := contacts.Recipients(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, []string{"chef@example.com"}, recipients)

	require.NoError(t, h.HandleUserUpdated(ctx, event(t, messaging.EventUserUpdated, messaging.UserUpdatedEvent{
		UserID:  "u1",
		OwnerID: "o1",
		Fields: map[string]any{
			"last_name":    map[string]any{"from": "Lima", "to": "Souza"},
			"stock_alerts": map[string]any{"from": true, "to": false},
		},
	})))

	c, err = contacts.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Souza", c.LastName)
	assert.False(t, c.ReceivesAlerts)

	recipients, err = contacts.Recipients(ctx, "o1")
	require.NoError(t, err)
	assert.Empty(t, recipients)

	newEmail := "head.chef@example.com"
	require.NoError(t, h.HandleUserUpdated(ctx, event(t, messaging.EventUserUpdated, messaging.UserUpdatedEvent{
		UserID:   "u1",
		NewEmail: &newEmail,
	})))
	c, err = contacts.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, newEmail, c.Email)

	require.NoError(t, h.HandleUserDeleted(ctx, event(t, messaging.EventUserDeleted, messaging.UserDeletedEvent{UserID: "u1", OwnerID: "o1"})))
	_, err = contacts.Get(ctx, "u1")
	assert.True(t, errors.IsNotFound(err))
}

func TestUserEvents_OptOutOnCreate(t *testing.T) {
	contacts := inventorytest.NewStore().ContactStore()
	h := NewUserEventHandler(contacts, nil)
	ctx := context.Background()

	require.NoError(t, h.HandleUserCreated(ctx, event(t, messaging.EventUserCreated, messaging.UserCreatedEvent{
		UserID: "u2", OwnerID: "o1", Email: "porter@example.com", StockAlerts: testutil.PtrBool(false),
	})))

	c, err := contacts.Get(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, c.ReceivesAlerts)
}

func TestUserEvents_UpdateForUnknownUserIsDropped(t *testing.T) {
	contacts := inventorytest.NewStore().ContactStore()
	h := NewUserEventHandler(contacts, nil)
	ctx := context.Background()

	err := h.HandleUserUpdated(ctx, event(t, messaging.EventUserUpdated, messaging.UserUpdatedEvent{
		UserID: "ghost",
		Fields: map[string]any{"first_name": map[string]any{"to": "Casper"}},
	}))
	require.NoError(t, err)

	_, err = contacts.Get(ctx, "ghost")
	assert.True(t, errors.IsNotFound(err))
}

func TestUserEvents_BadPayload(t *testing.T) {
	h := NewUserEventHandler(inventorytest.NewStore().ContactStore(), nil)

	bad := &messaging.Event{Type: messaging.EventUserCreated, Data: []byte(`{"user_id": 42}`)}
	assert.Error(t, h.HandleUserCreated(context.Background(), bad))
}
