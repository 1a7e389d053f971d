package inventorytest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/events"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/service"
	"github.com/kitchenbook/kitchenbook-backend/pkg/config"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
	"github.com/kitchenbook/kitchenbook-backend/pkg/testutil"
)

// Env is the inventory service graph wired to the in-memory store
type Env struct {
	Store     *Store
	Publisher *testutil.MockPublisher
	Hub       *Hub
	Mailer    *Mailer

	Recorder      *service.Recorder
	Alerts        *service.AlertBridge
	Inventory     *service.InventoryService
	References    *service.ReferenceService
	Notifications *service.NotificationService
	History       *service.HistoryService
}

// NewEnv wires every service. Email is enabled with fallback as the
// fallback recipient list.
func NewEnv(fallback ...string) *Env {
	store := NewStore()
	pub := testutil.NewMockPublisher()
	hub := &Hub{}
	mailer := &Mailer{}
	log := logger.Nop()

	publisher := events.NewWithPublisher(pub, log)
	stats := service.NewStatsCache(nil, 0, log)
	alerts := service.NewAlertBridge(
		store.NotificationStore(), publisher, hub, mailer, store.ContactStore(),
		&config.AlertsConfig{EmailEnabled: true, FallbackRecipients: fallback},
		stats, log,
	)
	recorder := service.NewRecorder(
		store, store.ItemStore(), store.TransactionStore(), store.Suppliers(),
		alerts, publisher, hub, stats, log,
	)

	return &Env{
		Store:         store,
		Publisher:     pub,
		Hub:           hub,
		Mailer:        mailer,
		Recorder:      recorder,
		Alerts:        alerts,
		Inventory:     service.NewInventoryService(recorder, store.Categories(), store.Units(), store.NotificationStore(), log),
		References:    service.NewReferenceService(store.Categories(), store.Suppliers(), store.Units(), log),
		Notifications: service.NewNotificationService(store.NotificationStore(), stats),
		History:       service.NewHistoryService(store.TransactionStore()),
	}
}

// Unit creates or returns the unit named name
func (e *Env) Unit(t *testing.T, ctx context.Context, name string) *domain.Unit {
	t.Helper()
	u, _, err := e.References.GetOrCreateUnit(ctx, name, nil)
	require.NoError(t, err)
	return u
}

// Supplier creates or returns the supplier named name
func (e *Env) Supplier(t *testing.T, ctx context.Context, name string) *domain.Supplier {
	t.Helper()
	s, _, err := e.References.GetOrCreateSupplier(ctx, name, nil, nil)
	require.NoError(t, err)
	return s
}

// Item creates an item in a "kg" unit with the given minimum and no stock
func (e *Env) Item(t *testing.T, ctx context.Context, sku, minimum string) *domain.ItemView {
	t.Helper()
	item, err := e.Inventory.CreateItem(ctx, service.CreateItemInput{
		SKU:          sku,
		Name:         "Item " + sku,
		UnitID:       e.Unit(t, ctx, "kg").ID,
		MinimumStock: testutil.Dec(minimum),
	})
	require.NoError(t, err)
	return item
}

// Record records a movement and fails the test on error
func (e *Env) Record(t *testing.T, ctx context.Context, itemID string, typ domain.TransactionType, quantity string, unitCost *string) *service.Recorded {
	t.Helper()
	in := service.RecordInput{Type: typ, Quantity: testutil.Dec(quantity)}
	if unitCost != nil {
		in.UnitCost = testutil.PtrDec(*unitCost)
	}
	rec, err := e.Recorder.RecordTransaction(ctx, itemID, in)
	require.NoError(t, err)
	return rec
}
