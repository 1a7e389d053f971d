package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/events"
	"github.com/kitchenbook/kitchenbook-backend/pkg/actor"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

// RecordInput describes one stock movement
type RecordInput struct {
	Type        domain.TransactionType
	Quantity    decimal.Decimal
	UnitCost    *decimal.Decimal
	SupplierID  *string
	BatchNumber *string
	ExpiryDate  *time.Time
	Notes       *string
}

func (in RecordInput) movement() domain.Movement {
	return domain.Movement{Type: in.Type, Quantity: in.Quantity, UnitCost: in.UnitCost}
}

// Recorded is the committed result of a stock movement
type Recorded struct {
	Item           *domain.InventoryItem    `json:"item"`
	Transaction    *domain.StockTransaction `json:"transaction"`
	PreviousStatus domain.Status            `json:"previous_status"`
}

// Recorder is the only writer of stock levels. Each movement locks the item
// row, appends a transaction and updates the ledger in one database
// transaction, so concurrent recorders never read the same before_stock.
type Recorder struct {
	db        Transactor
	items     ItemStore
	txs       TransactionStore
	suppliers ReferenceStore[domain.Supplier]
	alerts    *AlertBridge
	publisher *events.InventoryEventPublisher
	hub       Broadcaster
	stats     *StatsCache
	logger    *logger.Logger
	now       func() time.Time
}

// NewRecorder creates a new stock transaction recorder.
// publisher, hub, alerts and stats may be nil.
func NewRecorder(
	db Transactor,
	items ItemStore,
	txs TransactionStore,
	suppliers ReferenceStore[domain.Supplier],
	alerts *AlertBridge,
	publisher *events.InventoryEventPublisher,
	hub Broadcaster,
	stats *StatsCache,
	log *logger.Logger,
) *Recorder {
	if log == nil {
		log = logger.Nop()
	}
	return &Recorder{
		db:        db,
		items:     items,
		txs:       txs,
		suppliers: suppliers,
		alerts:    alerts,
		publisher: publisher,
		hub:       hub,
		stats:     stats,
		logger:    log.WithComponent("recorder"),
		now:       time.Now,
	}
}

// RecordTransaction records a movement against an item. Validation failures
// write nothing. Alerts, events and pushes run after the commit and cannot
// fail the call. It must not be called inside an open transaction.
func (r *Recorder) RecordTransaction(ctx context.Context, itemID string, in RecordInput) (*Recorded, error) {
	in.SupplierID = blankToNil(in.SupplierID)
	in.BatchNumber = blankToNil(in.BatchNumber)
	in.Notes = blankToNil(in.Notes)

	if err := in.movement().Validate(); err != nil {
		return nil, err
	}
	if err := r.checkSupplier(ctx, in.SupplierID); err != nil {
		return nil, err
	}

	var rec *Recorded
	err := r.db.WithinTransaction(ctx, func(ctx context.Context) error {
		item, err := r.items.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}

		rec, err = r.apply(ctx, item, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.committed(ctx, rec)
	r.alerts.Evaluate(ctx, rec.Item, rec.PreviousStatus)

	r.logger.Info().
		Str("item_id", itemID).
		Str("transaction_id", rec.Transaction.ID).
		Str("type", string(in.Type)).
		Str("quantity", in.Quantity.String()).
		Str("after_stock", rec.Transaction.AfterStock.String()).
		Msg("stock transaction recorded")

	return rec, nil
}

// apply records in against item, which the caller has locked or created in
// the current transaction. item is updated in place.
func (r *Recorder) apply(ctx context.Context, item *domain.InventoryItem, in RecordInput) (*Recorded, error) {
	previous := item.Status

	out, err := domain.Apply(item.Ledger(), in.movement())
	if err != nil {
		return nil, err
	}

	tx := &domain.StockTransaction{
		InventoryItemID: item.ID,
		Type:            in.Type,
		Quantity:        in.Quantity,
		BeforeStock:     out.BeforeStock,
		AfterStock:      out.AfterStock,
		CostPerUnit:     in.UnitCost,
		TotalCost:       out.TotalCost,
		SupplierID:      in.SupplierID,
		BatchNumber:     in.BatchNumber,
		ExpiryDate:      in.ExpiryDate,
		Notes:           in.Notes,
		CreatedBy:       actor.CreatedBy(ctx),
	}
	if err := r.txs.Create(ctx, tx); err != nil {
		return nil, err
	}

	now := r.now()
	var purchasedAt *time.Time
	if in.Type == domain.TransactionPurchase {
		purchasedAt = &now
		item.LastPurchaseDate = &now
	}

	if err := r.items.UpdateLedger(ctx, item.ID, out.After, purchasedAt); err != nil {
		return nil, err
	}

	item.SetLedger(out.After)
	item.UpdatedAt = now

	return &Recorded{Item: item, Transaction: tx, PreviousStatus: previous}, nil
}

// committed fans a recorded movement out once its transaction is durable
func (r *Recorder) committed(ctx context.Context, rec *Recorded) {
	r.publisher.PublishStockRecorded(ctx, rec.Item, rec.Transaction, rec.PreviousStatus)
	if r.hub != nil {
		r.hub.Broadcast(rec.Item.OwnerID, MessageStockChanged, rec)
	}
	r.stats.Invalidate(ctx, rec.Item.OwnerID)
}

func (r *Recorder) checkSupplier(ctx context.Context, supplierID *string) error {
	if supplierID == nil {
		return nil
	}
	if !isUUID(*supplierID) {
		return errors.ValidationField("supplier_id", "must be a valid UUID")
	}
	exists, err := r.suppliers.Exists(ctx, *supplierID)
	if err != nil {
		return err
	}
	if !exists {
		return errors.ValidationField("supplier_id", "supplier does not exist")
	}
	return nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// blankToNil trims s and maps an empty result to nil
func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
