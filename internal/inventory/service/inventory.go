package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
	"github.com/kitchenbook/kitchenbook-backend/pkg/owner"
)

// Notes attached to transactions the ledger records on its own
const (
	noteInitialStock = "Initial stock"
	noteStockEdit    = "Stock corrected by item edit"
)

// CreateItemInput holds the fields of a new item
type CreateItemInput struct {
	SKU          string
	Name         string
	CategoryID   *string
	UnitID       string
	SupplierID   *string
	MinimumStock decimal.Decimal
	InitialStock decimal.Decimal
	CostPerUnit  decimal.Decimal
	Notes        *string
}

// UpdateItemInput is a partial update. Nil fields are left alone; an empty
// CategoryID or SupplierID clears the reference.
type UpdateItemInput struct {
	SKU          *string
	Name         *string
	CategoryID   *string
	UnitID       *string
	SupplierID   *string
	MinimumStock *decimal.Decimal
	CurrentStock *decimal.Decimal
	Notes        *string
}

// InventoryService manages the item ledger. Every stock change goes through
// the Recorder, including the ones implied by creating or editing an item.
type InventoryService struct {
	recorder      *Recorder
	categories    ReferenceStore[domain.Category]
	units         ReferenceStore[domain.Unit]
	notifications NotificationStore
	logger        *logger.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	recorder *Recorder,
	categories ReferenceStore[domain.Category],
	units ReferenceStore[domain.Unit],
	notifications NotificationStore,
	log *logger.Logger,
) *InventoryService {
	if log == nil {
		log = logger.Nop()
	}
	return &InventoryService{
		recorder:      recorder,
		categories:    categories,
		units:         units,
		notifications: notifications,
		logger:        log.WithComponent("inventory"),
	}
}

// CreateItem creates an item. A positive initial stock is booked as a
// purchase at the initial cost in the same transaction.
func (s *InventoryService) CreateItem(ctx context.Context, in CreateItemInput) (*domain.ItemView, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	in.UnitID = strings.TrimSpace(in.UnitID)
	in.CategoryID = blankToNil(in.CategoryID)
	in.SupplierID = blankToNil(in.SupplierID)
	in.Notes = blankToNil(in.Notes)

	if err := validateCreate(in); err != nil {
		return nil, err
	}

	r := s.recorder
	exists, err := r.items.ExistsSKU(ctx, in.SKU, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Conflict("an item with this SKU already exists")
	}

	unitID := in.UnitID
	if err := s.checkReferences(ctx, in.CategoryID, &unitID, in.SupplierID); err != nil {
		return nil, err
	}

	item := &domain.InventoryItem{
		SKU:          in.SKU,
		Name:         in.Name,
		CategoryID:   in.CategoryID,
		UnitID:       in.UnitID,
		SupplierID:   in.SupplierID,
		MinimumStock: in.MinimumStock,
		AverageCost:  in.CostPerUnit,
		CostPerUnit:  in.CostPerUnit,
		Notes:        in.Notes,
	}
	item.SetLedger(domain.Recompute(item.Ledger()))

	var rec *Recorded
	err = r.db.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := r.items.Create(ctx, item); err != nil {
			return err
		}
		if !in.InitialStock.IsPositive() {
			return nil
		}

		cost := in.CostPerUnit
		note := noteInitialStock
		var err error
		rec, err = r.apply(ctx, item, RecordInput{
			Type:       domain.TransactionPurchase,
			Quantity:   in.InitialStock,
			UnitCost:   &cost,
			SupplierID: in.SupplierID,
			Notes:      &note,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if rec != nil {
		r.committed(ctx, rec)
		r.alerts.Evaluate(ctx, rec.Item, rec.PreviousStatus)
	} else {
		r.stats.Invalidate(ctx, item.OwnerID)
	}

	s.logger.Info().Str("item_id", item.ID).Str("sku", item.SKU).Msg("inventory item created")

	return r.items.GetByID(ctx, item.ID)
}

// GetItem returns one item
func (s *InventoryService) GetItem(ctx context.Context, id string) (*domain.ItemView, error) {
	return s.recorder.items.GetByID(ctx, id)
}

// ListItems returns a page of items
func (s *InventoryService) ListItems(ctx context.Context, filter domain.ItemFilter) ([]*domain.ItemView, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, errors.ValidationField("status", "must be one of: normal, low, critical")
	}
	return s.recorder.items.List(ctx, filter)
}

// UpdateItem applies a partial update. A changed current stock is recorded
// as an adjustment first, then the descriptive fields are written and the
// status is recomputed against the possibly new minimum.
func (s *InventoryService) UpdateItem(ctx context.Context, id string, in UpdateItemInput) (*domain.ItemView, error) {
	if err := validateUpdate(&in); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, in.CategoryID, in.UnitID, in.SupplierID); err != nil {
		return nil, err
	}

	r := s.recorder
	var (
		rec      *Recorded
		item     *domain.InventoryItem
		original domain.Status
	)
	err := r.db.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := r.items.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		original = locked.Status

		if in.CurrentStock != nil {
			if mv, ok := domain.AdjustmentTo(locked.CurrentStock, *in.CurrentStock); ok {
				note := noteStockEdit
				rec, err = r.apply(ctx, locked, RecordInput{Type: mv.Type, Quantity: mv.Quantity, Notes: &note})
				if err != nil {
					return err
				}
			}
		}

		if in.SKU != nil && *in.SKU != locked.SKU {
			exists, err := r.items.ExistsSKU(ctx, *in.SKU, id)
			if err != nil {
				return err
			}
			if exists {
				return errors.Conflict("an item with this SKU already exists")
			}
			locked.SKU = *in.SKU
		}
		applyDetails(locked, in)
		locked.SetLedger(domain.Recompute(locked.Ledger()))

		if err := r.items.UpdateDetails(ctx, locked); err != nil {
			return err
		}
		item = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case rec != nil:
		r.committed(ctx, rec)
	case item.Status != original:
		if r.hub != nil {
			r.hub.Broadcast(item.OwnerID, MessageStockChanged, &Recorded{Item: item, PreviousStatus: original})
		}
		r.stats.Invalidate(ctx, item.OwnerID)
	default:
		r.stats.Invalidate(ctx, item.OwnerID)
	}
	r.alerts.Evaluate(ctx, item, original)

	return r.items.GetByID(ctx, id)
}

// DeleteItem removes an item together with its transaction history
func (s *InventoryService) DeleteItem(ctx context.Context, id string) error {
	r := s.recorder
	item, err := r.items.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := r.items.Delete(ctx, id); err != nil {
		return err
	}

	r.publisher.PublishItemDeleted(ctx, item.OwnerID, item.ID, item.SKU)
	if r.hub != nil {
		r.hub.Broadcast(item.OwnerID, MessageItemDeleted, map[string]string{"id": item.ID, "sku": item.SKU})
	}
	r.stats.Invalidate(ctx, item.OwnerID)

	s.logger.Info().Str("item_id", id).Str("sku", item.SKU).Msg("inventory item deleted")
	return nil
}

// GetDashboardStats summarizes the owner's inventory, served from the
// stats cache when possible
func (s *InventoryService) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	r := s.recorder
	if cached, ok := r.stats.get(ctx, ownerID); ok {
		return cached, nil
	}

	stats, err := r.items.Stats(ctx)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.UnreadCount(ctx)
	if err != nil {
		return nil, err
	}
	stats.UnreadNotifications = unread

	r.stats.set(ctx, ownerID, stats)
	return stats, nil
}

// checkReferences verifies that set references are well-formed and belong
// to the owner. Empty IDs are not checked: an empty category or supplier
// means "none" and an empty unit is rejected by validation before this.
func (s *InventoryService) checkReferences(ctx context.Context, categoryID, unitID, supplierID *string) error {
	details := map[string]string{}

	check := func(field, missing string, id *string, exists func(context.Context, string) (bool, error)) error {
		if id == nil || *id == "" {
			return nil
		}
		if !isUUID(*id) {
			details[field] = "must be a valid UUID"
			return nil
		}
		ok, err := exists(ctx, *id)
		if err != nil {
			return err
		}
		if !ok {
			details[field] = missing
		}
		return nil
	}

	if err := check("category_id", "category does not exist", categoryID, s.categories.Exists); err != nil {
		return err
	}
	if err := check("unit_id", "unit does not exist", unitID, s.units.Exists); err != nil {
		return err
	}
	if err := check("supplier_id", "supplier does not exist", supplierID, s.recorder.suppliers.Exists); err != nil {
		return err
	}

	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

func validateCreate(in CreateItemInput) error {
	details := map[string]string{}
	if in.SKU == "" {
		details["sku"] = "is required"
	}
	if in.Name == "" {
		details["name"] = "is required"
	}
	if in.UnitID == "" {
		details["unit_id"] = "is required"
	}
	if in.MinimumStock.IsNegative() {
		details["minimum_stock"] = "must not be negative"
	}
	if in.InitialStock.IsNegative() {
		details["initial_stock"] = "must not be negative"
	}
	if in.CostPerUnit.IsNegative() {
		details["cost_per_unit"] = "must not be negative"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// validateUpdate trims the string fields of in and checks them
func validateUpdate(in *UpdateItemInput) error {
	details := map[string]string{}

	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	in.SKU = trim(in.SKU)
	in.Name = trim(in.Name)
	in.UnitID = trim(in.UnitID)
	in.CategoryID = trim(in.CategoryID)
	in.SupplierID = trim(in.SupplierID)

	if in.SKU != nil && *in.SKU == "" {
		details["sku"] = "must not be empty"
	}
	if in.Name != nil && *in.Name == "" {
		details["name"] = "must not be empty"
	}
	if in.UnitID != nil && *in.UnitID == "" {
		details["unit_id"] = "must not be empty"
	}
	if in.MinimumStock != nil && in.MinimumStock.IsNegative() {
		details["minimum_stock"] = "must not be negative"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// applyDetails copies the descriptive fields of in onto item
func applyDetails(item *domain.InventoryItem, in UpdateItemInput) {
	if in.Name != nil {
		item.Name = *in.Name
	}
	if in.UnitID != nil {
		item.UnitID = *in.UnitID
	}
	if in.CategoryID != nil {
		item.CategoryID = blankToNil(in.CategoryID)
	}
	if in.SupplierID != nil {
		item.SupplierID = blankToNil(in.SupplierID)
	}
	if in.MinimumStock != nil {
		item.MinimumStock = *in.MinimumStock
	}
	if in.Notes != nil {
		item.Notes = blankToNil(in.Notes)
	}
}
