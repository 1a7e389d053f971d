package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/pkg/database"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/owner"
)

const itemColumns = `i.id, i.owner_id, i.sku, i.name, i.category_id, i.unit_id, i.supplier_id,
	i.current_stock, i.minimum_stock, i.average_cost, i.total_value, i.cost_per_unit,
	i.status, i.notes, i.created_at, i.updated_at, i.last_purchase_date`

const itemViewJoins = `
	LEFT JOIN categories c ON c.id = i.category_id
	LEFT JOIN units u ON u.id = i.unit_id
	LEFT JOIN suppliers s ON s.id = i.supplier_id`

// ItemRepository handles inventory item database operations.
// Every query is scoped to the owner carried by the context.
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new item. Stock always starts at zero; only recorded
// transactions move it afterwards.
func (r *ItemRepository) Create(ctx context.Context, item *domain.InventoryItem) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.OwnerID = ownerID

	query := `
		INSERT INTO inventory_items (
			id, owner_id, sku, name, category_id, unit_id, supplier_id,
			current_stock, minimum_stock, average_cost, total_value, cost_per_unit,
			status, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, 0, $10, $11, $12)
		RETURNING current_stock, total_value, created_at, updated_at
	`

	row := r.db.Ext(ctx).QueryRowxContext(ctx, query,
		item.ID, item.OwnerID, item.SKU, item.Name, item.CategoryID, item.UnitID, item.SupplierID,
		item.MinimumStock, item.AverageCost, item.CostPerUnit, item.Status, item.Notes,
	)
	if err := row.Scan(&item.CurrentStock, &item.TotalValue, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return database.MapError("create item", err)
	}

	return nil
}

// GetByID returns an item with its reference names
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.ItemView, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + itemColumns + `, c.name AS category_name, u.name AS unit_name, s.name AS supplier_name
		FROM inventory_items i` + itemViewJoins + `
		WHERE i.id = $1 AND i.owner_id = $2`

	var item domain.ItemView
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &item, query, id, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("inventory item")
		}
		return nil, database.MapError("get item", err)
	}

	return &item, nil
}

// GetForUpdate loads an item and locks its row until the surrounding
// transaction ends. Callers must run it inside database.WithinTransaction.
func (r *ItemRepository) GetForUpdate(ctx context.Context, id string) (*domain.InventoryItem, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}
	if database.TxFromContext(ctx) == nil {
		return nil, errors.Internal("row lock requested outside a transaction")
	}

	query := `SELECT ` + itemColumns + ` FROM inventory_items i WHERE i.id = $1 AND i.owner_id = $2 FOR UPDATE`

	var item domain.InventoryItem
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &item, query, id, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("inventory item")
		}
		return nil, database.MapError("lock item", err)
	}

	return &item, nil
}

// ExistsSKU reports whether the owner already has an item with sku.
// excludeID skips one item, used when renaming.
func (r *ItemRepository) ExistsSKU(ctx context.Context, sku, excludeID string) (bool, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return false, err
	}

	query := `SELECT EXISTS(SELECT 1 FROM inventory_items WHERE owner_id = $1 AND sku = $2 AND id::text <> $3)`

	var exists bool
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &exists, query, ownerID, sku, excludeID); err != nil {
		return false, database.MapError("check sku", err)
	}
	return exists, nil
}

// List returns a page of items matching filter together with the total match count
func (r *ItemRepository) List(ctx context.Context, filter domain.ItemFilter) ([]*domain.ItemView, int64, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, 0, err
	}

	where := []string{"i.owner_id = $1"}
	args := []interface{}{ownerID}

	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(i.name ILIKE $%d OR i.sku ILIKE $%d)", len(args), len(args)))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		where = append(where, fmt.Sprintf("i.category_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("i.status = $%d", len(args)))
	}

	whereSQL := " WHERE " + strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM inventory_items i` + whereSQL
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &total, countQuery, args...); err != nil {
		return nil, 0, database.MapError("count items", err)
	}

	page, perPage := normalizePage(filter.Page, filter.PerPage)
	args = append(args, perPage, (page-1)*perPage)
	query := `SELECT ` + itemColumns + `, c.name AS category_name, u.name AS unit_name, s.name AS supplier_name
		FROM inventory_items i` + itemViewJoins + whereSQL +
		fmt.Sprintf(` ORDER BY i.name, i.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	items := []*domain.ItemView{}
	if err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &items, query, args...); err != nil {
		return nil, 0, database.MapError("list items", err)
	}

	return items, total, nil
}

// UpdateDetails writes the descriptive fields of an item along with the
// status and value derived from them. Stock and costs are left untouched.
func (r *ItemRepository) UpdateDetails(ctx context.Context, item *domain.InventoryItem) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE inventory_items SET
			sku = $3, name = $4, category_id = $5, unit_id = $6, supplier_id = $7,
			minimum_stock = $8, notes = $9, status = $10, total_value = $11,
			updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING updated_at
	`

	row := r.db.Ext(ctx).QueryRowxContext(ctx, query,
		item.ID, ownerID, item.SKU, item.Name, item.CategoryID, item.UnitID, item.SupplierID,
		item.MinimumStock, item.Notes, item.Status, item.TotalValue,
	)
	if err := row.Scan(&item.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return errors.NotFound("inventory item")
		}
		return database.MapError("update item", err)
	}

	return nil
}

// UpdateLedger persists the valuation fields of an item after a stock
// movement. purchasedAt, when set, becomes the last purchase date.
func (r *ItemRepository) UpdateLedger(ctx context.Context, id string, l domain.Ledger, purchasedAt *time.Time) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE inventory_items SET
			current_stock = $3, average_cost = $4, cost_per_unit = $5, total_value = $6,
			status = $7, last_purchase_date = COALESCE($8, last_purchase_date),
			updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
	`

	result, err := r.db.Ext(ctx).ExecContext(ctx, query,
		id, ownerID, l.CurrentStock, l.AverageCost, l.CostPerUnit, l.TotalValue, l.Status, purchasedAt,
	)
	if err != nil {
		return database.MapError("update item ledger", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("inventory item")
	}

	return nil
}

// Delete removes an item. Its transactions go with it; notifications keep
// their snapshot and lose the link.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	result, err := r.db.Ext(ctx).ExecContext(ctx,
		`DELETE FROM inventory_items WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return database.MapError("delete item", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("inventory item")
	}

	return nil
}

// Stats aggregates the owner's items for the dashboard
func (r *ItemRepository) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT
			COUNT(*) AS total_items,
			COALESCE(SUM(total_value), 0) AS total_value,
			COUNT(*) FILTER (WHERE status = 'low') AS low_stock_items,
			COUNT(*) FILTER (WHERE status = 'critical') AS critical_items,
			COUNT(*) FILTER (WHERE current_stock < 0) AS negative_stock_items
		FROM inventory_items
		WHERE owner_id = $1
	`

	var stats domain.DashboardStats
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &stats, query, ownerID); err != nil {
		return nil, database.MapError("item stats", err)
	}
	return &stats, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
