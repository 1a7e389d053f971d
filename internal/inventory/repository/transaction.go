package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/pkg/database"
	"github.com/kitchenbook/kitchenbook-backend/pkg/owner"
)

const transactionColumns = `t.id, t.owner_id, t.inventory_item_id, t.transaction_type, t.quantity,
	t.before_stock, t.after_stock, t.cost_per_unit, t.total_cost, t.supplier_id,
	t.batch_number, t.expiry_date, t.notes, t.created_by, t.created_at`

const transactionViewFrom = ` FROM stock_transactions t
	JOIN inventory_items i ON i.id = t.inventory_item_id
	LEFT JOIN suppliers s ON s.id = t.supplier_id`

// TransactionRepository stores the append-only stock movement history.
// There is deliberately no update or delete.
type TransactionRepository struct {
	db *database.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends a transaction
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.StockTransaction) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	tx.OwnerID = ownerID

	query := `
		INSERT INTO stock_transactions (
			id, owner_id, inventory_item_id, transaction_type, quantity,
			before_stock, after_stock, cost_per_unit, total_cost, supplier_id,
			batch_number, expiry_date, notes, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`

	row := r.db.Ext(ctx).QueryRowxContext(ctx, query,
		tx.ID, tx.OwnerID, tx.InventoryItemID, tx.Type, tx.Quantity,
		tx.BeforeStock, tx.AfterStock, tx.CostPerUnit, tx.TotalCost, tx.SupplierID,
		tx.BatchNumber, tx.ExpiryDate, tx.Notes, tx.CreatedBy,
	)
	if err := row.Scan(&tx.CreatedAt); err != nil {
		return database.MapError("create transaction", err)
	}

	return nil
}

// List returns a page of transactions, newest first, with the total match count
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.TransactionView, int64, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, 0, err
	}

	whereSQL, args := transactionWhere(ownerID, filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM stock_transactions t` + whereSQL
	if err := sqlx.GetContext(ctx, r.db.Ext(ctx), &total, countQuery, args...); err != nil {
		return nil, 0, database.MapError("count transactions", err)
	}

	page, perPage := normalizePage(filter.Page, filter.PerPage)
	args = append(args, perPage, (page-1)*perPage)
	query := `SELECT ` + transactionColumns + `, i.name AS item_name, i.sku AS item_sku, s.name AS supplier_name` +
		transactionViewFrom + whereSQL +
		fmt.Sprintf(` ORDER BY t.created_at DESC, t.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	txs := []*domain.TransactionView{}
	if err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &txs, query, args...); err != nil {
		return nil, 0, database.MapError("list transactions", err)
	}

	return txs, total, nil
}

// Each streams every transaction matching filter, oldest first, without
// paging. fn errors stop the iteration and are returned as is.
func (r *TransactionRepository) Each(ctx context.Context, filter domain.TransactionFilter, fn func(*domain.TransactionView) error) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	whereSQL, args := transactionWhere(ownerID, filter)
	query := `SELECT ` + transactionColumns + `, i.name AS item_name, i.sku AS item_sku, s.name AS supplier_name` +
		transactionViewFrom + whereSQL + ` ORDER BY t.created_at, t.id`

	rows, err := r.db.Ext(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		return database.MapError("export transactions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tx domain.TransactionView
		if err := rows.StructScan(&tx); err != nil {
			return database.MapError("scan transaction", err)
		}
		if err := fn(&tx); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return database.MapError("export transactions", err)
	}
	return nil
}

func transactionWhere(ownerID string, filter domain.TransactionFilter) (string, []interface{}) {
	where := []string{"t.owner_id = $1"}
	args := []interface{}{ownerID}

	if filter.ItemID != "" {
		args = append(args, filter.ItemID)
		where = append(where, fmt.Sprintf("t.inventory_item_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("t.transaction_type = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("t.created_at < $%d", len(args)))
	}

	return " WHERE " + strings.Join(where, " AND "), args
}
