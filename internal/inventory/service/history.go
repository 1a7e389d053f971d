package service

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
)

// ExportHeader is the header row of the transaction CSV export
var ExportHeader = []string{
	"date", "item", "sku", "type", "quantity", "before_stock", "after_stock",
	"cost_per_unit", "total_cost", "supplier", "notes",
}

const exportDateLayout = "2006-01-02 15:04:05"

// HistoryService reads the stock transaction history
type HistoryService struct {
	txs TransactionStore
}

// NewHistoryService creates a new history service
func NewHistoryService(txs TransactionStore) *HistoryService {
	return &HistoryService{txs: txs}
}

// ListTransactions returns a page of transactions, newest first
func (s *HistoryService) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.TransactionView, int64, error) {
	if err := validateFilter(filter); err != nil {
		return nil, 0, err
	}
	return s.txs.List(ctx, filter)
}

// ExportTransactionsCSV writes every transaction matching filter to w as
// CSV, oldest first. Money columns are rounded to cents; quantities are
// written at full precision.
func (s *HistoryService) ExportTransactionsCSV(ctx context.Context, w io.Writer, filter domain.TransactionFilter) (int, error) {
	if err := validateFilter(filter); err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return 0, err
	}

	rows := 0
	err := s.txs.Each(ctx, filter, func(tx *domain.TransactionView) error {
		rows++
		return cw.Write(exportRow(tx))
	})
	if err != nil {
		return rows, err
	}

	cw.Flush()
	return rows, cw.Error()
}

func exportRow(tx *domain.TransactionView) []string {
	return []string{
		tx.CreatedAt.UTC().Format(exportDateLayout),
		tx.ItemName,
		tx.ItemSKU,
		string(tx.Type),
		tx.Quantity.String(),
		tx.BeforeStock.String(),
		tx.AfterStock.String(),
		money(tx.CostPerUnit),
		money(tx.TotalCost),
		deref(tx.SupplierName),
		deref(tx.Notes),
	}
}

func money(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return domain.RoundCurrency(*d).StringFixed(domain.CurrencyPlaces)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func validateFilter(f domain.TransactionFilter) error {
	details := map[string]string{}
	if f.Type != "" && !f.Type.Valid() {
		details["type"] = "must be one of: purchase, sale, adjustment_in, adjustment_out"
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		details["to"] = "must not be before from"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}
