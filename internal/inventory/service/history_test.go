package service_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/inventorytest"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/service"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/testutil"
)

func TestListTransactions(t *testing.T) {
	env := inventorytest.NewEnv()
	ctx, _ := testutil.OwnerContext(t)

	a := env.Item(t, ctx, "H-1", "0")
	b := env.Item(t, ctx, "H-2", "0")
	env.Record(t, ctx, a.ID, domain.TransactionPurchase, "5", cost("1"))
	env.Record(t, ctx, b.ID, domain.TransactionPurchase, "5", cost("1"))
	env.Record(t, ctx, a.ID, domain.TransactionSale, "2", nil)

	all, total, err := env.History.ListTransactions(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	assert.Equal(t, domain.TransactionSale, all[0].Type, "newest first")
	assert.Equal(t, "H-1", all[0].ItemSKU)

	sales, total, err := env.History.ListTransactions(ctx, domain.TransactionFilter{Type: domain.TransactionSale})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, sales, 1)

	forB, total, err := env.History.ListTransactions(ctx, domain.TransactionFilter{ItemID: b.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, b.ID, forB[0].InventoryItemID)

	page, total, err := env.History.ListTransactions(ctx, domain.TransactionFilter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 1)
}

func TestListTransactions_InvalidFilter(t *testing.T) {
	env := inventorytest.NewEnv()
	ctx, _ := testutil.OwnerContext(t)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)

	_, _, err := env.History.ListTransactions(ctx, domain.TransactionFilter{Type: "refund"})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, _, err = env.History.ListTransactions(ctx, domain.TransactionFilter{From: &from, To: &to})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestExportTransactionsCSV(t *testing.T) {
	env := inventorytest.NewEnv()
	ctx, _ := testutil.OwnerContext(t)

	item := env.Item(t, ctx, "CSV-1", "0")
	sup := env.Supplier(t, ctx, "Smith, Jones & Co")

	_, err := env.Recorder.RecordTransaction(ctx, item.ID, service.RecordInput{
		Type:       domain.TransactionPurchase,
		Quantity:   testutil.Dec("3"),
		UnitCost:   testutil.PtrDec("0.3333"),
		SupplierID: &sup.ID,
		Notes:      testutil.PtrString("said \"fresh\"\nsecond line"),
	})
	require.NoError(t, err)
	env.Record(t, ctx, item.ID, domain.TransactionSale, "1.125", nil)

	var buf bytes.Buffer
	rows, err := env.History.ExportTransactionsCSV(ctx, &buf, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, service.ExportHeader, records[0])

	purchase := records[1]
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, purchase[0])
	assert.Equal(t, "Item CSV-1", purchase[1])
	assert.Equal(t, "purchase", purchase[3])
	assert.Equal(t, "3", purchase[4])
	assert.Equal(t, "0.33", purchase[7])
	assert.Equal(t, "1.00", purchase[8])
	assert.Equal(t, "Smith, Jones & Co", purchase[9])
	assert.Equal(t, "said \"fresh\"\nsecond line", purchase[10])

	sale := records[2]
	assert.Equal(t, "sale", sale[3])
	assert.Equal(t, "1.125", sale[4])
	assert.Equal(t, "1.875", sale[6])
	assert.Empty(t, sale[7])
	assert.Empty(t, sale[9])
}

func TestExportTransactionsCSV_Empty(t *testing.T) {
	env := inventorytest.NewEnv()
	ctx, _ := testutil.OwnerContext(t)

	var buf bytes.Buffer
	rows, err := env.History.ExportTransactionsCSV(ctx, &buf, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Zero(t, rows)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{service.ExportHeader}, records)
}
