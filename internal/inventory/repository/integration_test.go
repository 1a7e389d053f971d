package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/repository"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/testutil"
)

// createTestItem creates a unit and an item for tests that need a parent item
func createTestItem(t *testing.T, ctx context.Context, sku string) *domain.InventoryItem {
	t.Helper()

	unit, _, err := repository.NewUnitRepository(suite.DB).GetOrCreate(ctx, "kg", nil)
	require.NoError(t, err)

	item := &domain.InventoryItem{
		SKU:          sku,
		Name:         "Item " + sku,
		UnitID:       unit.ID,
		MinimumStock: testutil.Dec("10"),
		Status:       domain.StatusCritical,
	}
	require.NoError(t, repository.NewItemRepository(suite.DB).Create(ctx, item))
	return item
}

func TestIntegration_ReferenceGetOrCreate(t *testing.T) {
	suite.Require(t)
	ctx, _ := testutil.OwnerContext(t)

	repo := repository.NewCategoryRepository(suite.DB)

	first, created, err := repo.GetOrCreate(ctx, "Dairy", nil)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.GetOrCreate(ctx, "  dAIRY ", nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// Another owner gets its own row
	otherCtx, _ := testutil.OwnerContext(t)
	third, created, err := repo.GetOrCreate(otherCtx, "Dairy", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestIntegration_ItemLedgerRoundTrip(t *testing.T) {
	suite.Require(t)
	ctx, _ := testutil.OwnerContext(t)

	items := repository.NewItemRepository(suite.DB)
	txs := repository.NewTransactionRepository(suite.DB)
	item := createTestItem(t, ctx, "FLOUR-01")

	purchased := testutil.PtrTime(time.Now().UTC().Truncate(time.Second))
	err := suite.DB.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := items.GetForUpdate(ctx, item.ID)
		if err != nil {
			return err
		}

		out, err := domain.Apply(locked.Ledger(), domain.Movement{
			Type:     domain.TransactionPurchase,
			Quantity: testutil.Dec("25"),
			UnitCost: testutil.PtrDec("2.40"),
		})
		if err != nil {
			return err
		}

		if err := txs.Create(ctx, &domain.StockTransaction{
			InventoryItemID: item.ID,
			Type:            domain.TransactionPurchase,
			Quantity:        testutil.Dec("25"),
			BeforeStock:     out.BeforeStock,
			AfterStock:      out.AfterStock,
			CostPerUnit:     testutil.PtrDec("2.40"),
			TotalCost:       out.TotalCost,
		}); err != nil {
			return err
		}
		return items.UpdateLedger(ctx, item.ID, out.After, purchased)
	})
	require.NoError(t, err)

	got, err := items.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentStock.Equal(testutil.Dec("25")))
	assert.True(t, got.AverageCost.Equal(testutil.Dec("2.4")))
	assert.True(t, got.TotalValue.Equal(testutil.Dec("60")))
	assert.Equal(t, domain.StatusNormal, got.Status)
	require.NotNil(t, got.UnitName)
	assert.Equal(t, "kg", *got.UnitName)

	list, total, err := txs.List(ctx, domain.TransactionFilter{ItemID: item.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.True(t, list[0].AfterStock.Equal(testutil.Dec("25")))

	stats, err := items.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalItems)
	assert.True(t, stats.TotalValue.Equal(testutil.Dec("60")))
}

func TestIntegration_TransactionTimestampsFollowInsertOrder(t *testing.T) {
	suite.Require(t)
	ctx, _ := testutil.OwnerContext(t)

	txs := repository.NewTransactionRepository(suite.DB)
	item := createTestItem(t, ctx, "CLOCK-1")

	first := &domain.StockTransaction{
		InventoryItemID: item.ID,
		Type:            domain.TransactionAdjustmentIn,
		Quantity:        testutil.Dec("1"),
		BeforeStock:     testutil.Dec("0"),
		AfterStock:      testutil.Dec("1"),
	}
	second := &domain.StockTransaction{
		InventoryItemID: item.ID,
		Type:            domain.TransactionAdjustmentIn,
		Quantity:        testutil.Dec("1"),
		BeforeStock:     testutil.Dec("1"),
		AfterStock:      testutil.Dec("2"),
	}

	// Both rows share one database transaction, as a recorder that waited on
	// the row lock shares its transaction start with the wait
	err := suite.DB.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := txs.Create(ctx, first); err != nil {
			return err
		}
		time.Sleep(20 * time.Millisecond)
		return txs.Create(ctx, second)
	})
	require.NoError(t, err)
	assert.True(t, second.CreatedAt.After(first.CreatedAt))

	list, _, err := txs.List(ctx, domain.TransactionFilter{ItemID: item.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].AfterStock.Equal(testutil.Dec("2")), "newest first")
	assert.True(t, list[1].AfterStock.Equal(testutil.Dec("1")))
}

func TestIntegration_DuplicateSKUConflicts(t *testing.T) {
	suite.Require(t)
	ctx, _ := testutil.OwnerContext(t)

	first := createTestItem(t, ctx, "DUP-1")
	err := repository.NewItemRepository(suite.DB).Create(ctx, &domain.InventoryItem{
		SKU:    "DUP-1",
		Name:   "Again",
		UnitID: first.UnitID,
		Status: domain.StatusCritical,
	})

	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestIntegration_DeleteCascadesHistoryKeepsNotifications(t *testing.T) {
	suite.Require(t)
	ctx, _ := testutil.OwnerContext(t)

	items := repository.NewItemRepository(suite.DB)
	txs := repository.NewTransactionRepository(suite.DB)
	notifications := repository.NewNotificationRepository(suite.DB)
	item := createTestItem(t, ctx, "GONE-1")

	require.NoError(t, txs.Create(ctx, &domain.StockTransaction{
		InventoryItemID: item.ID,
		Type:            domain.TransactionAdjustmentOut,
		Quantity:        testutil.Dec("1"),
		BeforeStock:     testutil.Dec("0"),
		AfterStock:      testutil.Dec("-1"),
	}))

	n, _ := domain.NewStockAlert(item, domain.StatusNormal, time.Now())
	require.NoError(t, notifications.Create(ctx, n))

	require.NoError(t, items.Delete(ctx, item.ID))

	_, total, err := txs.List(ctx, domain.TransactionFilter{ItemID: item.ID})
	require.NoError(t, err)
	assert.Zero(t, total)

	list, _, err := notifications.List(ctx, false, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].InventoryItemID)
	assert.Equal(t, "GONE-1", list[0].ItemSKU)
}
