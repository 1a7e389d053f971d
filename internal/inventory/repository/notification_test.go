package repository_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/repository"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/testutil"
)

var notificationRowColumns = []string{
	"id", "owner_id", "type", "severity", "title", "message", "inventory_item_id",
	"item_name", "item_sku", "current_stock", "minimum_stock", "is_read", "created_at",
}

func TestNotificationRepository_Create(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	ctx, ownerID := testutil.OwnerContext(t)
	itemID := "item-1"

	mockDB.ExpectQuery("INSERT INTO notifications").
		WithArgs(testutil.AnyUUID{}, ownerID, "low_stock", "warning", "Low stock: Flour", sqlmock.AnyArg(),
			itemID, "Flour", "FLOUR-01", testutil.DecimalArg("5"), testutil.DecimalArg("10")).
		WillReturnRows(testutil.MockRows("is_read", "created_at").AddRow(false, time.Now()))

	repo := repository.NewNotificationRepository(mockDB.Database())
	n := &domain.Notification{
		Type:            domain.NotificationLowStock,
		Severity:        domain.SeverityWarning,
		Title:           "Low stock: Flour",
		Message:         "Flour (FLOUR-01) is at 5, minimum 10",
		InventoryItemID: &itemID,
		ItemName:        "Flour",
		ItemSKU:         "FLOUR-01",
		CurrentStock:    testutil.Dec("5"),
		MinimumStock:    testutil.Dec("10"),
	}

	require.NoError(t, repo.Create(ctx, n))
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.IsRead)
	mockDB.ExpectationsWereMet(t)
}

func TestNotificationRepository_List_UnreadOnly(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	ctx, ownerID := testutil.OwnerContext(t)

	mockDB.ExpectQuery("SELECT COUNT(*) FROM notifications WHERE owner_id = $1 AND is_read = FALSE").
		WithArgs(ownerID).
		WillReturnRows(testutil.MockRows("count").AddRow(int64(1)))
	mockDB.ExpectQuery("ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3").
		WithArgs(ownerID, 10, 0).
		WillReturnRows(testutil.MockRows(notificationRowColumns...).AddRow(
			"n-1", ownerID, "out_of_stock", "critical", "Out of stock: Milk", "Milk is out",
			nil, "Milk", "MILK-1", "0", "4", false, time.Now(),
		))

	repo := repository.NewNotificationRepository(mockDB.Database())
	items, total, err := repo.List(ctx, true, 1, 10)

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, domain.NotificationOutOfStock, items[0].Type)
	assert.Nil(t, items[0].InventoryItemID)
	mockDB.ExpectationsWereMet(t)
}

func TestNotificationRepository_UnreadCount(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	ctx, ownerID := testutil.OwnerContext(t)
	mockDB.ExpectQuery("is_read = FALSE").
		WithArgs(ownerID).
		WillReturnRows(testutil.MockRows("count").AddRow(int64(7)))

	repo := repository.NewNotificationRepository(mockDB.Database())
	count, err := repo.UnreadCount(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	mockDB.ExpectationsWereMet(t)
}

func TestNotificationRepository_MarkRead(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	ctx, ownerID := testutil.OwnerContext(t)
	mockDB.ExpectQuery("UPDATE notifications SET is_read = TRUE WHERE id = $1 AND owner_id = $2 RETURNING").
		WithArgs("n-1", ownerID).
		WillReturnRows(testutil.MockRows(notificationRowColumns...).AddRow(
			"n-1", ownerID, "low_stock", "warning", "t", "m",
			"item-1", "Flour", "FLOUR-01", "5", "10", true, time.Now(),
		))

	repo := repository.NewNotificationRepository(mockDB.Database())
	n, err := repo.MarkRead(ctx, "n-1")

	require.NoError(t, err)
	assert.True(t, n.IsRead)
	mockDB.ExpectationsWereMet(t)
}

func TestNotificationRepository_MarkRead_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	ctx, _ := testutil.OwnerContext(t)
	mockDB.ExpectQuery("UPDATE notifications").WillReturnError(sql.ErrNoRows)

	repo := repository.NewNotificationRepository(mockDB.Database())
	_, err := repo.MarkRead(ctx, "n-404")

	assert.True(t, errors.IsNotFound(err))
	mockDB.ExpectationsWereMet(t)
}

func TestNotificationRepository_MarkAllRead(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	ctx, ownerID := testutil.OwnerContext(t)
	mockDB.ExpectExec("UPDATE notifications SET is_read = TRUE WHERE owner_id = $1 AND is_read = FALSE").
		WithArgs(ownerID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := repository.NewNotificationRepository(mockDB.Database())
	n, err := repo.MarkAllRead(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	mockDB.ExpectationsWereMet(t)
}

func TestNotificationRepository_Delete_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	ctx, ownerID := testutil.OwnerContext(t)
	mockDB.ExpectExec("DELETE FROM notifications").
		WithArgs("n-1", ownerID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := repository.NewNotificationRepository(mockDB.Database())
	err := repo.Delete(ctx, "n-1")

	assert.True(t, errors.IsNotFound(err))
	mockDB.ExpectationsWereMet(t)
}
