// Package domain holds the inventory model and the pure valuation rules
// that keep stock, cost and status consistent.
package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the kind of stock movement
type TransactionType string

const (
	TransactionPurchase      TransactionType = "purchase"
	TransactionSale          TransactionType = "sale"
	TransactionAdjustmentIn  TransactionType = "adjustment_in"
	TransactionAdjustmentOut TransactionType = "adjustment_out"
)

// TransactionTypes lists every valid type in display order
var TransactionTypes = []TransactionType{
	TransactionPurchase,
	TransactionSale,
	TransactionAdjustmentIn,
	TransactionAdjustmentOut,
}

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionPurchase, TransactionSale, TransactionAdjustmentIn, TransactionAdjustmentOut:
		return true
	}
	return false
}

// Inbound reports whether t adds stock
func (t TransactionType) Inbound() bool {
	return t == TransactionPurchase || t == TransactionAdjustmentIn
}

// Status is the stock level classification of an item
type Status string

const (
	StatusNormal   Status = "normal"
	StatusLow      Status = "low"
	StatusCritical Status = "critical"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s == StatusNormal || s == StatusLow || s == StatusCritical
}

// InventoryItem is the ledger row for one stocked item
type InventoryItem struct {
	ID               string          `db:"id" json:"id"`
	OwnerID          string          `db:"owner_id" json:"owner_id"`
	SKU              string          `db:"sku" json:"sku"`
	Name             string          `db:"name" json:"name"`
	CategoryID       *string         `db:"category_id" json:"category_id,omitempty"`
	UnitID           string          `db:"unit_id" json:"unit_id"`
	SupplierID       *string         `db:"supplier_id" json:"supplier_id,omitempty"`
	CurrentStock     decimal.Decimal `db:"current_stock" json:"current_stock"`
	MinimumStock     decimal.Decimal `db:"minimum_stock" json:"minimum_stock"`
	AverageCost      decimal.Decimal `db:"average_cost" json:"average_cost"`
	TotalValue       decimal.Decimal `db:"total_value" json:"total_value"`
	CostPerUnit      decimal.Decimal `db:"cost_per_unit" json:"cost_per_unit"`
	Status           Status          `db:"status" json:"status"`
	Notes            *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
	LastPurchaseDate *time.Time      `db:"last_purchase_date" json:"last_purchase_date,omitempty"`
}

// Ledger returns the valuation snapshot of the item
func (i *InventoryItem) Ledger() Ledger {
	return Ledger{
		CurrentStock: i.CurrentStock,
		MinimumStock: i.MinimumStock,
		AverageCost:  i.AverageCost,
		CostPerUnit:  i.CostPerUnit,
		TotalValue:   i.TotalValue,
		Status:       i.Status,
	}
}

// SetLedger copies a valuation snapshot onto the item
func (i *InventoryItem) SetLedger(l Ledger) {
	i.CurrentStock = l.CurrentStock
	i.MinimumStock = l.MinimumStock
	i.AverageCost = l.AverageCost
	i.CostPerUnit = l.CostPerUnit
	i.TotalValue = l.TotalValue
	i.Status = l.Status
}

// ItemView is an item joined with the display names of its references
type ItemView struct {
	InventoryItem
	CategoryName *string `db:"category_name" json:"category_name,omitempty"`
	UnitName     *string `db:"unit_name" json:"unit_name,omitempty"`
	SupplierName *string `db:"supplier_name" json:"supplier_name,omitempty"`
}

// MarshalJSON adds cent-rounded display strings next to the full precision
// money fields
func (v ItemView) MarshalJSON() ([]byte, error) {
	type view ItemView
	return json.Marshal(struct {
		view
		AverageCostDisplay string `json:"average_cost_display"`
		CostPerUnitDisplay string `json:"cost_per_unit_display"`
		TotalValueDisplay  string `json:"total_value_display"`
	}{
		view:               view(v),
		AverageCostDisplay: displayMoney(v.AverageCost),
		CostPerUnitDisplay: displayMoney(v.CostPerUnit),
		TotalValueDisplay:  displayMoney(v.TotalValue),
	})
}

// ItemFilter narrows ListItems
type ItemFilter struct {
	Search     string
	CategoryID string
	Status     Status
	Page       int
	PerPage    int
}

// StockTransaction is an append-only record of one stock movement
type StockTransaction struct {
	ID              string           `db:"id" json:"id"`
	OwnerID         string           `db:"owner_id" json:"owner_id"`
	InventoryItemID string           `db:"inventory_item_id" json:"inventory_item_id"`
	Type            TransactionType  `db:"transaction_type" json:"transaction_type"`
	Quantity        decimal.Decimal  `db:"quantity" json:"quantity"`
	BeforeStock     decimal.Decimal  `db:"before_stock" json:"before_stock"`
	AfterStock      decimal.Decimal  `db:"after_stock" json:"after_stock"`
	CostPerUnit     *decimal.Decimal `db:"cost_per_unit" json:"cost_per_unit,omitempty"`
	TotalCost       *decimal.Decimal `db:"total_cost" json:"total_cost,omitempty"`
	SupplierID      *string          `db:"supplier_id" json:"supplier_id,omitempty"`
	BatchNumber     *string          `db:"batch_number" json:"batch_number,omitempty"`
	ExpiryDate      *time.Time       `db:"expiry_date" json:"expiry_date,omitempty"`
	Notes           *string          `db:"notes" json:"notes,omitempty"`
	CreatedBy       *string          `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

// TransactionView is a transaction joined with item and supplier names
type TransactionView struct {
	StockTransaction
	ItemName     string  `db:"item_name" json:"item_name"`
	ItemSKU      string  `db:"item_sku" json:"item_sku"`
	SupplierName *string `db:"supplier_name" json:"supplier_name,omitempty"`
}

// TransactionFilter narrows ListTransactions
type TransactionFilter struct {
	ItemID  string
	Type    TransactionType
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

// ReferenceKind names one of the reference data tables
type ReferenceKind string

const (
	KindCategory ReferenceKind = "category"
	KindSupplier ReferenceKind = "supplier"
	KindUnit     ReferenceKind = "unit"
)

// Category groups items
type Category struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Supplier delivers items
type Supplier struct {
	ID           string    `db:"id" json:"id"`
	OwnerID      string    `db:"owner_id" json:"owner_id"`
	Name         string    `db:"name" json:"name"`
	ContactEmail *string   `db:"contact_email" json:"contact_email,omitempty"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Unit is a unit of measure such as kg or bottle
type Unit struct {
	ID           string    `db:"id" json:"id"`
	OwnerID      string    `db:"owner_id" json:"owner_id"`
	Name         string    `db:"name" json:"name"`
	Abbreviation *string   `db:"abbreviation" json:"abbreviation,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// NotificationType classifies a stock alert
type NotificationType string

const (
	NotificationLowStock      NotificationType = "low_stock"
	NotificationOutOfStock    NotificationType = "out_of_stock"
	NotificationNegativeStock NotificationType = "negative_stock"
)

// Severity of a notification
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Notification is a persisted stock alert. Item fields are a snapshot taken
// when the alert was raised and stay meaningful after the item changes.
type Notification struct {
	ID              string           `db:"id" json:"id"`
	OwnerID         string           `db:"owner_id" json:"owner_id"`
	Type            NotificationType `db:"type" json:"type"`
	Severity        Severity         `db:"severity" json:"severity"`
	Title           string           `db:"title" json:"title"`
	Message         string           `db:"message" json:"message"`
	InventoryItemID *string          `db:"inventory_item_id" json:"inventory_item_id,omitempty"`
	ItemName        string           `db:"item_name" json:"item_name"`
	ItemSKU         string           `db:"item_sku" json:"item_sku"`
	CurrentStock    decimal.Decimal  `db:"current_stock" json:"current_stock"`
	MinimumStock    decimal.Decimal  `db:"minimum_stock" json:"minimum_stock"`
	IsRead          bool             `db:"is_read" json:"is_read"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

// DashboardStats summarizes an owner's inventory
type DashboardStats struct {
	TotalItems          int64           `db:"total_items" json:"total_items"`
	TotalValue          decimal.Decimal `db:"total_value" json:"total_value"`
	LowStockItems       int64           `db:"low_stock_items" json:"low_stock_items"`
	CriticalItems       int64           `db:"critical_items" json:"critical_items"`
	NegativeStockItems  int64           `db:"negative_stock_items" json:"negative_stock_items"`
	UnreadNotifications int64           `db:"-" json:"unread_notifications"`
}

// MarshalJSON adds the cent-rounded total value
func (s DashboardStats) MarshalJSON() ([]byte, error) {
	type stats DashboardStats
	return json.Marshal(struct {
		stats
		TotalValueDisplay string `json:"total_value_display"`
	}{stats(s), displayMoney(s.TotalValue)})
}

func displayMoney(d decimal.Decimal) string {
	return RoundCurrency(d).StringFixed(CurrencyPlaces)
}
