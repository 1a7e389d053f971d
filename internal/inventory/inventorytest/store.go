// Package inventorytest provides in-memory stores and delivery fakes for
// testing the inventory services without PostgreSQL, RabbitMQ or SMTP.
package inventorytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/pkg/actor"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/owner"
)

type txKey struct{}

// Store is an in-memory database. Transactions are serialized and roll back
// every change when fn fails, which gives GetForUpdate the same guarantee a
// row lock gives in PostgreSQL.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	items         map[string]domain.InventoryItem
	transactions  []domain.StockTransaction
	notifications []domain.Notification
	contacts      map[string]actor.Contact
	categories    map[string]domain.Category
	suppliers     map[string]domain.Supplier
	units         map[string]domain.Unit

	failures map[string]error
	clock    time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		items:      make(map[string]domain.InventoryItem),
		contacts:   make(map[string]actor.Contact),
		categories: make(map[string]domain.Category),
		suppliers:  make(map[string]domain.Supplier),
		units:      make(map[string]domain.Unit),
		failures:   make(map[string]error),
		clock:      time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

// FailOn makes the named operation, e.g. "UpdateLedger" or
// "CreateNotification", return err until cleared with a nil err
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// fail must be called with mu held
func (s *Store) fail(op string) error {
	return s.failures[op]
}

// tick returns a strictly increasing timestamp; must be called with mu held
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// WithinTransaction runs fn in a serialized transaction. Nested calls join
// the outer one.
func (s *Store) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	restore := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		restore()
		return err
	}
	return nil
}

func (s *Store) snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := cloneMap(s.items)
	txs := append([]domain.StockTransaction(nil), s.transactions...)
	notes := append([]domain.Notification(nil), s.notifications...)
	contacts := cloneMap(s.contacts)
	categories := cloneMap(s.categories)
	suppliers := cloneMap(s.suppliers)
	units := cloneMap(s.units)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items = items
		s.transactions = txs
		s.notifications = notes
		s.contacts = contacts
		s.categories = categories
		s.suppliers = suppliers
		s.units = units
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Transactions returns every stored transaction in insertion order
func (s *Store) Transactions() []domain.StockTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StockTransaction(nil), s.transactions...)
}

// Notifications returns every stored notification in insertion order
func (s *Store) Notifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.notifications...)
}

// Item returns the stored item regardless of owner
func (s *Store) Item(id string) (domain.InventoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	return item, ok
}

func paginate[T any](rows []T, page, perPage int) []T {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	start := (page - 1) * perPage
	if start >= len(rows) {
		return []T{}
	}
	end := start + perPage
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// Items is the ItemStore view of the store
type Items struct{ s *Store }

// ItemStore returns the item store
func (s *Store) ItemStore() *Items { return &Items{s: s} }

// Create implements service.ItemStore
func (r *Items) Create(ctx context.Context, item *domain.InventoryItem) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateItem"); err != nil {
		return err
	}

	for _, existing := range s.items {
		if existing.OwnerID == ownerID && existing.SKU == item.SKU {
			return errors.Conflict("an item with this SKU already exists")
		}
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.OwnerID = ownerID
	item.CurrentStock = decimal.Zero
	item.TotalValue = decimal.Zero
	now := s.tick()
	item.CreatedAt = now
	item.UpdatedAt = now

	s.items[item.ID] = *item
	return nil
}

// GetByID implements service.ItemStore
func (r *Items) GetByID(ctx context.Context, id string) (*domain.ItemView, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || item.OwnerID != ownerID {
		return nil, errors.NotFound("inventory item")
	}
	return s.view(item), nil
}

// view must be called with mu held
func (s *Store) view(item domain.InventoryItem) *domain.ItemView {
	v := &domain.ItemView{InventoryItem: item}
	if item.CategoryID != nil {
		if c, ok := s.categories[*item.CategoryID]; ok {
			name := c.Name
			v.CategoryName = &name
		}
	}
	if u, ok := s.units[item.UnitID]; ok {
		name := u.Name
		v.UnitName = &name
	}
	if item.SupplierID != nil {
		if sup, ok := s.suppliers[*item.SupplierID]; ok {
			name := sup.Name
			v.SupplierName = &name
		}
	}
	return v
}

// GetForUpdate implements service.ItemStore
func (r *Items) GetForUpdate(ctx context.Context, id string) (*domain.InventoryItem, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}
	if ctx.Value(txKey{}) == nil {
		return nil, errors.Internal("row lock requested outside a transaction")
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || item.OwnerID != ownerID {
		return nil, errors.NotFound("inventory item")
	}
	return &item, nil
}

// ExistsSKU implements service.ItemStore
func (r *Items) ExistsSKU(ctx context.Context, sku, excludeID string) (bool, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return false, err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.items {
		if item.OwnerID == ownerID && item.SKU == sku && item.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// List implements service.ItemStore
func (r *Items) List(ctx context.Context, f domain.ItemFilter) ([]*domain.ItemView, int64, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, 0, err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	var matched []*domain.ItemView
	for _, item := range s.items {
		if item.OwnerID != ownerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Name), search) &&
			!strings.Contains(strings.ToLower(item.SKU), search) {
			continue
		}
		if f.CategoryID != "" && (item.CategoryID == nil || *item.CategoryID != f.CategoryID) {
			continue
		}
		if f.Status != "" && item.Status != f.Status {
			continue
		}
		matched = append(matched, s.view(item))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})

	return paginate(matched, f.Page, f.PerPage), int64(len(matched)), nil
}

// UpdateDetails implements service.ItemStore
func (r *Items) UpdateDetails(ctx context.Context, item *domain.InventoryItem) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateDetails"); err != nil {
		return err
	}

	stored, ok := s.items[item.ID]
	if !ok || stored.OwnerID != ownerID {
		return errors.NotFound("inventory item")
	}

	stored.SKU = item.SKU
	stored.Name = item.Name
	stored.CategoryID = item.CategoryID
	stored.UnitID = item.UnitID
	stored.SupplierID = item.SupplierID
	stored.MinimumStock = item.MinimumStock
	stored.Notes = item.Notes
	stored.Status = item.Status
	stored.TotalValue = item.TotalValue
	stored.UpdatedAt = s.tick()
	item.UpdatedAt = stored.UpdatedAt

	s.items[item.ID] = stored
	return nil
}

// UpdateLedger implements service.ItemStore
func (r *Items) UpdateLedger(ctx context.Context, id string, l domain.Ledger, purchasedAt *time.Time) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateLedger"); err != nil {
		return err
	}

	stored, ok := s.items[id]
	if !ok || stored.OwnerID != ownerID {
		return errors.NotFound("inventory item")
	}

	stored.CurrentStock = l.CurrentStock
	stored.AverageCost = l.AverageCost
	stored.CostPerUnit = l.CostPerUnit
	stored.TotalValue = l.TotalValue
	stored.Status = l.Status
	if purchasedAt != nil {
		t := *purchasedAt
		stored.LastPurchaseDate = &t
	}
	stored.UpdatedAt = s.tick()

	s.items[id] = stored
	return nil
}

// Delete implements service.ItemStore. Transactions cascade, notifications
// keep their snapshot and lose the link.
func (r *Items) Delete(ctx context.Context, id string) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[id]
	if !ok || stored.OwnerID != ownerID {
		return errors.NotFound("inventory item")
	}
	delete(s.items, id)

	kept := s.transactions[:0]
	for _, tx := range s.transactions {
		if tx.InventoryItemID != id {
			kept = append(kept, tx)
		}
	}
	s.transactions = kept

	for i := range s.notifications {
		if n := &s.notifications[i]; n.InventoryItemID != nil && *n.InventoryItemID == id {
			n.InventoryItemID = nil
		}
	}
	return nil
}

// Stats implements service.ItemStore
func (r *Items) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &domain.DashboardStats{}
	for _, item := range s.items {
		if item.OwnerID != ownerID {
			continue
		}
		stats.TotalItems++
		stats.TotalValue = stats.TotalValue.Add(item.TotalValue)
		switch item.Status {
		case domain.StatusLow:
			stats.LowStockItems++
		case domain.StatusCritical:
			stats.CriticalItems++
		}
		if item.CurrentStock.IsNegative() {
			stats.NegativeStockItems++
		}
	}
	return stats, nil
}
