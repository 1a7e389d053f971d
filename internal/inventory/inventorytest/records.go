package inventorytest

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/pkg/actor"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/owner"
)

// Transactions is the TransactionStore view of the store
type Transactions struct{ s *Store }

// TransactionStore returns the transaction store
func (s *Store) TransactionStore() *Transactions { return &Transactions{s: s} }

// Create implements service.TransactionStore
func (r *Transactions) Create(ctx context.Context, tx *domain.StockTransaction) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateTransaction"); err != nil {
		return err
	}

	item, ok := s.items[tx.InventoryItemID]
	if !ok || item.OwnerID != ownerID {
		return errors.NotFound("inventory item")
	}

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.OwnerID = ownerID
	tx.CreatedAt = s.tick()

	s.transactions = append(s.transactions, *tx)
	return nil
}

// List implements service.TransactionStore
func (r *Transactions) List(ctx context.Context, f domain.TransactionFilter) ([]*domain.TransactionView, int64, error) {
	views, err := r.matching(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return paginate(views, f.Page, f.PerPage), int64(len(views)), nil
}

// Each implements service.TransactionStore
func (r *Transactions) Each(ctx context.Context, f domain.TransactionFilter, fn func(*domain.TransactionView) error) error {
	views, err := r.matching(ctx, f)
	if err != nil {
		return err
	}
	for _, v := range views {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// matching returns the owner's transactions passing f, oldest first
func (r *Transactions) matching(ctx context.Context, f domain.TransactionFilter) ([]*domain.TransactionView, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.TransactionView
	for _, tx := range s.transactions {
		switch {
		case tx.OwnerID != ownerID,
			f.ItemID != "" && tx.InventoryItemID != f.ItemID,
			f.Type != "" && tx.Type != f.Type,
			f.From != nil && tx.CreatedAt.Before(*f.From),
			f.To != nil && !tx.CreatedAt.Before(*f.To):
			continue
		}

		v := &domain.TransactionView{StockTransaction: tx}
		if item, ok := s.items[tx.InventoryItemID]; ok {
			v.ItemName = item.Name
			v.ItemSKU = item.SKU
		}
		if tx.SupplierID != nil {
			if sup, ok := s.suppliers[*tx.SupplierID]; ok {
				name := sup.Name
				v.SupplierName = &name
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// Notifications is the NotificationStore view of the store
type Notifications struct{ s *Store }

// NotificationStore returns the notification store
func (s *Store) NotificationStore() *Notifications { return &Notifications{s: s} }

// Create implements service.NotificationStore
func (r *Notifications) Create(ctx context.Context, n *domain.Notification) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateNotification"); err != nil {
		return err
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.OwnerID = ownerID
	n.IsRead = false
	n.CreatedAt = s.tick()

	s.notifications = append(s.notifications, *n)
	return nil
}

// List implements service.NotificationStore
func (r *Notifications) List(ctx context.Context, unreadOnly bool, page, perPage int) ([]*domain.Notification, int64, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, 0, err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.OwnerID != ownerID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, &n)
	}
	return paginate(out, page, perPage), int64(len(out)), nil
}

// UnreadCount implements service.NotificationStore
func (r *Notifications) UnreadCount(ctx context.Context) (int64, error) {
	_, total, err := r.List(ctx, true, 1, 1)
	return total, err
}

// MarkRead implements service.NotificationStore
func (r *Notifications) MarkRead(ctx context.Context, id string) (*domain.Notification, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		n := &s.notifications[i]
		if n.ID == id && n.OwnerID == ownerID {
			n.IsRead = true
			out := *n
			return &out, nil
		}
	}
	return nil, errors.NotFound("notification")
}

// MarkAllRead implements service.NotificationStore
func (r *Notifications) MarkAllRead(ctx context.Context) (int64, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return 0, err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.OwnerID == ownerID && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

// Delete implements service.NotificationStore
func (r *Notifications) Delete(ctx context.Context, id string) error {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id && n.OwnerID == ownerID {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return nil
		}
	}
	return errors.NotFound("notification")
}

// Contacts is the contact store view of the store
type Contacts struct{ s *Store }

// ContactStore returns the contact store
func (s *Store) ContactStore() *Contacts { return &Contacts{s: s} }

// Upsert creates or replaces a contact
func (r *Contacts) Upsert(_ context.Context, c *actor.Contact) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertContact"); err != nil {
		return err
	}
	s.contacts[c.UserID] = *c
	return nil
}

// Get returns a contact by user ID
func (r *Contacts) Get(_ context.Context, userID string) (*actor.Contact, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[userID]
	if !ok {
		return nil, errors.NotFound("contact")
	}
	return &c, nil
}

// Delete removes a contact
func (r *Contacts) Delete(_ context.Context, userID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contacts, userID)
	return nil
}

// Recipients implements service.RecipientSource
func (r *Contacts) Recipients(_ context.Context, ownerID string) ([]string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Recipients"); err != nil {
		return nil, err
	}

	var out []string
	for _, c := range s.contacts {
		if c.OwnerID == ownerID && c.ReceivesAlerts && c.Email != "" {
			out = append(out, c.Email)
		}
	}
	sort.Strings(out)
	return out, nil
}

// References is the ReferenceStore view of one reference table
type References[T any] struct {
	s       *Store
	table   func(*Store) map[string]T
	ident   func(*T) (id, ownerID, name string)
	build   func(id, ownerID, name string, attrs map[string]*string) T
	kind    string
	allowed map[string]bool
}

// Categories returns the category store
func (s *Store) Categories() *References[domain.Category] {
	return &References[domain.Category]{
		s:     s,
		table: func(s *Store) map[string]domain.Category { return s.categories },
		ident: func(c *domain.Category) (string, string, string) { return c.ID, c.OwnerID, c.Name },
		build: func(id, ownerID, name string, _ map[string]*string) domain.Category {
			return domain.Category{ID: id, OwnerID: ownerID, Name: name}
		},
		kind: "category",
	}
}

// Suppliers returns the supplier store
func (s *Store) Suppliers() *References[domain.Supplier] {
	return &References[domain.Supplier]{
		s:     s,
		table: func(s *Store) map[string]domain.Supplier { return s.suppliers },
		ident: func(c *domain.Supplier) (string, string, string) { return c.ID, c.OwnerID, c.Name },
		build: func(id, ownerID, name string, attrs map[string]*string) domain.Supplier {
			return domain.Supplier{ID: id, OwnerID: ownerID, Name: name, ContactEmail: attrs["contact_email"], Phone: attrs["phone"]}
		},
		kind:    "supplier",
		allowed: map[string]bool{"contact_email": true, "phone": true},
	}
}

// Units returns the unit store
func (s *Store) Units() *References[domain.Unit] {
	return &References[domain.Unit]{
		s:     s,
		table: func(s *Store) map[string]domain.Unit { return s.units },
		ident: func(c *domain.Unit) (string, string, string) { return c.ID, c.OwnerID, c.Name },
		build: func(id, ownerID, name string, attrs map[string]*string) domain.Unit {
			return domain.Unit{ID: id, OwnerID: ownerID, Name: name, Abbreviation: attrs["abbreviation"]}
		},
		kind:    "unit",
		allowed: map[string]bool{"abbreviation": true},
	}
}

// GetOrCreate implements service.ReferenceStore
func (r *References[T]) GetOrCreate(ctx context.Context, name string, attrs map[string]*string) (*T, bool, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, false, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, errors.ValidationField("name", "must not be empty")
	}
	for k := range attrs {
		if !r.allowed[k] {
			return nil, false, errors.ValidationField(k, "unknown field")
		}
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	table := r.table(s)
	for _, row := range table {
		row := row
		_, rowOwner, rowName := r.ident(&row)
		if rowOwner == ownerID && strings.EqualFold(rowName, name) {
			return &row, false, nil
		}
	}

	row := r.build(uuid.NewString(), ownerID, name, attrs)
	id, _, _ := r.ident(&row)
	table[id] = row
	return &row, true, nil
}

// GetByID implements service.ReferenceStore
func (r *References[T]) GetByID(ctx context.Context, id string) (*T, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := r.table(s)[id]
	if ok {
		if _, rowOwner, _ := r.ident(&row); rowOwner == ownerID {
			return &row, nil
		}
	}
	return nil, errors.NotFound(r.kind)
}

// Exists implements service.ReferenceStore
func (r *References[T]) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.GetByID(ctx, id)
	if errors.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// List implements service.ReferenceStore
func (r *References[T]) List(ctx context.Context) ([]T, error) {
	ownerID, err := owner.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []T{}
	for _, row := range r.table(s) {
		row := row
		if _, rowOwner, _ := r.ident(&row); rowOwner == ownerID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		_, _, a := r.ident(&out[i])
		_, _, b := r.ident(&out[j])
		return strings.ToLower(a) < strings.ToLower(b)
	})
	return out, nil
}
