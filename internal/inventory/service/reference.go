package service

import (
	"context"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

// ReferenceService manages categories, suppliers and units
type ReferenceService struct {
	categories ReferenceStore[domain.Category]
	suppliers  ReferenceStore[domain.Supplier]
	units      ReferenceStore[domain.Unit]
	logger     *logger.Logger
}

// NewReferenceService creates a new reference data service
func NewReferenceService(
	categories ReferenceStore[domain.Category],
	suppliers ReferenceStore[domain.Supplier],
	units ReferenceStore[domain.Unit],
	log *logger.Logger,
) *ReferenceService {
	if log == nil {
		log = logger.Nop()
	}
	return &ReferenceService{
		categories: categories,
		suppliers:  suppliers,
		units:      units,
		logger:     log.WithComponent("references"),
	}
}

// GetOrCreateCategory returns the category named name, creating it if needed.
// created reports whether it was new.
func (s *ReferenceService) GetOrCreateCategory(ctx context.Context, name string) (*domain.Category, bool, error) {
	c, created, err := s.categories.GetOrCreate(ctx, name, nil)
	if err == nil && created {
		s.logger.Info().Str("category_id", c.ID).Str("name", c.Name).Msg("category created")
	}
	return c, created, err
}

// GetOrCreateSupplier returns the supplier named name. Contact details are
// stored only when the supplier is created.
func (s *ReferenceService) GetOrCreateSupplier(ctx context.Context, name string, contactEmail, phone *string) (*domain.Supplier, bool, error) {
	attrs := map[string]*string{}
	if v := blankToNil(contactEmail); v != nil {
		attrs["contact_email"] = v
	}
	if v := blankToNil(phone); v != nil {
		attrs["phone"] = v
	}

	sup, created, err := s.suppliers.GetOrCreate(ctx, name, attrs)
	if err == nil && created {
		s.logger.Info().Str("supplier_id", sup.ID).Str("name", sup.Name).Msg("supplier created")
	}
	return sup, created, err
}

// GetOrCreateUnit returns the unit named name
func (s *ReferenceService) GetOrCreateUnit(ctx context.Context, name string, abbreviation *string) (*domain.Unit, bool, error) {
	attrs := map[string]*string{}
	if v := blankToNil(abbreviation); v != nil {
		attrs["abbreviation"] = v
	}

	u, created, err := s.units.GetOrCreate(ctx, name, attrs)
	if err == nil && created {
		s.logger.Info().Str("unit_id", u.ID).Str("name", u.Name).Msg("unit created")
	}
	return u, created, err
}

// ListCategories returns the owner's categories by name
func (s *ReferenceService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

// ListSuppliers returns the owner's suppliers by name
func (s *ReferenceService) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.suppliers.List(ctx)
}

// ListUnits returns the owner's units by name
func (s *ReferenceService) ListUnits(ctx context.Context) ([]domain.Unit, error) {
	return s.units.List(ctx)
}
