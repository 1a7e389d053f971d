package handler

import (
	"net/http"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/service"
	"github.com/kitchenbook/kitchenbook-backend/pkg/httputil"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

// ReferenceHandler serves categories, suppliers and units
type ReferenceHandler struct {
	service *service.ReferenceService
	logger  *logger.Logger
}

// NewReferenceHandler creates a new reference data handler
func NewReferenceHandler(svc *service.ReferenceService, log *logger.Logger) *ReferenceHandler {
	return &ReferenceHandler{
		service: svc,
		logger:  log,
	}
}

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type supplierRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
	Phone        *string `json:"phone" validate:"omitempty,max=50"`
}

type unitRequest struct {
	Name         string  `json:"name" validate:"required,max=50"`
	Abbreviation *string `json:"abbreviation" validate:"omitempty,max=20"`
}

// getOrCreated answers 201 for a new row and 200 when the name already existed
func getOrCreated(w http.ResponseWriter, v interface{}, created bool) {
	if created {
		httputil.Created(w, v)
		return
	}
	httputil.JSON(w, http.StatusOK, v)
}

// ListCategories lists categories by name
func (h *ReferenceHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, categories)
}

// GetOrCreateCategory returns the category with the given name, creating it if needed
func (h *ReferenceHandler) GetOrCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	category, created, err := h.service.GetOrCreateCategory(r.Context(), req.Name)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	getOrCreated(w, category, created)
}

// ListSuppliers lists suppliers by name
func (h *ReferenceHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, suppliers)
}

// GetOrCreateSupplier returns the supplier with the given name, creating it if needed.
// Contact details only apply to a new supplier.
func (h *ReferenceHandler) GetOrCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	supplier, created, err := h.service.GetOrCreateSupplier(r.Context(), req.Name, req.ContactEmail, req.Phone)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	getOrCreated(w, supplier, created)
}

// ListUnits lists units by name
func (h *ReferenceHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.ListUnits(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, units)
}

// GetOrCreateUnit returns the unit with the given name, creating it if needed
func (h *ReferenceHandler) GetOrCreateUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	unit, created, err := h.service.GetOrCreateUnit(r.Context(), req.Name, req.Abbreviation)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	getOrCreated(w, unit, created)
}
