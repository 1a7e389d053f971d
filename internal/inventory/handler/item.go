package handler

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/service"
	"github.com/kitchenbook/kitchenbook-backend/pkg/httputil"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

// ItemHandler handles item endpoints
type ItemHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(svc *service.InventoryService, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		service: svc,
		logger:  log,
	}
}

type createItemRequest struct {
	SKU          string          `json:"sku" validate:"required,max=64"`
	Name         string          `json:"name" validate:"required,max=255"`
	CategoryID   *string         `json:"category_id" validate:"omitempty,uuid"`
	UnitID       string          `json:"unit_id" validate:"required,uuid"`
	SupplierID   *string         `json:"supplier_id" validate:"omitempty,uuid"`
	MinimumStock decimal.Decimal `json:"minimum_stock" validate:"decimal_gte0"`
	InitialStock decimal.Decimal `json:"initial_stock" validate:"decimal_gte0"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit" validate:"decimal_gte0"`
	Notes        *string         `json:"notes"`
}

// Empty category_id or supplier_id clears the reference, so those two are
// checked by the service instead of a uuid tag.
type updateItemRequest struct {
	SKU          *string          `json:"sku" validate:"omitempty,max=64"`
	Name         *string          `json:"name" validate:"omitempty,max=255"`
	CategoryID   *string          `json:"category_id"`
	UnitID       *string          `json:"unit_id" validate:"omitempty,uuid"`
	SupplierID   *string          `json:"supplier_id"`
	MinimumStock *decimal.Decimal `json:"minimum_stock" validate:"omitempty,decimal_gte0"`
	CurrentStock *decimal.Decimal `json:"current_stock"`
	Notes        *string          `json:"notes"`
}

// List lists inventory items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.Pagination(r)
	q := r.URL.Query()

	categoryID, err := queryUUID(q, "category_id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	items, total, err := h.service.ListItems(r.Context(), domain.ItemFilter{
		Search:     strings.TrimSpace(q.Get("search")),
		CategoryID: categoryID,
		Status:     domain.Status(q.Get("status")),
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, items, httputil.NewMeta(page, perPage, total))
}

// Get gets an item by ID
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "inventory item")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Create creates a new item
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.CreateItem(r.Context(), service.CreateItemInput{
		SKU:          req.SKU,
		Name:         req.Name,
		CategoryID:   req.CategoryID,
		UnitID:       req.UnitID,
		SupplierID:   req.SupplierID,
		MinimumStock: req.MinimumStock,
		InitialStock: req.InitialStock,
		CostPerUnit:  req.CostPerUnit,
		Notes:        req.Notes,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, item)
}

// Update applies a partial update to an item
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "inventory item")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req updateItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.UpdateItem(r.Context(), id, service.UpdateItemInput{
		SKU:          req.SKU,
		Name:         req.Name,
		CategoryID:   req.CategoryID,
		UnitID:       req.UnitID,
		SupplierID:   req.SupplierID,
		MinimumStock: req.MinimumStock,
		CurrentStock: req.CurrentStock,
		Notes:        req.Notes,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Delete deletes an item together with its transaction history
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "inventory item")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
