package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/service"
	"github.com/kitchenbook/kitchenbook-backend/pkg/httputil"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

// TransactionHandler records stock movements and serves the history
type TransactionHandler struct {
	recorder *service.Recorder
	history  *service.HistoryService
	logger   *logger.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(recorder *service.Recorder, history *service.HistoryService, log *logger.Logger) *TransactionHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &TransactionHandler{
		recorder: recorder,
		history:  history,
		logger:   log,
	}
}

type recordTransactionRequest struct {
	Type        domain.TransactionType `json:"transaction_type" validate:"required,oneof=purchase sale adjustment_in adjustment_out"`
	Quantity    decimal.Decimal        `json:"quantity" validate:"decimal_gt0"`
	UnitCost    *decimal.Decimal       `json:"unit_cost" validate:"omitempty,decimal_gte0"`
	SupplierID  *string                `json:"supplier_id" validate:"omitempty,uuid"`
	BatchNumber *string                `json:"batch_number" validate:"omitempty,max=100"`
	ExpiryDate  *string                `json:"expiry_date"`
	Notes       *string                `json:"notes"`
}

// Record records a stock movement against the item in the path
func (h *TransactionHandler) Record(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "inventory item")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req recordTransactionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	in := service.RecordInput{
		Type:        req.Type,
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		SupplierID:  req.SupplierID,
		BatchNumber: req.BatchNumber,
		Notes:       req.Notes,
	}
	if req.ExpiryDate != nil {
		if in.ExpiryDate, err = parseTime("expiry_date", *req.ExpiryDate, false); err != nil {
			httputil.Error(w, err)
			return
		}
	}

	rec, err := h.recorder.RecordTransaction(r.Context(), itemID, in)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, rec)
}

// List lists transactions, newest first
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	filter.Page, filter.PerPage = httputil.Pagination(r)

	txs, total, err := h.history.ListTransactions(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, txs, httputil.NewMeta(filter.Page, filter.PerPage, total))
}

// ListForItem lists the transactions of the item in the path
func (h *TransactionHandler) ListForItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "inventory item")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	filter, err := transactionFilter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	filter.ItemID = itemID
	filter.Page, filter.PerPage = httputil.Pagination(r)

	txs, total, err := h.history.ListTransactions(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, txs, httputil.NewMeta(filter.Page, filter.PerPage, total))
}

// Export serves the filtered history as a CSV download. The file is built
// in memory first so a storage error can still be reported as JSON.
func (h *TransactionHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var buf bytes.Buffer
	rows, err := h.history.ExportTransactionsCSV(r.Context(), &buf, filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to export transactions")
		httputil.Error(w, err)
		return
	}

	filename := fmt.Sprintf("stock-transactions-%s.csv", time.Now().Format(dateLayout))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Total-Count", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func transactionFilter(r *http.Request) (domain.TransactionFilter, error) {
	q := r.URL.Query()

	itemID, err := queryUUID(q, "item_id")
	if err != nil {
		return domain.TransactionFilter{}, err
	}
	from, err := parseTime("from", q.Get("from"), false)
	if err != nil {
		return domain.TransactionFilter{}, err
	}
	to, err := parseTime("to", q.Get("to"), true)
	if err != nil {
		return domain.TransactionFilter{}, err
	}

	return domain.TransactionFilter{
		ItemID: itemID,
		Type:   domain.TransactionType(q.Get("type")),
		From:   from,
		To:     to,
	}, nil
}
