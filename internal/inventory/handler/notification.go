package handler

import (
	"net/http"
	"strconv"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/service"
	"github.com/kitchenbook/kitchenbook-backend/pkg/httputil"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

// NotificationHandler handles the stock alert inbox
type NotificationHandler struct {
	service *service.NotificationService
	logger  *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(svc *service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: svc,
		logger:  log,
	}
}

// List lists notifications, newest first. ?unread=true hides read ones.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.Pagination(r)
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

	notifications, total, err := h.service.List(r.Context(), unreadOnly, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, notifications, httputil.NewMeta(page, perPage, total))
}

// UnreadCount returns the number of unread notifications
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.UnreadCount(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int64{"count": count})
}

// MarkRead marks one notification as read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "notification")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	n, err := h.service.MarkRead(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, n)
}

// MarkAllRead marks every notification of the owner as read
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.MarkAllRead(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// Delete deletes a notification
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "notification")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
