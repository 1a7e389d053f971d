package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/realtime"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/service"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

// Services are the dependencies of the HTTP API
type Services struct {
	Inventory     *service.InventoryService
	Recorder      *service.Recorder
	History       *service.HistoryService
	References    *service.ReferenceService
	Notifications *service.NotificationService
	Hub           *realtime.Hub
}

// Routes returns the inventory API. Mount it under /api/v1/inventory behind
// the owner middleware.
func Routes(svc Services, log *logger.Logger) chi.Router {
	items := NewItemHandler(svc.Inventory, log)
	transactions := NewTransactionHandler(svc.Recorder, svc.History, log)
	references := NewReferenceHandler(svc.References, log)
	notifications := NewNotificationHandler(svc.Notifications, log)
	dashboard := NewDashboardHandler(svc.Inventory, log)

	r := chi.NewRouter()

	r.Route("/items", func(r chi.Router) {
		r.Get("/", items.List)
		r.Post("/", items.Create)
		r.Get("/{id}", items.Get)
		r.Put("/{id}", items.Update)
		r.Delete("/{id}", items.Delete)
		r.Get("/{id}/transactions", transactions.ListForItem)
		r.Post("/{id}/transactions", transactions.Record)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", transactions.List)
		r.Get("/export", transactions.Export)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", references.ListCategories)
		r.Post("/", references.GetOrCreateCategory)
	})
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", references.ListSuppliers)
		r.Post("/", references.GetOrCreateSupplier)
	})
	r.Route("/units", func(r chi.Router) {
		r.Get("/", references.ListUnits)
		r.Post("/", references.GetOrCreateUnit)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", notifications.List)
		r.Get("/unread-count", notifications.UnreadCount)
		r.Put("/read-all", notifications.MarkAllRead)
		r.Put("/{id}/read", notifications.MarkRead)
		r.Delete("/{id}", notifications.Delete)
	})

	r.Get("/dashboard/stats", dashboard.GetStats)

	if svc.Hub != nil {
		r.Get("/ws", svc.Hub.ServeWS)
	}

	return r
}
