package service

import (
	"context"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/pkg/owner"
)

// NotificationService reads and acknowledges stock alerts
type NotificationService struct {
	store NotificationStore
	stats *StatsCache
}

// NewNotificationService creates a new notification service
func NewNotificationService(store NotificationStore, stats *StatsCache) *NotificationService {
	return &NotificationService{store: store, stats: stats}
}

// List returns a page of notifications, newest first
func (s *NotificationService) List(ctx context.Context, unreadOnly bool, page, perPage int) ([]*domain.Notification, int64, error) {
	return s.store.List(ctx, unreadOnly, page, perPage)
}

// UnreadCount counts unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context) (int64, error) {
	return s.store.UnreadCount(ctx)
}

// MarkRead marks one notification as read
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*domain.Notification, error) {
	n, err := s.store.MarkRead(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return n, nil
}

// MarkAllRead marks every notification as read and returns how many changed
func (s *NotificationService) MarkAllRead(ctx context.Context) (int64, error) {
	n, err := s.store.MarkAllRead(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidate(ctx)
	}
	return n, nil
}

// Delete removes a notification
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *NotificationService) invalidate(ctx context.Context) {
	if ownerID, err := owner.OwnerID(ctx); err == nil {
		s.stats.Invalidate(ctx, ownerID)
	}
}
