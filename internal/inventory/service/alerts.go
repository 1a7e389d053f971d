package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/events"
	"github.com/kitchenbook/kitchenbook-backend/pkg/config"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

const mailTimeout = 15 * time.Second

// AlertBridge turns status transitions into notifications. It runs after a
// ledger change has committed; every failure in here is logged and
// swallowed so a stock mutation never fails because an alert could not be
// stored or delivered. Email goes out in the background.
type AlertBridge struct {
	notifications NotificationStore
	publisher     *events.InventoryEventPublisher
	hub           Broadcaster
	mailer        Mailer
	recipients    RecipientSource
	fallback      []string
	stats         *StatsCache
	logger        *logger.Logger
	now           func() time.Time
	mailTimeout   time.Duration
	pending       sync.WaitGroup
}

// NewAlertBridge creates the alert bridge. Email goes out only when a mailer
// is given and cfg enables it.
func NewAlertBridge(
	notifications NotificationStore,
	publisher *events.InventoryEventPublisher,
	hub Broadcaster,
	mailer Mailer,
	recipients RecipientSource,
	cfg *config.AlertsConfig,
	stats *StatsCache,
	log *logger.Logger,
) *AlertBridge {
	if log == nil {
		log = logger.Nop()
	}

	b := &AlertBridge{
		notifications: notifications,
		publisher:     publisher,
		hub:           hub,
		recipients:    recipients,
		stats:         stats,
		logger:        log.WithComponent("alerts"),
		now:           time.Now,
		mailTimeout:   mailTimeout,
	}
	if cfg != nil {
		b.fallback = cfg.FallbackRecipients
		if cfg.EmailEnabled {
			b.mailer = mailer
		}
	}
	return b
}

// Evaluate raises a notification when item moved from previous into a worse
// status. It returns the notification, or nil when none was due.
func (b *AlertBridge) Evaluate(ctx context.Context, item *domain.InventoryItem, previous domain.Status) *domain.Notification {
	if b == nil {
		return nil
	}

	n, ok := domain.NewStockAlert(item, previous, b.now())
	if !ok {
		return nil
	}

	log := b.logger.With().
		Str("owner_id", n.OwnerID).
		Str("item_id", item.ID).
		Str("notification_type", string(n.Type)).
		Logger()

	// Fan-out continues without the stored row; the pushed copy has no ID then
	if err := b.notifications.Create(ctx, n); err != nil {
		b.deliveryFailed("store", err, n)
	}

	if err := b.publisher.PublishNotificationCreated(ctx, n); err != nil {
		b.deliveryFailed("event", err, n)
	}

	if b.hub != nil {
		b.hub.Broadcast(n.OwnerID, MessageNotification, n)
	}

	b.sendEmail(ctx, n)
	b.stats.Invalidate(ctx, n.OwnerID)

	log.Info().
		Str("previous_status", string(previous)).
		Str("status", string(item.Status)).
		Msg("stock alert raised")

	return n
}

// sendEmail hands delivery to a goroutine detached from the request, so a
// slow relay never holds up the movement that raised the alert
func (b *AlertBridge) sendEmail(ctx context.Context, n *domain.Notification) {
	if b.mailer == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	b.pending.Add(1)
	go func() {
		defer b.pending.Done()

		ctx, cancel := context.WithTimeout(ctx, b.mailTimeout)
		defer cancel()

		to := b.resolveRecipients(ctx, n.OwnerID)
		if len(to) == 0 {
			b.logger.Debug().Str("owner_id", n.OwnerID).Msg("no alert recipients, skipping email")
			return
		}

		if err := b.mailer.Send(ctx, to, n); err != nil {
			b.deliveryFailed("email", err, n)
		}
	}()
}

// Wait blocks until every email handed off so far has been sent or has failed
func (b *AlertBridge) Wait() {
	if b == nil {
		return
	}
	b.pending.Wait()
}

// resolveRecipients merges the owner's contacts with the configured
// fallback addresses, dropping duplicates case-insensitively
func (b *AlertBridge) resolveRecipients(ctx context.Context, ownerID string) []string {
	var contacts []string
	if b.recipients != nil {
		var err error
		contacts, err = b.recipients.Recipients(ctx, ownerID)
		if err != nil {
			b.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("failed to load alert recipients")
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{contacts, b.fallback} {
		for _, addr := range list {
			addr = strings.TrimSpace(addr)
			key := strings.ToLower(addr)
			if addr == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, addr)
		}
	}
	return out
}

func (b *AlertBridge) deliveryFailed(channel string, cause error, n *domain.Notification) {
	err := errors.NotificationDelivery(channel, cause)
	b.logger.Warn().
		Err(err).
		Str("channel", channel).
		Str("owner_id", n.OwnerID).
		Str("notification_type", string(n.Type)).
		Msg("stock alert delivery failed")
}
