// Package notify delivers stock alerts by email
package notify

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/pkg/config"
	"github.com/kitchenbook/kitchenbook-backend/pkg/i18n"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

const defaultTimeout = 15 * time.Second

// sender is the part of *mail.Client the mailer uses
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPMailer sends alert emails through an SMTP relay
type SMTPMailer struct {
	client sender
	from   string
	locale string
	logger *logger.Logger
}

// NewSMTPMailer creates a mailer from the mail config
func NewSMTPMailer(cfg *config.MailConfig, log *logger.Logger) (*SMTPMailer, error) {
	if log == nil {
		log = logger.Nop()
	}

	if err := mail.NewMsg().From(cfg.From); err != nil {
		return nil, fmt.Errorf("invalid mail sender %q: %w", cfg.From, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(dialWithDeadline(timeout)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	m := &SMTPMailer{
		client: client,
		from:   cfg.From,
		locale: i18n.ParseLocale(cfg.Locale),
		logger: log.WithComponent("mailer"),
	}
	m.logger.Info().Str("relay", cfg.Addr()).Dur("timeout", timeout).Msg("smtp mailer configured")
	return m, nil
}

// dialWithDeadline puts the dial context's deadline on the connection, so a
// relay that accepts but never answers cannot hold the socket open
func dialWithDeadline(fallback time.Duration) mail.DialContextFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(fallback)
		}
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// Send mails n to recipients
func (m *SMTPMailer) Send(ctx context.Context, recipients []string, n *domain.Notification) error {
	if len(recipients) == 0 {
		return nil
	}

	msg, err := m.Compose(recipients, n)
	if err != nil {
		return err
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	m.logger.Info().
		Str("owner_id", n.OwnerID).
		Str("notification_type", string(n.Type)).
		Int("recipients", len(recipients)).
		Msg("alert email sent")
	return nil
}

// Compose builds the plain-text alert message for n
func (m *SMTPMailer) Compose(recipients []string, n *domain.Notification) (*mail.Msg, error) {
	subject, body := Render(m.locale, n)

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid mail sender %q: %w", m.from, err)
	}
	if err := msg.To(recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetDateWithValue(n.CreatedAt.UTC())
	msg.SetMessageIDWithValue(uuid.NewString() + "@kitchenbook")
	msg.SetBodyString(mail.TypeTextPlain, body)

	return msg, nil
}

// Render returns the localized subject and body of an alert email
func Render(locale string, n *domain.Notification) (subject, body string) {
	l := i18n.NewLocalizer(locale)
	params := map[string]string{
		"item":    n.ItemName,
		"sku":     n.ItemSKU,
		"current": n.CurrentStock.String(),
		"minimum": n.MinimumStock.String(),
		"time":    n.CreatedAt.UTC().Format("2006-01-02 15:04"),
	}

	kind := string(n.Type)
	subject = l.T("alert.subject."+kind, params)

	lines := []string{
		l.T("alert.body.greeting"),
		"",
		l.T("alert.body."+kind, params),
		l.T("alert.body.raised_at", params),
		"",
		"-- ",
		l.T("alert.body.footer"),
	}
	return subject, strings.Join(lines, "\n") + "\n"
}
