package inventorytest

import (
	"context"
	"sync"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
)

// Mail is one email the Mailer was asked to send
type Mail struct {
	To           []string
	Notification domain.Notification
}

// Mailer records sent mail. Err, when set, is returned after recording.
// Gate, when set, holds every Send until it is closed or ctx ends.
type Mailer struct {
	mu   sync.Mutex
	sent []Mail
	Err  error
	Gate chan struct{}
}

// Send implements service.Mailer
func (m *Mailer) Send(ctx context.Context, recipients []string, n *domain.Notification) error {
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Mail{To: append([]string(nil), recipients...), Notification: *n})
	return m.Err
}

// Sent returns every recorded mail
func (m *Mailer) Sent() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.sent...)
}

// Message is one pushed websocket message
type Message struct {
	OwnerID string
	Kind    string
	Payload interface{}
}

// Hub records broadcasts
type Hub struct {
	mu       sync.Mutex
	messages []Message
}

// Broadcast implements service.Broadcaster
func (h *Hub) Broadcast(ownerID, kind string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, Message{OwnerID: ownerID, Kind: kind, Payload: payload})
}

// Messages returns the broadcasts of the given kind, or all when kind is empty
func (h *Hub) Messages(kind string) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []Message
	for _, m := range h.messages {
		if kind == "" || m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}
