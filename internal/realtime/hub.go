// internal/realtime/hub.go
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
)

// Event is what connected dashboards receive, e.g. a booking status change.
type Event struct {
	Type       string          `json:"type"`
	Recipients []uuid.UUID     `json:"recipients,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

const (
	EventBookingCreated  = "booking_created"
	EventBookingResolved = "booking_resolved"
	EventBookingRated    = "booking_rated"
	EventProfileChanged  = "profile_changed"
)

// NewEvent marshals payload once; recipients are user ids.
func NewEvent(typ string, payload any, recipients ...uuid.UUID) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Recipients: recipients, Payload: b}, nil
}

// Notifier delivers events to users. Delivery is best effort; polling
// clients still converge through the read endpoints.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

type Client struct {
	ID     string
	UserID uuid.UUID
	Conn   *WebSocketConn
	Send   chan []byte
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// Notify implements Notifier for clients connected to this process.
func (h *Hub) Notify(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.WithCtx(ctx).Error("marshal realtime event", "type", ev.Type, "error", err)
		return
	}
	for _, uid := range ev.Recipients {
		h.sendToUser(uid, payload)
	}
}

func (h *Hub) sendToUser(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.UserID == userID {
			select {
			case client.Send <- payload:
			default:
				// slow consumer, skip
			}
		}
	}
}

// Connected reports how many sockets the user has open here.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.clients {
		if c.UserID == userID {
			n++
		}
	}
	return n
}

// Run owns registration until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			logger.L.Debug("realtime client registered", "client_id", client.ID, "user_id", client.UserID)

		case client := <-h.unregister:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(old.Send)
				logger.L.Debug("realtime client unregistered", "client_id", client.ID)
			}
			h.mu.Unlock()
		}
	}
}
