// Package realtime fans note change events out to websocket clients. Rooms
// are keyed by tenant id taken from the client's verified identity, so a
// connection can never observe another tenant's events. Event payloads carry
// note and owner ids only, never note content.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait (seconds) drive the websocket heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// NoteEvent is the payload broadcast on note mutations.
type NoteEvent struct {
	NoteID  uuid.UUID `json:"note_id"`
	OwnerID uuid.UUID `json:"owner_id"`
}

// Publisher publishes tenant events to Redis for cross-instance broadcast.
type Publisher interface {
	PublishTenantEvent(tenantID uuid.UUID, event string, payload []byte) error
}

// Subscriber subscribes to a tenant's channel and invokes handler per event.
type Subscriber interface {
	SubscribeTenant(tenantID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains tenant id -> set of connections and broadcasts events.
// Local broadcast plus Redis pub/sub for horizontal scaling.
type Hub struct {
	tenants map[uuid.UUID]map[string]*Client
	subs    map[uuid.UUID]func() // cancel Redis subscription per tenant
	mu      sync.RWMutex
	logger  *zap.Logger
	pub     Publisher
	sub     Subscriber
}

// NewHub creates a websocket hub.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	return &Hub{
		tenants: make(map[uuid.UUID]map[string]*Client),
		subs:    make(map[uuid.UUID]func()),
		logger:  logger,
		pub:     pub,
		sub:     sub,
	}
}

// Register adds a client to its tenant room. The first client of a tenant
// starts that tenant's Redis subscription.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.tenants[c.TenantID] == nil {
		h.tenants[c.TenantID] = make(map[string]*Client)
		if h.sub != nil {
			cancel, err := h.sub.SubscribeTenant(c.TenantID, func(event string, payload []byte) {
				h.broadcast(c.TenantID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.TenantID] = cancel
			} else {
				h.logger.Warn("tenant subscribe failed", zap.Error(err))
			}
		}
	}
	h.tenants[c.TenantID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined", zap.String("client_id", c.ID), zap.String("tenant_id", c.TenantID.String()))
}

// Unregister removes a client. The last client of a tenant stops that
// tenant's Redis subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.tenants[c.TenantID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.tenants, c.TenantID)
			if cancel, ok := h.subs[c.TenantID]; ok {
				cancel()
				delete(h.subs, c.TenantID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left", zap.String("client_id", c.ID), zap.String("tenant_id", c.TenantID.String()))
}

// PublishNoteEvent publishes a note change to the tenant's channel. With
// Redis configured the broadcast happens once in the subscriber callback for
// every instance including this one; without it, locally only.
func (h *Hub) PublishNoteEvent(tenantID uuid.UUID, event string, noteID, ownerID uuid.UUID) {
	data, err := json.Marshal(NoteEvent{NoteID: noteID, OwnerID: ownerID})
	if err != nil {
		return
	}
	if h.pub != nil {
		if err := h.pub.PublishTenantEvent(tenantID, event, data); err == nil {
			return
		}
	}
	h.broadcast(tenantID, event, json.RawMessage(data))
}

// ClientCount returns the number of connected clients for a tenant.
func (h *Hub) ClientCount(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tenants[tenantID])
}

func (h *Hub) broadcast(tenantID uuid.UUID, event string, data json.RawMessage) {
	msg := WSMessage{Event: event, Data: data}

	// Snapshot under the lock; Register/Unregister mutate the inner map and
	// iterating it unlocked would race with them.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.tenants[tenantID]))
	for _, c := range h.tenants[tenantID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}
