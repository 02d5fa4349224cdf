package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/xelth-com/garmentflow/internal/services/workflow"
)

// Hub fans committed stage events out to connected shop-floor screens
type Hub struct {
	// Registered clients: client ID -> Client
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	events     chan workflow.Event
	done       chan struct{}

	logger *zap.Logger
	mu     sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan workflow.Event, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Publish queues evt for delivery. It never blocks; events are dropped when
// the queue is full.
func (h *Hub) Publish(evt workflow.Event) {
	select {
	case h.events <- evt:
	default:
		h.logger.Warn("Event queue full, dropping event",
			zap.String("type", evt.Type),
			zap.String("work_order", evt.WorkOrderNumber),
		)
	}
}

// Run starts the hub's main loop until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.conn.Close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok && old != client {
				close(old.send)
			}
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Debug("Client connected", zap.String("client", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.ID]; ok && current == client {
				delete(h.clients, client.ID)
				close(client.send)
				h.logger.Debug("Client disconnected", zap.String("client", client.ID))
			}
			h.mu.Unlock()

		case evt := <-h.events:
			h.broadcast(evt)
		}
	}
}

func (h *Hub) broadcast(evt workflow.Event) {
	msg, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("Failed to marshal event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !client.wants(evt.WorkOrderID) {
			continue
		}
		select {
		case client.send <- msg:
		default:
			// Buffer full or client dead
			h.logger.Warn("Client send buffer full", zap.String("client", client.ID))
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
