package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Station tablets connect from the shop network
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	ID string

	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	// Work order filter; empty means every work order
	mu         sync.RWMutex
	workOrders map[string]bool
}

// controlMessage is sent by clients to narrow or widen their feed
type controlMessage struct {
	Type        string `json:"type"`
	WorkOrderID string `json:"workOrderId,omitempty"`
	MsgID       string `json:"msgId,omitempty"`
}

const (
	msgSubscribe   = "SUBSCRIBE"
	msgUnsubscribe = "UNSUBSCRIBE"
	msgAck         = "ACK"
)

func (c *Client) wants(workOrderID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.workOrders) == 0 || c.workOrders[workOrderID]
}

func (c *Client) handleControl(msg controlMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Type {
	case msgSubscribe:
		if msg.WorkOrderID == "" {
			c.workOrders = map[string]bool{}
		} else {
			c.workOrders[msg.WorkOrderID] = true
		}
	case msgUnsubscribe:
		delete(c.workOrders, msg.WorkOrderID)
	default:
		return false
	}
	return true
}

// readPump reads control messages until the connection drops.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WS read error", zap.String("client", c.ID), zap.Error(err))
			}
			return
		}

		var msg controlMessage
		if err := json.Unmarshal(message, &msg); err != nil || !c.handleControl(msg) {
			continue
		}
		ack, _ := json.Marshal(map[string]string{"type": msgAck, "msgId": msg.MsgID})
		select {
		case c.send <- ack:
		default:
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades the request and registers the connection. A workOrderId
// query parameter subscribes to that work order only.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("WS upgrade failed", zap.Error(err))
		return
	}
	client := &Client{
		ID:         "ws_" + uuid.New().String(),
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		workOrders: map[string]bool{},
	}
	if id := r.URL.Query().Get("workOrderId"); id != "" {
		client.workOrders[id] = true
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
