package models

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/moyoez/mosaic/tool"
	"github.com/moyoez/mosaic/types"
)

const writeWait = 5 * time.Second

// Hub holds WebSocket connections of one session and broadcasts notifications to them.
type Hub struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}

	writeMu sync.Mutex // gorilla connections allow one writer at a time
}

// NewHub creates a new notify hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Register adds a WebSocket connection to the hub.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

// Unregister removes a WebSocket connection from the hub.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send writes one notification to a single connection.
func (h *Hub) Send(conn *websocket.Conn, notification *types.Notification) error {
	payload, err := sonic.Marshal(notification)
	if err != nil {
		return err
	}
	return h.write(conn, payload)
}

// Broadcast sends the notification as JSON to all registered connections.
func (h *Hub) Broadcast(notification *types.Notification) {
	if notification == nil {
		return
	}
	payload, err := sonic.Marshal(notification)
	if err != nil {
		tool.DefaultLogger.Errorf("[Notify] Failed to encode %s notification: %v", notification.Type, err)
		return
	}
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, conn := range conns {
		if err := h.write(conn, payload); err != nil {
			tool.DefaultLogger.Debugf("[Notify] Dropping connection %s: %v", conn.RemoteAddr(), err)
			h.Unregister(conn)
		}
	}
}

// Ping sends a ping control frame to conn.
func (h *Hub) Ping(conn *websocket.Conn) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// CloseAll sends a close frame to every connection and closes it.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	clear(h.conns)
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "session expired")
	for _, conn := range conns {
		h.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		h.writeMu.Unlock()
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Debugf("[Notify] Failed to close %s: %v", conn.RemoteAddr(), err)
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, payload []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}
