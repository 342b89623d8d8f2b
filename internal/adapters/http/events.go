package http

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/domain"
)

// EventHub fans session events out to embedding apps connected on the
// events websocket. Slow consumers are dropped, never waited on.
type EventHub struct {
	mu      sync.Mutex
	clients map[*hubConn]struct{}
}

type hubConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*hubConn]struct{})}
}

func (h *EventHub) add(ws *websocket.Conn) *hubConn {
	c := &hubConn{conn: ws, send: make(chan []byte, 32)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	return c
}

func (h *EventHub) remove(c *hubConn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (c *hubConn) writePump() {
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (c *hubConn) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *hubConn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (h *EventHub) broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("event marshal")
		return
	}

	h.mu.Lock()
	clients := make([]*hubConn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if !c.trySend(data) {
			log.Warn().Str("module", "adapters.http").Msg("dropping slow event consumer")
			h.remove(c)
		}
	}
}

func (h *EventHub) NotifyConferenceJoined(room domain.RoomName) {
	h.broadcast(map[string]any{"type": "conference_joined", "room": string(room)})
}

func (h *EventHub) NotifyConferenceLeft(room domain.RoomName) {
	h.broadcast(map[string]any{"type": "conference_left", "room": string(room)})
}

func (h *EventHub) NotifyUserJoined(id domain.ParticipantID) {
	h.broadcast(map[string]any{"type": "user_joined", "id": string(id)})
}

func (h *EventHub) NotifyUserLeft(id domain.ParticipantID) {
	h.broadcast(map[string]any{"type": "user_left", "id": string(id)})
}

func (h *EventHub) NotifySendingChatMessage(text string) {
	h.broadcast(map[string]any{"type": "chat_sent", "text": text})
}

func (h *EventHub) NotifyReceivedChatMessage(id domain.ParticipantID, displayName, text string, ts time.Time) {
	h.broadcast(map[string]any{
		"type": "chat_received",
		"id":   string(id),
		"name": displayName,
		"text": text,
		"ts":   ts.UnixMilli(),
	})
}

func (h *EventHub) NotifyDisplayNameChanged(id domain.ParticipantID, name string) {
	h.broadcast(map[string]any{"type": "display_name_changed", "id": string(id), "name": name})
}

func (h *EventHub) NotifyReadyToClose() {
	h.broadcast(map[string]any{"type": "ready_to_close"})
}
