package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/fathima-sithara/context-chat-service/internal/metrics"
	"github.com/fathima-sithara/context-chat-service/internal/room"
)

// Event names the hub itself emits back to a single connection.
const eventJoinError = "joinError"

// Envelope is the JSON frame exchanged over the websocket in both
// directions: {"event": "...", "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub owns the room-to-subscriber mapping. It is constructed once at startup
// and injected into everything that needs it; join/leave and broadcast may
// run concurrently, so the map is guarded by a RWMutex and Broadcast fans
// out over the subscriber set held under the read lock.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	log   *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		log:   log,
	}
}

// Join subscribes a connection to a room. The token is validated against the
// room-identity format first; a bad token gets an explicit joinError event
// back on the connection and no subscription. Joining an already-joined room
// is a no-op.
func (h *Hub) Join(c *Client, token string) error {
	name, err := room.Parse(token)
	if err != nil {
		h.log.Warnw("rejected join with invalid room token", "client", c.id, "token", token)
		c.sendEvent(eventJoinError, map[string]string{
			"message": "invalid room name format",
			"room":    token,
		})
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[name]; !ok {
		h.rooms[name] = make(map[*Client]struct{})
	}
	h.rooms[name][c] = struct{}{}
	c.joined[name] = struct{}{}
	h.log.Debugw("client joined room", "client", c.id, "room", name)
	return nil
}

// Leave unsubscribes a connection from a room. Leaving a room that was never
// joined, or an invalid token, is a no-op.
func (h *Hub) Leave(c *Client, token string) {
	name, err := room.Parse(token)
	if err != nil {
		h.log.Warnw("ignored leave with invalid room token", "client", c.id, "token", token)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(c, name)
}

// Remove drops every subscription of a connection. Called from the read pump
// when the connection goes away.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name := range c.joined {
		h.detach(c, name)
	}
}

func (h *Hub) detach(c *Client, name string) {
	if set, ok := h.rooms[name]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, name)
		}
	}
	delete(c.joined, name)
}

// Broadcast delivers an event to every current subscriber of a room,
// fire-and-forget. Zero subscribers is a no-op, not an error. The per-client
// enqueue never blocks: a subscriber whose buffer is full has the frame
// dropped rather than stalling the fan-out.
func (h *Hub) Broadcast(roomName, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Errorw("broadcast payload marshal failed", "event", event, "err", err)
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.log.Errorw("broadcast envelope marshal failed", "event", event, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	set, ok := h.rooms[roomName]
	if !ok {
		return
	}
	metrics.Broadcasts.WithLabelValues(event).Inc()
	for c := range set {
		c.enqueue(frame)
	}
}

// RoomSize reports the current subscriber count of a room.
func (h *Hub) RoomSize(roomName string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomName])
}
