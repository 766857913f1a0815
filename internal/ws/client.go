package ws

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/context-chat-service/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Client is one websocket connection. A client may be subscribed to any
// number of rooms at once; the joined set is owned by the hub and only
// touched under its lock.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	joined map[string]struct{}
	log    *zap.SugaredLogger
}

func newClient(id string, conn *websocket.Conn, log *zap.SugaredLogger) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		joined: make(map[string]struct{}),
		log:    log,
	}
}

// enqueue hands a frame to the write pump without blocking. The buffered
// channel preserves per-room delivery order for this subscriber; when the
// buffer is full the frame is dropped.
func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		metrics.DroppedFrames.Inc()
		c.log.Warnw("send buffer full, dropping frame", "client", c.id)
	}
}

func (c *Client) sendEvent(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return
	}
	c.enqueue(frame)
}

func (c *Client) readPump(hub *Hub) {
	defer func() {
		hub.Remove(c)
		close(c.send)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		switch env.Event {
		case "joinRoom":
			_ = hub.Join(c, decodeToken(env.Data))
		case "leaveRoom":
			hub.Leave(c, decodeToken(env.Data))
		default:
			// unknown client events are ignored
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// decodeToken accepts both a bare JSON string and {"room": "..."} so older
// clients keep working.
func decodeToken(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Room string `json:"room"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Room
	}
	return ""
}
