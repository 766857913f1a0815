package ws

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fathima-sithara/context-chat-service/internal/metrics"
)

// Server upgrades connections and runs their pumps against the shared hub.
type Server struct {
	hub *Hub
	log *zap.SugaredLogger
}

func NewServer(hub *Hub, log *zap.SugaredLogger) *Server {
	return &Server{hub: hub, log: log}
}

func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the connection handler to mount behind the websocket
// upgrade middleware. Room membership is only ever granted through explicit
// joinRoom events; a fresh connection is subscribed to nothing.
func (s *Server) Handler() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		c := newClient(uuid.NewString(), conn, s.log)
		s.log.Infow("client connected", "client", c.id)
		metrics.WSConnections.Inc()
		defer func() {
			metrics.WSConnections.Dec()
			s.log.Infow("client disconnected", "client", c.id)
		}()

		go c.writePump()
		c.readPump(s.hub)
	}
}
