package server

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/pagepulse/pagepulse/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Session auth runs before the upgrade; same-site cookies keep
		// cross-origin pages from riding an existing session.
		return true
	},
}

// handleWebSocket upgrades the connection and streams notification pushes to
// the authenticated user until they disconnect.
func (s *Server) handleWebSocket(c echo.Context) error {
	userID := c.Get("userID").(uuid.UUID)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("error").Inc()
		slog.Warn("Failed to upgrade WebSocket", "error", err)
		return nil
	}

	if err := s.hub.Register(userID, conn); err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("error").Inc()
		slog.Warn("Failed to register with hub", "error", err)
		return nil
	}
	metrics.WebSocketConnectionsTotal.WithLabelValues("success").Inc()

	// Read pump, blocks until the connection closes
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(userID, conn)

	return nil
}
