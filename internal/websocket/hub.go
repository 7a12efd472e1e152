package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pagepulse/pagepulse/internal/metrics"
)

const maxClientsPerUser = 10

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	userID uuid.UUID
	conn   *websocket.Conn
	errCh  chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	userID uuid.UUID
	conn   *websocket.Conn
}

func (cmdUnregister) hubCmd() {}

type cmdPush struct {
	userID uuid.UUID
	data   []byte
}

func (cmdPush) hubCmd() {}

type cmdGetClientCount struct {
	userID  uuid.UUID
	replyCh chan int
}

func (cmdGetClientCount) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			cw.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	cw.conn.Close()
}

// --- Hub ---

// Hub fans notification pushes out to a user's connected dashboard tabs. All
// state lives in the run goroutine; callers communicate through commands.
// onFirstConnect and onLastDisconnect bracket a user's presence so the server
// can open and close the per-user Redis subscription.
type Hub struct {
	cmdCh            chan hubCmd
	clients          map[uuid.UUID]map[*websocket.Conn]*clientWriter
	onFirstConnect   func(uuid.UUID)
	onLastDisconnect func(uuid.UUID)
}

func NewHub(onFirstConnect, onLastDisconnect func(uuid.UUID)) *Hub {
	hub := &Hub{
		cmdCh:            make(chan hubCmd, 256),
		clients:          make(map[uuid.UUID]map[*websocket.Conn]*clientWriter),
		onFirstConnect:   onFirstConnect,
		onLastDisconnect: onLastDisconnect,
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.userID, c.conn)
		case cmdPush:
			h.handlePush(c)
		case cmdGetClientCount:
			c.replyCh <- len(h.clients[c.userID])
		case cmdStop:
			h.handleStop()
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	clients, exists := h.clients[c.userID]
	if !exists {
		clients = make(map[*websocket.Conn]*clientWriter)
		h.clients[c.userID] = clients
	}

	if len(clients) >= maxClientsPerUser {
		slog.Warn("Rejecting client: max connections reached", "user_id", c.userID, "max", maxClientsPerUser)
		c.conn.Close()
		c.errCh <- fmt.Errorf("max connections per user (%d) reached", maxClientsPerUser)
		return
	}

	cw := newClientWriter(c.conn)
	clients[c.conn] = cw
	metrics.WebSocketConnectionsCurrent.Inc()
	slog.Debug("Client registered", "user_id", c.userID, "total", len(clients))

	if len(clients) == 1 && h.onFirstConnect != nil {
		h.onFirstConnect(c.userID)
	}
	c.errCh <- nil
}

func (h *Hub) handleUnregister(userID uuid.UUID, conn *websocket.Conn) {
	clients, exists := h.clients[userID]
	if !exists {
		return
	}

	cw, exists := clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(clients, conn)
	metrics.WebSocketConnectionsCurrent.Dec()

	if len(clients) == 0 {
		delete(h.clients, userID)
		if h.onLastDisconnect != nil {
			h.onLastDisconnect(userID)
		}
		slog.Debug("Last client disconnected", "user_id", userID)
	} else {
		slog.Debug("Client unregistered", "user_id", userID, "remaining", len(clients))
	}
}

func (h *Hub) handlePush(c cmdPush) {
	clients, exists := h.clients[c.userID]
	if !exists {
		metrics.NotificationPushesTotal.WithLabelValues("no_clients").Inc()
		return
	}

	var slow []*websocket.Conn
	for conn, cw := range clients {
		select {
		case cw.sendCh <- c.data:
			// sent successfully
		default:
			// client is slow, mark for removal
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow client", "user_id", c.userID)
		h.handleUnregister(c.userID, conn)
	}

	metrics.NotificationPushesTotal.WithLabelValues("delivered").Inc()
}

func (h *Hub) handleStop() {
	for userID, clients := range h.clients {
		for _, cw := range clients {
			cw.stop()
			metrics.WebSocketConnectionsCurrent.Dec()
		}
		delete(h.clients, userID)
	}
}

// --- Public API ---

func (h *Hub) Register(userID uuid.UUID, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- cmdRegister{userID: userID, conn: conn, errCh: errCh}
	return <-errCh
}

func (h *Hub) Unregister(userID uuid.UUID, conn *websocket.Conn) {
	h.cmdCh <- cmdUnregister{userID: userID, conn: conn}
}

// Push marshals v as JSON and fans it out to the user's connections.
func (h *Hub) Push(userID uuid.UUID, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal push message", "error", err)
		metrics.NotificationPushesTotal.WithLabelValues("error").Inc()
		return
	}
	h.cmdCh <- cmdPush{userID: userID, data: data}
}

func (h *Hub) GetClientCount(userID uuid.UUID) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- cmdGetClientCount{userID: userID, replyCh: replyCh}
	return <-replyCh
}

func (h *Hub) Stop() {
	h.cmdCh <- cmdStop{}
}
