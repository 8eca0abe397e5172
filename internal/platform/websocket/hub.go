package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/pdfstudy-api/internal/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames.
	maxMessageSize = 512

	// Queued messages per client before it is considered too slow.
	sendBuffer = 64
)

// EventStopped is the event type after which a game's connections are closed.
const EventStopped = "game.stopped"

// ErrHubClosed is returned by Serve after Close.
var ErrHubClosed = errors.New("websocket hub closed")

// Message is the JSON frame sent to clients.
type Message struct {
	Type   string          `json:"type"`
	GameID string          `json:"game_id"`
	State  json.RawMessage `json:"state"`
}

// Hub routes game events to subscribed websocket clients.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	closed   bool
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

type client struct {
	conn   *websocket.Conn
	gameID string
	send   chan []byte
}

// NewHub creates a Hub. Upgrade requests are accepted from allowedOrigins;
// "*" allows any origin and requests without an Origin header are always
// accepted.
func NewHub(logger *slog.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Hub{
		clients: make(map[string]map[*client]struct{}),
		logger:  logger.With(slog.String("component", "websocket_hub")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// HandleEvent implements events.EventHandler. It never blocks on network
// I/O.
func (h *Hub) HandleEvent(_ context.Context, event *events.GameEvent) error {
	data, err := json.Marshal(Message{Type: event.Type, GameID: event.GameID, State: event.State})
	if err != nil {
		return fmt.Errorf("failed to encode websocket message: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[event.GameID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping slow websocket client", slog.String("game_id", c.gameID))
			h.removeLocked(c)
		}
	}

	if event.Type == EventStopped {
		for c := range h.clients[event.GameID] {
			h.removeLocked(c)
		}
	}
	return nil
}

// Serve upgrades the request to a websocket for gameID and calls subscribe
// with an attach function. attach queues initial, if any, and subscribes the
// connection to the game's events, so the caller can invoke it at a point
// where no event is emitted concurrently and the initial message is
// guaranteed to precede every later event. Serve returns once the connection
// closes; upgrade failures have already been answered with an HTTP error when
// it returns an error.
func (h *Hub) Serve(
	w http.ResponseWriter,
	r *http.Request,
	gameID string,
	subscribe func(attach func(initial *events.GameEvent) error) error,
) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade failed: %w", err)
	}

	c := &client{conn: conn, gameID: gameID, send: make(chan []byte, sendBuffer)}
	attach := func(initial *events.GameEvent) error {
		if initial != nil {
			data, err := json.Marshal(Message{Type: initial.Type, GameID: gameID, State: initial.State})
			if err != nil {
				return fmt.Errorf("failed to encode websocket message: %w", err)
			}
			c.send <- data
		}
		return h.register(c)
	}

	if subscribe == nil {
		err = attach(nil)
	} else {
		err = subscribe(attach)
	}
	if err != nil {
		h.unregister(c)
		_ = conn.Close()
		return err
	}

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// ClientCount returns the number of connections subscribed to gameID.
func (h *Hub) ClientCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[gameID])
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, set := range h.clients {
		for c := range set {
			h.removeLocked(c)
		}
	}
}

func (h *Hub) register(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	set, ok := h.clients[c.gameID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.gameID] = set
	}
	set[c] = struct{}{}

	h.logger.Debug("websocket client connected",
		slog.String("game_id", c.gameID),
		slog.Int("clients", len(set)))
	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked detaches c and closes its send queue; the writer then sends a
// close frame. Safe to call more than once.
func (h *Hub) removeLocked(c *client) {
	set, ok := h.clients[c.gameID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}

	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.gameID)
	}
	close(c.send)

	h.logger.Debug("websocket client disconnected", slog.String("game_id", c.gameID))
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed",
					slog.String("game_id", c.gameID),
					slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writePump is the only writer of c.conn.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
