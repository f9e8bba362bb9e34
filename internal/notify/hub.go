package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"linked-go/internal/auth"
	"linked-go/internal/game"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// MatchReader authorizes a subscriber against the match it asks for.
type MatchReader interface {
	GetMatch(ctx context.Context, matchID string, playerID string) (*game.Match, error)
}

type client struct {
	matchID  string
	playerID string
	send     chan []byte
}

// Hub keeps websocket subscribers grouped by match and nudges them when the
// turn changes. Clients still poll for state; the nudge only shortens the wait.
type Hub struct {
	matches  MatchReader
	logger   *slog.Logger
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.RWMutex
	clients map[string]map[*client]bool
}

func NewHub(matches MatchReader, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		matches: matches,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		now:     time.Now,
		clients: make(map[string]map[*client]bool),
	}
}

func (h *Hub) NotifyTurnChanged(ctx context.Context, matchID string, playerID string) error {
	data, err := json.Marshal(newTurnNotification(matchID, playerID, h.now()))
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	h.broadcast(matchID, data)
	return nil
}

// Subscribers returns the number of open connections for a match.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[matchID])
}

func (h *Hub) broadcast(matchID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[matchID] {
		select {
		case c.send <- data:
		default:
			// slow reader, drop it
			h.removeLocked(c)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.matchID] == nil {
		h.clients[c.matchID] = make(map[*client]bool)
	}
	h.clients[c.matchID][c] = true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	clients, ok := h.clients[c.matchID]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.clients, c.matchID)
	}
}

// ServeHTTP upgrades GET /matches/:matchID/notifications for a match player.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	matchID := httprouter.ParamsFromContext(r.Context()).ByName("matchID")
	playerID := auth.PlayerIDFromContext(r.Context())
	if playerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if matchID == "" {
		http.Error(w, "Match ID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.matches.GetMatch(r.Context(), matchID, playerID); err != nil {
		switch {
		case errors.Is(err, game.ErrMatchNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, game.ErrNotMatchPlayer):
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			h.logger.Error("failed to authorize subscriber", "match_id", matchID, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "match_id", matchID, "error", err)
		return
	}

	c := &client{matchID: matchID, playerID: playerID, send: make(chan []byte, sendBuffer)}
	h.register(c)
	h.logger.Debug("subscriber connected", "match_id", matchID, "player_id", playerID)

	go h.writePump(conn, c)
	h.readPump(conn, c)
}

// readPump only watches for the close; subscribers never send anything.
func (h *Hub) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		h.unregister(c)
		conn.Close()
	}()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
