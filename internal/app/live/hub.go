// Package live pushes game updates to websocket subscribers so a second
// device can follow scorekeeping in real time.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hooptrack/backend/internal/app/domain/game"
	"github.com/hooptrack/backend/internal/app/metrics"
	"github.com/hooptrack/backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

// Message is the frame pushed to subscribers.
type Message struct {
	Type      string    `json:"type"`
	Game      game.Game `json:"game"`
	Timestamp time.Time `json:"timestamp"`
}

type subscriber struct {
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

// Hub fans game updates out to the subscribers of each game.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]bool
	upgrader    websocket.Upgrader
	log         *logger.Logger
}

// NewHub creates a Hub. checkOrigin relaxes the origin check for mobile
// clients that send no Origin header.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewDefault("live")
	}
	return &Hub{
		subscribers: make(map[string]map[*subscriber]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// GameUpdated implements the games service's Notifier. Slow subscribers are
// dropped rather than allowed to block the request path.
func (h *Hub) GameUpdated(_ context.Context, g game.Game) {
	if h == nil {
		return
	}

	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subscribers[g.ID]))
	for s := range h.subscribers[g.ID] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(Message{Type: "game_update", Game: g, Timestamp: time.Now().UTC()})
	if err != nil {
		h.log.WithError(err).Warn("marshal live update")
		return
	}

	for _, s := range subs {
		select {
		case s.send <- payload:
		default:
			h.remove(s)
		}
	}
}

// ServeWS upgrades the request and streams updates for the game until the
// client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	s := &subscriber{conn: conn, send: make(chan []byte, sendBufferSize), gameID: gameID}

	h.mu.Lock()
	if h.subscribers[gameID] == nil {
		h.subscribers[gameID] = make(map[*subscriber]bool)
	}
	h.subscribers[gameID][s] = true
	metrics.SetLiveSubscribers(h.totalLocked())
	h.mu.Unlock()

	h.log.WithField("game_id", gameID).Debug("live subscriber connected")

	go h.writePump(s)
	h.readPump(s)
}

// SubscriberCount reports how many clients follow a game.
func (h *Hub) SubscriberCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[gameID])
}

func (h *Hub) readPump(s *subscriber) {
	defer h.remove(s)

	s.conn.SetReadLimit(1024)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subscribers[s.gameID]; ok {
		if subs[s] {
			delete(subs, s)
			close(s.send)
			if len(subs) == 0 {
				delete(h.subscribers, s.gameID)
			}
			metrics.SetLiveSubscribers(h.totalLocked())
		}
	}
}

// totalLocked sums subscribers across all games. Callers hold mu.
func (h *Hub) totalLocked() int {
	n := 0
	for _, subs := range h.subscribers {
		n += len(subs)
	}
	return n
}
