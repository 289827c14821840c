package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	viewerReadLimit = 512
	pongWait        = 60 * time.Second
	pingPeriod      = pongWait / 2
	writeWait       = 10 * time.Second
	broadcastBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ModelEvent tells viewers that a new model is ready.
type ModelEvent struct {
	Type     string `json:"type"`
	ModelURL string `json:"modelo_url"`
	Class    string `json:"clase"`
}

// Hub fans model events out to connected viewer pages. The client set is
// owned by the Run goroutine; the mutex only guards reads from other
// goroutines.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until ctx is
// cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("viewer connected", "total", count)

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			for _, client := range h.snapshot() {
				_ = client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Warn("failed to send to viewer", "error", err)
					h.remove(client)
				}
			}

		case <-ticker.C:
			for _, client := range h.snapshot() {
				if err := client.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					h.remove(client)
				}
			}

		case <-ctx.Done():
			for _, client := range h.snapshot() {
				h.remove(client)
			}
			return
		}
	}
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) remove(client *websocket.Conn) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	count := len(h.clients)
	h.mutex.Unlock()
	if !ok {
		return
	}
	if err := client.Close(); err != nil {
		h.logger.Debug("close viewer connection", "error", err)
	}
	h.logger.Info("viewer disconnected", "total", count)
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// NotifyModel queues a model event for every viewer. When the queue is full
// the event is dropped rather than stalling the caller.
func (h *Hub) NotifyModel(assetURL, class string) {
	msg, err := json.Marshal(ModelEvent{Type: "modelo", ModelURL: assetURL, Class: class})
	if err != nil {
		h.logger.Error("failed to encode model event", "error", err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("viewer queue full, dropping model event", "modelo_url", assetURL)
	}
}

// ServeWS upgrades a viewer page and keeps reading until it goes away.
// Viewers never send anything useful; reading drives pong handling.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(viewerReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	select {
	case h.register <- conn:
	case <-h.done:
		_ = conn.Close()
		return
	}
	defer func() {
		select {
		case h.unregister <- conn:
		case <-h.done:
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
