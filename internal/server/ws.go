package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/ghostglove/internal/log"
	"github.com/ayusman/ghostglove/internal/session"
	"github.com/gorilla/websocket"
)

const writeTimeout = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// controlMessage is what clients send to drive the session remotely.
type controlMessage struct {
	Control string `json:"control"`
	Label   string `json:"label,omitempty"`
}

// EventsHandler broadcasts every frame Outcome via WebSocket and forwards
// control messages from clients to the pipeline.
type EventsHandler struct {
	pipeline    Pipeline
	clients     map[*websocket.Conn]*sync.Mutex
	mu          sync.RWMutex
	unsubscribe func()
	done        chan struct{}
	closeOnce   sync.Once
}

// NewEventsHandler subscribes to p and starts broadcasting.
func NewEventsHandler(p Pipeline) *EventsHandler {
	outcomes, unsubscribe := p.Subscribe()
	h := &EventsHandler{
		pipeline:    p,
		clients:     make(map[*websocket.Conn]*sync.Mutex),
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
	}
	go h.broadcast(outcomes)
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.write(conn, map[string]string{"error": "invalid JSON"})
			continue
		}

		ctl := session.ParseControl(msg.Control, msg.Label)
		if ctl.Kind == session.ControlNone {
			h.write(conn, map[string]string{"error": "unknown control"})
			continue
		}
		if !h.pipeline.Control(ctl) {
			h.write(conn, map[string]string{"error": "control queue full"})
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops broadcasting and closes every client connection.
func (h *EventsHandler) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.unsubscribe()

		h.mu.Lock()
		defer h.mu.Unlock()
		for conn := range h.clients {
			conn.Close()
		}
	})
}

// broadcast sends each outcome to all connected clients.
func (h *EventsHandler) broadcast(outcomes <-chan session.Outcome) {
	for {
		select {
		case <-h.done:
			return
		case out, ok := <-outcomes:
			if !ok {
				return
			}

			h.mu.RLock()
			if len(h.clients) == 0 {
				h.mu.RUnlock()
				continue
			}
			h.mu.RUnlock()

			msg, err := json.Marshal(out)
			if err != nil {
				log.Warn("failed to encode outcome", "error", err)
				continue
			}

			h.mu.RLock()
			for conn, lock := range h.clients {
				lock.Lock()
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				conn.WriteMessage(websocket.TextMessage, msg)
				lock.Unlock()
			}
			h.mu.RUnlock()
		}
	}
}

func (h *EventsHandler) write(conn *websocket.Conn, v any) {
	h.mu.RLock()
	lock, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	lock.Lock()
	defer lock.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	conn.WriteJSON(v)
}
