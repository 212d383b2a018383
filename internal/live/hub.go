// Package live streams per-tick simulation events to WebSocket clients: a
// single goroutine owns the client set and the broadcast fan-out, driven
// directly by the Scheduler's own tick cadence rather than a polling
// ticker — there's no reason to resample state the simulator already
// pushes.
package live

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// upgrader allows any origin, a local-dev CORS posture: this feed is
// read-only and has no credentials to leak.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// maxClients bounds the hub's connection set against runaway fan-out.
const maxClients = 200

// Event is one tick's worth of simulator state, broadcast verbatim as
// JSON to every connected client.
type Event struct {
	Tick      int      `json:"tick"`
	Running   string   `json:"running,omitempty"`
	ReadyIDs  []string `json:"ready"`
	Completed []string `json:"completed_this_tick,omitempty"`
}

// Hub owns the set of connected viewers for one simulation run.
type Hub struct {
	log *logrus.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}

	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	events     chan Event
}

// NewHub constructs an idle Hub; call Run to start its loop.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		events:     make(chan Event, 64),
	}
}

// Run drives the hub until ctx is cancelled, closing every client
// connection on exit.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case conn := <-h.register:
			h.mu.Lock()
			if len(h.clients) >= maxClients {
				h.mu.Unlock()
				conn.Close()
				h.log.Warnf("live: connection rejected, at capacity (%d)", maxClients)
				continue
			}
			h.clients[conn] = struct{}{}
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case ev := <-h.events:
			h.broadcast(ev)
		}
	}
}

func (h *Hub) broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			h.log.WithError(err).Debug("live: write failed, client will be dropped on next unregister")
			go h.Unregister(conn)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}

// Register admits a new client connection into the broadcast set.
func (h *Hub) Register(conn *websocket.Conn) { h.register <- conn }

// Unregister removes a client connection, closing it if still present.
func (h *Hub) Unregister(conn *websocket.Conn) { h.unregister <- conn }

// Publish enqueues one tick's event for broadcast. Non-blocking: a hub
// with no room in its event buffer drops the event rather than stall the
// Scheduler loop, since live viewers are a convenience, not the record of
// truth (the statistics file and archive are).
func (h *Hub) Publish(ev Event) {
	select {
	case h.events <- ev:
	default:
	}
}

// ServeWS upgrades r into a WebSocket connection and registers it with the
// hub, blocking until the client disconnects. No auth: this feed is
// read-only and scoped to a single local run.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("live: websocket upgrade failed")
		return
	}
	h.Register(conn)
	defer h.Unregister(conn)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Ping well inside the read deadline so a quiet client's pongs keep it
	// registered.
	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ClientCount reports the current number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
