package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"arena/internal/game"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	wsWriteWait    = 2 * time.Second
	wsMaxReadBytes = 512
)

// frameFormat selects how snapshots are encoded for one client
type frameFormat uint8

const (
	formatJSON frameFormat = iota
	formatMsgpack
)

func parseFrameFormat(s string) (frameFormat, bool) {
	switch s {
	case "", "json":
		return formatJSON, true
	case "msgpack":
		return formatMsgpack, true
	}
	return formatJSON, false
}

// SnapshotSource is anything that publishes world snapshots
type SnapshotSource interface {
	LatestSnapshot() *game.WorldSnapshot
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn   *websocket.Conn
	ip     string
	format frameFormat
}

// WebSocketHub pushes world snapshots to visualizers with DoS protection.
// The feed is read-only: anything a client sends is discarded.
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan *game.WorldSnapshot
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	stopChan chan struct{}
	stopOnce sync.Once

	upgrader websocket.Upgrader

	// Connection limiting per IP
	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a new hub accepting the given origins
func NewWebSocketHub(origins *OriginPolicy) *WebSocketHub {
	h := &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan *game.WorldSnapshot, 16),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		stopChan:   make(chan struct{}),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  512,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origins.Allowed(origin) {
				return true
			}

			// Log rejected origin for security monitoring
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run starts the hub; it returns after Stop
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Visualizer connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.drop(conn)
			count := h.ClientCount()
			log.Printf("📱 Visualizer disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case snap := <-h.broadcast:
			h.send(snap)

		case <-h.stopChan:
			h.mu.Lock()
			for conn, client := range h.clients {
				h.wsLimiter.Release(client.ip)
				conn.Close()
			}
			h.clients = make(map[*websocket.Conn]*wsClient)
			h.mu.Unlock()
			UpdateWSConnections(0)
			return
		}
	}
}

// send writes one snapshot to every client, encoding each format at most once
func (h *WebSocketHub) send(snap *game.WorldSnapshot) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var encoded [2][]byte
	var failed []*websocket.Conn

	for _, c := range clients {
		if encoded[c.format] == nil {
			data, err := encodeSnapshot(snap, c.format)
			if err != nil {
				log.Printf("⚠️ Snapshot encode error: %v", err)
				return
			}
			encoded[c.format] = data
		}

		msgType := websocket.TextMessage
		if c.format == formatMsgpack {
			msgType = websocket.BinaryMessage
		}

		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteMessage(msgType, encoded[c.format]); err != nil {
			failed = append(failed, c.conn)
			continue
		}
		IncrementWSMessages()
	}

	for _, conn := range failed {
		h.drop(conn)
	}
	if len(failed) > 0 {
		UpdateWSConnections(h.ClientCount())
	}
}

// drop closes a connection and frees its IP slot
func (h *WebSocketHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[conn]; ok {
		h.wsLimiter.Release(client.ip)
		delete(h.clients, conn)
		conn.Close()
	}
}

func encodeSnapshot(snap *game.WorldSnapshot, format frameFormat) ([]byte, error) {
	if format == formatMsgpack {
		return msgpack.Marshal(snap)
	}
	return json.Marshal(snap)
}

// Broadcast queues a snapshot for all connected clients
func (h *WebSocketHub) Broadcast(snap *game.WorldSnapshot) {
	select {
	case h.broadcast <- snap:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes the newest snapshot every interval. Snapshots
// already sent are skipped.
func (h *WebSocketHub) StartBroadcastLoop(source SnapshotSource, interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		var lastSequence uint64

		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
			}

			if h.ClientCount() == 0 {
				continue
			}
			snap := source.LatestSnapshot()
			if snap == nil || snap.Sequence == lastSequence {
				continue
			}
			lastSequence = snap.Sequence
			h.Broadcast(snap)
		}
	}()
}

// Stop closes every connection and ends Run and the broadcast loop
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	format, ok := parseFrameFormat(r.URL.Query().Get("format"))
	if !ok {
		writeError(w, "format must be json or msgpack", http.StatusBadRequest)
		return
	}

	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip) // Release the slot we reserved
		return
	}

	client := &wsClient{conn: conn, ip: ip, format: format}
	select {
	case h.register <- client:
	case <-h.stopChan:
		h.wsLimiter.Release(ip)
		conn.Close()
		return
	}

	// Drain and discard inbound frames until the client goes away
	go func() {
		conn.SetReadLimit(wsMaxReadBytes)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		select {
		case h.unregister <- conn:
		case <-h.stopChan:
		}
	}()
}
