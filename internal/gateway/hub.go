// Package gateway manages WebSocket subscribers and fans price updates out
// to them. Subscription is "connect and receive": no auth, no
// request/response. Subscriber goroutines only ever read engine state
// through the snapshot function; all mutation stays on the tick loop.
package gateway

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"price-engine/internal/metrics"
	"price-engine/internal/model"
)

// SnapshotFunc returns the current full-market snapshot for the initial
// subscriber handshake.
type SnapshotFunc func() model.MarketSnapshot

// Hub owns the set of live WebSocket subscribers.
type Hub struct {
	snapshot SnapshotFunc
	prom     *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a Hub. prom may be nil.
func NewHub(snapshot SnapshotFunc, prom *metrics.Metrics) *Hub {
	return &Hub{
		snapshot: snapshot,
		prom:     prom,
		clients:  make(map[*Client]bool),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request to a WebSocket subscription. The
// snapshot message is queued before the client is registered, so it always
// precedes any incremental update on that connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] upgrade error: %v", err)
		return
	}

	client := newClient(conn, h)
	snap := h.snapshot()
	client.trySend(snap.JSON())
	h.addClient(client)

	go client.writePump()
	go client.readPump()

	log.Printf("[gateway] client connected: %s (%d total)", r.RemoteAddr, h.ClientCount())
}

// Run consumes tick batches until ctx is cancelled or the channel closes,
// then closes every subscriber connection.
func (h *Hub) Run(ctx context.Context, updates <-chan []model.PriceUpdate) {
	defer h.CloseAll()
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-updates:
			if !ok {
				return
			}
			h.Broadcast(batch)
		}
	}
}

// Broadcast serializes each update once and delivers it to every
// subscriber. The client set is copied up front so removals during
// delivery never disturb iteration, and a dead subscriber is removed
// without interrupting delivery to the rest.
func (h *Hub) Broadcast(batch []model.PriceUpdate) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return
	}

	for i := range batch {
		msg := batch[i].JSON()
		for _, c := range clients {
			if !c.trySend(msg) {
				h.removeClient(c)
				continue
			}
			if h.prom != nil {
				h.prom.BroadcastsTotal.Inc()
			}
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	if h.prom != nil {
		h.prom.WSClients.Inc()
	}
}

// removeClient unregisters a subscriber and shuts its pumps down.
// Idempotent: broadcast failures and pump exits may both report the same
// client.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}

	c.close()
	if h.prom != nil {
		h.prom.WSClients.Dec()
	}
	log.Printf("[gateway] client disconnected (%d total)", count)
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every subscriber. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.removeClient(c)
	}
}
