package connection

import (
	"encoding/json"
	"sync"
	"time"

	"sol-terminal/src/helpers"
	"sol-terminal/src/models"
	"sol-terminal/src/normalizer"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// ConnectionHandle represents one live PubSub session. It owns the socket and
// the subscription bookkeeping; it is destroyed on disconnect and a fresh one
// is created on reconnection.
// -----------------------------------------------------------------------------

type ConnectionHandle struct {
	conn       *websocket.Conn
	commitment string
	createdAt  time.Time

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]pendingRequest     // request id -> what we asked for
	subs    map[uint64]models.MPoolConfig // subscription id -> pool
	subIDs  map[string]uint64             // instrument -> subscription id
}

type pendingRequest struct {
	pool        models.MPoolConfig
	unsubscribe bool
}

// -----------------------------------------------------------------------------

func newConnectionHandle(conn *websocket.Conn, commitment string) *ConnectionHandle {
	if commitment == "" {
		commitment = "confirmed"
	}
	return &ConnectionHandle{
		conn:       conn,
		commitment: commitment,
		createdAt:  time.Now(),
		pending:    make(map[uint64]pendingRequest),
		subs:       make(map[uint64]models.MPoolConfig),
		subIDs:     make(map[string]uint64),
	}
}

// -----------------------------------------------------------------------------

// writeJSON serializes writes; gorilla connections allow one writer at a time.
func (h *ConnectionHandle) writeJSON(v interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return h.conn.WriteJSON(v)
}

// -----------------------------------------------------------------------------

// SendSubscribe issues an accountSubscribe for the pool's account.
func (h *ConnectionHandle) SendSubscribe(pool models.MPoolConfig) error {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.pending[id] = pendingRequest{pool: pool}
	h.mu.Unlock()

	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "accountSubscribe",
		"params": []interface{}{
			pool.Pubkey,
			map[string]string{"encoding": "base64", "commitment": h.commitment},
		},
	}

	return h.writeJSON(req)
}

// -----------------------------------------------------------------------------

// SendUnsubscribe tears down the live subscription for an instrument, if any.
func (h *ConnectionHandle) SendUnsubscribe(instrument string) error {
	h.mu.Lock()
	subID, ok := h.subIDs[instrument]
	if !ok {
		h.mu.Unlock()
		return nil
	}
	pool := h.subs[subID]
	delete(h.subs, subID)
	delete(h.subIDs, instrument)
	h.nextID++
	id := h.nextID
	h.pending[id] = pendingRequest{pool: pool, unsubscribe: true}
	h.mu.Unlock()

	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "accountUnsubscribe",
		"params":  []interface{}{subID},
	}

	return h.writeJSON(req)
}

// -----------------------------------------------------------------------------

// HandleAck resolves a response to one of our requests. For subscribes the
// result carries the subscription id used by later notifications.
func (h *ConnectionHandle) HandleAck(requestID uint64, result json.RawMessage, rpcErr *normalizer.RPCError) (string, error) {
	h.mu.Lock()
	req, ok := h.pending[requestID]
	if ok {
		delete(h.pending, requestID)
	}
	h.mu.Unlock()

	if !ok {
		return "", nil // response to a request we never made, ignore
	}

	if rpcErr != nil {
		return req.pool.Name, helpers.NewSubscriptionError(req.pool.Name, rpcErr.Code, rpcErr.Message)
	}

	if req.unsubscribe {
		return req.pool.Name, nil
	}

	var subID uint64
	if err := json.Unmarshal(result, &subID); err != nil {
		return req.pool.Name, helpers.NewSubscriptionError(req.pool.Name, 0, "subscription ack carries no id")
	}

	h.mu.Lock()
	h.subs[subID] = req.pool
	h.subIDs[req.pool.Name] = subID
	h.mu.Unlock()

	return req.pool.Name, nil
}

// -----------------------------------------------------------------------------

// Resolve maps a subscription id back to its pool. Matches
// normalizer.SubscriptionResolver.
func (h *ConnectionHandle) Resolve(subscriptionID uint64) (models.MPoolConfig, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pool, ok := h.subs[subscriptionID]
	return pool, ok
}

// -----------------------------------------------------------------------------

// SubscribedInstruments returns the instruments with a confirmed subscription.
func (h *ConnectionHandle) SubscribedInstruments() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.subIDs))
	for name := range h.subIDs {
		out = append(out, name)
	}
	return out
}

// -----------------------------------------------------------------------------

// WritePing sends a transport-level ping used as the liveness heartbeat.
func (h *ConnectionHandle) WritePing() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return h.conn.WriteMessage(websocket.PingMessage, nil)
}

// -----------------------------------------------------------------------------

// Close releases the socket. Safe to call more than once.
func (h *ConnectionHandle) Close() {
	h.conn.Close()
}
