package server

import (
	"encoding/json"
	"net/http"

	"sol-terminal/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *TerminalServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			snap := s.latestSnap
			s.stateMutex.Unlock()

			// Send initial state on connect
			if snap != nil {
				client.send <- initialFor(snap, client.filter())
			}

		case client := <-s.unregister:
			s.stateMutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()

		case snap := <-s.broadcast:
			// Update cache and broadcast
			s.stateMutex.Lock()
			s.latestSnap = snap

			for client := range s.clients {
				select {
				case client.send <- filterSnapshot(snap, client.filter()):
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.stateMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Snapshot Sink Implementation
// -----------------------------------------------------------------------------

// Name identifies the sink in logs.
func (s *TerminalServer) Name() string {
	return "websocket-hub"
}

// OnSnapshot hands a published snapshot to the hub. Never blocks the
// publisher: if the queue is full the snapshot is dropped, the next tick
// delivers a fresher one anyway.
func (s *TerminalServer) OnSnapshot(snap *models.MSnapshot) {
	select {
	case s.broadcast <- snap:
	default:
		s.Logger.Warning("Broadcast queue full, dropping snapshot %d", snap.Sequence)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *TerminalServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MSnapshot, 256),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *TerminalServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	client.setFilter(clientFilter{
		instruments: cmd.Instruments,
		window:      cmd.Window,
	})

	s.stateMutex.RLock()
	snap := s.latestSnap
	s.stateMutex.RUnlock()

	if snap == nil {
		return
	}

	response := initialFor(snap, client.filter())

	// Use select to avoid blocking if client's send buffer is full
	select {
	case client.send <- response:
	default:
	}
}

// -----------------------------------------------------------------------------

// initialFor retypes a filtered snapshot as INITIAL for a newly (re)subscribed
// client. Always works on a copy: the published snapshot is shared and must
// never be modified.
func initialFor(snap *models.MSnapshot, f clientFilter) *models.MSnapshot {
	filtered := filterSnapshot(snap, f)
	if filtered == snap {
		copied := *snap
		filtered = &copied
	}
	filtered.Type = "INITIAL"
	return filtered
}

// -----------------------------------------------------------------------------
// Response Filtering
// -----------------------------------------------------------------------------

// filterSnapshot narrows a snapshot to the client's subscribed instruments
// and window. The original snapshot is shared and immutable, so every field
// the filter touches is rebuilt rather than modified.
func filterSnapshot(snap *models.MSnapshot, f clientFilter) *models.MSnapshot {
	if len(f.instruments) == 0 && f.window == "" {
		return snap
	}

	filtered := *snap
	filtered.Instruments = make(map[string]models.MAggregateState, len(snap.Instruments))

	for name, agg := range snap.Instruments {
		if len(f.instruments) > 0 && !contains(f.instruments, name) {
			continue
		}

		if f.window != "" {
			if stats, ok := agg.Windows[f.window]; ok {
				agg.Windows = map[string]models.MWindowStats{f.window: stats}
			} else {
				agg.Windows = map[string]models.MWindowStats{}
			}
		}

		filtered.Instruments[name] = agg
	}

	return &filtered
}

// -----------------------------------------------------------------------------

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
