package connection

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"sol-terminal/src/helpers"
	"sol-terminal/src/logger"
	"sol-terminal/src/metrics"
	"sol-terminal/src/models"
	"sol-terminal/src/normalizer"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
)

const (
	// A session that survives this long is considered healthy and resets the
	// backoff ladder.
	stableSessionDuration = 30 * time.Second

	// Upstream frames larger than this end the session instead of being
	// buffered; same discipline as the limit imposed on dashboard clients.
	maxUpstreamFrameSize = 1024 * 1024
)

// -----------------------------------------------------------------------------
// Manager owns the PubSub WebSocket session lifecycle: dialing, subscribing,
// heartbeats and reconnection with capped exponential backoff. It implements
// interfaces.IEventSource. The reconnect state machine is explicit:
// Disconnected -> Reconnecting -> Connected, driven by timers and read errors.
// -----------------------------------------------------------------------------

type Manager struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Metrics *metrics.Metrics

	pools   []models.MPoolConfig
	norm    *normalizer.Normalizer
	breaker *gobreaker.CircuitBreaker

	status chan models.MConnectionStatus
	resub  chan string

	out         chan<- models.MMarketEvent
	cancelFunc  context.CancelFunc
	running     atomic.Bool
	reconnects  int
	parseErrors atomic.Uint64
}

// -----------------------------------------------------------------------------

func NewManager(cfg *models.MConfig, pools []models.MPoolConfig, norm *normalizer.Normalizer, m *metrics.Metrics, log *logger.Logger) *Manager {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "solana-ws-dial",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Manager{
		Config:  cfg,
		Logger:  log,
		Metrics: m,
		pools:   pools,
		norm:    norm,
		breaker: breaker,
		status:  make(chan models.MConnectionStatus, 16),
		resub:   make(chan string, 16),
	}
}

// -----------------------------------------------------------------------------

// Name returns the source identifier.
func (m *Manager) Name() string {
	return "solana-pubsub"
}

// -----------------------------------------------------------------------------

// Status returns the connection-state event channel consumed by the monitor.
func (m *Manager) Status() <-chan models.MConnectionStatus {
	return m.status
}

// ParseErrors reports the number of malformed wire messages dropped so far.
func (m *Manager) ParseErrors() uint64 {
	return m.parseErrors.Load()
}

// -----------------------------------------------------------------------------

// Resubscribe asks the live session to re-issue one instrument's
// subscription. Never blocks; a full queue means a resubscribe is already
// pending.
func (m *Manager) Resubscribe(instrument string) error {
	select {
	case m.resub <- instrument:
	default:
	}
	return nil
}

// -----------------------------------------------------------------------------

// Start launches the connection loop.
func (m *Manager) Start(ctx context.Context, out chan<- models.MMarketEvent, wg *sync.WaitGroup) error {
	if !m.running.CompareAndSwap(false, true) {
		return helpers.NewConnectionError(m.Config.Connection.WSEndpoint, nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	m.out = out

	go func() {
		defer wg.Done()
		defer m.running.Store(false)
		m.run(runCtx)
	}()

	return nil
}

// -----------------------------------------------------------------------------

// Stop terminates the connection loop.
func (m *Manager) Stop() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}

// -----------------------------------------------------------------------------

func (m *Manager) run(ctx context.Context) {
	attempt := 0

	for {
		if ctx.Err() != nil {
			m.emitStatus(models.StateDisconnected, "")
			return
		}

		started := time.Now()
		err := m.session(ctx)
		if ctx.Err() != nil {
			m.emitStatus(models.StateDisconnected, "")
			return
		}

		// A long-lived session means the venue was healthy; restart the ladder.
		if time.Since(started) >= stableSessionDuration {
			attempt = 0
		}
		attempt++
		m.reconnects++
		if m.Metrics != nil {
			m.Metrics.Reconnects.Inc()
		}

		errText := ""
		if err != nil {
			errText = err.Error()
		}
		m.emitStatus(models.StateReconnecting, errText)

		delay := m.BackoffDelay(attempt)
		m.Logger.Warning("Connection lost (%v), reconnecting in %v (attempt %d)", err, delay, attempt)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			m.emitStatus(models.StateDisconnected, "")
			return
		}
	}
}

// -----------------------------------------------------------------------------

// BackoffDelay returns the reconnect delay for the given attempt (1-based):
// exponential growth from the configured base, capped at the configured
// maximum, plus a random jitter fraction to avoid thundering herds.
func (m *Manager) BackoffDelay(attempt int) time.Duration {
	base := time.Duration(m.Config.Connection.ReconnectBaseMillis) * time.Millisecond
	max := time.Duration(m.Config.Connection.ReconnectMaxMillis) * time.Millisecond

	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	if delay > max {
		delay = max
	}

	jitter := m.Config.Connection.ReconnectJitter
	if jitter > 0 {
		delay += time.Duration(rand.Float64() * jitter * float64(delay))
	}

	return delay
}

// -----------------------------------------------------------------------------

// session runs one connect/subscribe/read cycle and returns when the
// connection dies or the context is cancelled.
func (m *Manager) session(ctx context.Context) error {
	endpoint := m.Config.Connection.WSEndpoint
	heartbeat := time.Duration(m.Config.Connection.HeartbeatIntervalSeconds) * time.Second
	readDeadline := heartbeat*2 + 5*time.Second

	// The breaker keeps a flapping endpoint from being hammered.
	dialed, err := m.breaker.Execute(func() (interface{}, error) {
		dialer := websocket.Dialer{
			HandshakeTimeout: time.Duration(m.Config.Connection.HandshakeTimeoutSeconds) * time.Second,
		}
		conn, _, err := dialer.DialContext(ctx, endpoint, nil)
		return conn, err
	})
	if err != nil {
		m.emitStatus(models.StateDisconnected, err.Error())
		return helpers.NewConnectionError(endpoint, err)
	}
	conn := dialed.(*websocket.Conn)

	handle := newConnectionHandle(conn, m.Config.Connection.Commitment)
	defer handle.Close()

	// Fresh session, fresh normalizer state.
	m.norm.Reset()
	m.norm.SetSubscriptionResolver(handle.Resolve)
	m.norm.SetAckHandler(func(requestID uint64, result json.RawMessage, rpcErr *normalizer.RPCError) {
		instrument, ackErr := handle.HandleAck(requestID, result, rpcErr)
		if ackErr != nil {
			// Surfaced, not retried until the next session.
			m.Logger.Error("Subscription rejected: %v", ackErr)
			m.emitStatus(models.StateConnected, ackErr.Error())
			return
		}
		if instrument != "" {
			m.Logger.Debug("Subscription confirmed for %s", instrument)
		}
	})

	conn.SetReadLimit(maxUpstreamFrameSize)
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		m.pushEvent(ctx, models.MMarketEvent{
			Kind:      models.EventHeartbeat,
			Timestamp: time.Now().Unix(),
		})
		return nil
	})

	// Resubscribe the full instrument set on every (re)connection.
	for _, pool := range m.pools {
		if err := handle.SendSubscribe(pool); err != nil {
			m.emitStatus(models.StateDisconnected, err.Error())
			return helpers.NewConnectionError(endpoint, err)
		}
	}

	m.emitStatus(models.StateConnected, "")
	m.Logger.Info("Connected to %s, subscribed to %d pools", endpoint, len(m.pools))

	frames := make(chan []byte, 64)
	readErr := make(chan error, 1)
	// Closed when the session ends for any reason, so the read goroutine can
	// never stay parked on a full frames buffer.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- data:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	pingTicker := time.NewTicker(heartbeat)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			return helpers.NewConnectionError(endpoint, err)

		case data := <-frames:
			m.handleFrame(ctx, data)

		case <-pingTicker.C:
			if err := handle.WritePing(); err != nil {
				return helpers.NewConnectionError(endpoint, err)
			}

		case instrument := <-m.resub:
			m.resubscribe(handle, instrument)
		}
	}
}

// -----------------------------------------------------------------------------

func (m *Manager) handleFrame(ctx context.Context, data []byte) {
	raw := models.MRawEvent{Payload: data, ReceivedAt: time.Now()}

	events, err := m.norm.Normalize(raw)
	if err != nil {
		m.parseErrors.Add(1)
		if m.Metrics != nil {
			m.Metrics.ParseErrors.Inc()
		}
		m.Logger.Warning("Dropping malformed message: %v", err)
	}

	for _, ev := range events {
		if m.Metrics != nil {
			m.Metrics.EventsIngested.WithLabelValues(ev.Kind.String()).Inc()
		}
		m.pushEvent(ctx, ev)
	}
}

// -----------------------------------------------------------------------------

func (m *Manager) pushEvent(ctx context.Context, ev models.MMarketEvent) {
	select {
	case m.out <- ev:
	case <-ctx.Done():
	}
}

// -----------------------------------------------------------------------------

func (m *Manager) resubscribe(handle *ConnectionHandle, instrument string) {
	for _, pool := range m.pools {
		if pool.Name != instrument {
			continue
		}
		if err := handle.SendUnsubscribe(instrument); err != nil {
			m.Logger.Warning("Unsubscribe for %s failed: %v", instrument, err)
		}
		if err := handle.SendSubscribe(pool); err != nil {
			m.Logger.Error("Resubscribe for %s failed: %v", instrument, err)
		} else {
			m.Logger.Info("Resubscribed %s after staleness report", instrument)
		}
		return
	}
	m.Logger.Warning("Resubscribe requested for unknown instrument %s", instrument)
}

// -----------------------------------------------------------------------------

func (m *Manager) emitStatus(state models.MConnectionState, lastError string) {
	if m.Metrics != nil {
		m.Metrics.ConnectionState.Set(float64(state))
	}

	st := models.MConnectionStatus{
		State:      state,
		Endpoint:   m.Config.Connection.WSEndpoint,
		Reconnects: m.reconnects,
		LastError:  lastError,
	}
	if state == models.StateConnected {
		st.ConnectedAt = time.Now().Unix()
	}

	// Status consumers sample state; dropping under backpressure is fine.
	select {
	case m.status <- st:
	default:
	}
}
