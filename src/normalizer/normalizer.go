package normalizer

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"math"

	"sol-terminal/src/dex/whirlpool"
	"sol-terminal/src/helpers"
	"sol-terminal/src/logger"
	"sol-terminal/src/models"
)

// -----------------------------------------------------------------------------
// Wire message shapes (Solana PubSub JSON-RPC)
// -----------------------------------------------------------------------------

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcMessage struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type accountNotification struct {
	Subscription uint64 `json:"subscription"`
	Result       struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Data     []string `json:"data"` // [payload, encoding]
			Lamports uint64   `json:"lamports"`
		} `json:"value"`
	} `json:"result"`
}

// -----------------------------------------------------------------------------

// AckHandler receives responses to subscribe/unsubscribe requests. result is
// nil when rpcErr is set.
type AckHandler func(requestID uint64, result json.RawMessage, rpcErr *RPCError)

// SubscriptionResolver maps a live subscription id back to its pool.
type SubscriptionResolver func(subscriptionID uint64) (models.MPoolConfig, bool)

// -----------------------------------------------------------------------------
// Normalizer parses raw wire payloads into canonical market events. One
// instance per connection session; the only state it keeps is the reassembly
// buffer for fragmented payloads and the last-seen liquidity per instrument
// (for volume deltas). Never shared across connections.
// -----------------------------------------------------------------------------

type Normalizer struct {
	Logger *logger.Logger

	resolve    SubscriptionResolver
	ackHandler AckHandler

	buf           bytes.Buffer
	lastLiquidity map[string]float64
}

// -----------------------------------------------------------------------------

func NewNormalizer(log *logger.Logger) *Normalizer {
	return &Normalizer{
		Logger:        log,
		lastLiquidity: make(map[string]float64),
	}
}

// -----------------------------------------------------------------------------

// SetSubscriptionResolver wires the connection's subscription-id mapping.
func (n *Normalizer) SetSubscriptionResolver(r SubscriptionResolver) {
	n.resolve = r
}

// SetAckHandler wires the connection's request/response bookkeeping.
func (n *Normalizer) SetAckHandler(h AckHandler) {
	n.ackHandler = h
}

// -----------------------------------------------------------------------------

// Reset clears all per-session state. Must be called when the underlying
// connection is replaced: buffered fragments and liquidity baselines from a
// dead session are meaningless on the new one.
func (n *Normalizer) Reset() {
	n.buf.Reset()
	n.lastLiquidity = make(map[string]float64)
}

// -----------------------------------------------------------------------------

// Normalize consumes one raw payload and returns every complete canonical
// event it yields. Partial payloads are buffered until a complete JSON value
// boundary is seen. A malformed message aborts the rest of the buffer and
// returns a ParseError; events decoded before the fault are still returned.
func (n *Normalizer) Normalize(raw models.MRawEvent) ([]models.MMarketEvent, error) {
	n.buf.Write(raw.Payload)

	var events []models.MMarketEvent

	for {
		data := n.buf.Bytes()
		if len(bytes.TrimSpace(data)) == 0 {
			n.buf.Reset()
			return events, nil
		}

		dec := json.NewDecoder(bytes.NewReader(data))
		var msg rpcMessage
		if err := dec.Decode(&msg); err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				// Incomplete message; wait for the next fragment.
				return events, nil
			}
			// Malformed input: the buffer cannot be trusted past this point.
			n.buf.Reset()
			return events, helpers.NewParseError("malformed wire message", err)
		}

		// Drop the consumed bytes, keep the remainder buffered.
		consumed := dec.InputOffset()
		rest := make([]byte, len(data)-int(consumed))
		copy(rest, data[consumed:])
		n.buf.Reset()
		n.buf.Write(rest)

		evs, err := n.parseMessage(&msg, raw)
		events = append(events, evs...)
		if err != nil {
			return events, err
		}
	}
}

// -----------------------------------------------------------------------------

func (n *Normalizer) parseMessage(msg *rpcMessage, raw models.MRawEvent) ([]models.MMarketEvent, error) {
	// Responses to our own requests (subscription acks, errors)
	if msg.ID != nil {
		if n.ackHandler != nil {
			n.ackHandler(*msg.ID, msg.Result, msg.Error)
		}
		return nil, nil
	}

	switch msg.Method {
	case "accountNotification":
		return n.parseAccountNotification(msg.Params, raw)
	case "":
		return nil, helpers.NewParseError("wire message has neither id nor method", nil)
	default:
		// Unknown push types are dropped, never fatal.
		n.Logger.Warning("Dropping unknown message type: %s", msg.Method)
		return nil, nil
	}
}

// -----------------------------------------------------------------------------

func (n *Normalizer) parseAccountNotification(params json.RawMessage, raw models.MRawEvent) ([]models.MMarketEvent, error) {
	var notif accountNotification
	if err := json.Unmarshal(params, &notif); err != nil {
		return nil, helpers.NewParseError("malformed accountNotification params", err)
	}

	if n.resolve == nil {
		return nil, helpers.NewParseError("no subscription resolver configured", nil)
	}
	pool, ok := n.resolve(notif.Subscription)
	if !ok {
		n.Logger.Warning("Notification for unknown subscription %d, dropping", notif.Subscription)
		return nil, nil
	}

	if len(notif.Result.Value.Data) == 0 {
		return nil, helpers.NewParseError("accountNotification missing account data", nil)
	}
	accountData, err := base64.StdEncoding.DecodeString(notif.Result.Value.Data[0])
	if err != nil {
		return nil, helpers.NewParseError("account data is not valid base64", err)
	}

	state, err := whirlpool.Decode(accountData)
	if err != nil {
		return nil, helpers.NewParseError("account data is not a whirlpool account", err)
	}

	price := whirlpool.PriceFromState(state, pool.DecimalsA, pool.DecimalsB)
	liquidity := state.Liquidity.Float64()
	slot := notif.Result.Context.Slot
	ts := raw.ReceivedAt.Unix()

	// Liquidity delta is the best volume proxy an account stream offers.
	var volume float64
	if last, seen := n.lastLiquidity[pool.Name]; seen {
		volume = math.Abs(liquidity - last)
	}
	n.lastLiquidity[pool.Name] = liquidity

	events := []models.MMarketEvent{
		{
			Kind:       models.EventPriceTick,
			Instrument: pool.Name,
			Slot:       slot,
			Timestamp:  ts,
			Price:      price,
			Volume:     volume,
			Liquidity:  liquidity,
			Tick:       state.TickCurrentIndex,
		},
	}

	if volume > 0 {
		events = append(events, models.MMarketEvent{
			Kind:       models.EventVolumeUpdate,
			Instrument: pool.Name,
			Slot:       slot,
			Timestamp:  ts,
			Volume:     volume,
		})
	}

	events = append(events, models.MMarketEvent{
		Kind:       models.EventAccountChange,
		Instrument: pool.Name,
		Slot:       slot,
		Timestamp:  ts,
		Price:      price,
		Liquidity:  liquidity,
		Tick:       state.TickCurrentIndex,
	})

	return events, nil
}
