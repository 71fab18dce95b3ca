package models

import "time"

// -----------------------------------------------------------------------------
// Wire and canonical event types
// -----------------------------------------------------------------------------

// MRawEvent is an opaque wire payload plus its receipt timestamp.
// Owned by the normalizer until parsed or discarded.
type MRawEvent struct {
	Payload    []byte
	ReceivedAt time.Time
}

// -----------------------------------------------------------------------------

// EventKind tags the canonical event variants.
type EventKind int

const (
	EventPriceTick EventKind = iota
	EventVolumeUpdate
	EventAccountChange
	EventHeartbeat
)

// -----------------------------------------------------------------------------

func (k EventKind) String() string {
	switch k {
	case EventPriceTick:
		return "price_tick"
	case EventVolumeUpdate:
		return "volume_update"
	case EventAccountChange:
		return "account_change"
	case EventHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------

// MMarketEvent is the canonical normalized event. Immutable once constructed.
// Slot carries the per-instrument monotonic sequence provided by the source;
// zero means the source supplied no sequencing for this event.
type MMarketEvent struct {
	Kind       EventKind `json:"kind"`
	Instrument string    `json:"instrument"`
	Slot       uint64    `json:"slot"`
	Timestamp  int64     `json:"timestamp"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	Liquidity  float64   `json:"liquidity"`
	Tick       int32     `json:"tick"`
}
