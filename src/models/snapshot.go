package models

// -----------------------------------------------------------------------------
// Connection state machine
// -----------------------------------------------------------------------------

type MConnectionState int

const (
	StateDisconnected MConnectionState = iota
	StateReconnecting
	StateConnected
)

func (s MConnectionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// MConnectionStatus is the externally visible state of one streaming session.
type MConnectionStatus struct {
	State       MConnectionState `json:"state"`
	Endpoint    string           `json:"endpoint"`
	ConnectedAt int64            `json:"connected_at"`
	Reconnects  int              `json:"reconnects"`
	LastError   string           `json:"last_error,omitempty"`
}

// -----------------------------------------------------------------------------
// Fault conditions
// -----------------------------------------------------------------------------

const (
	ConditionStaleInstrument = "stale_instrument"
	ConditionConnectionDown  = "connection_down"
)

// MCondition is a fault reported as state, never as an exception.
type MCondition struct {
	Kind       string `json:"kind"`
	Instrument string `json:"instrument,omitempty"`
	Since      int64  `json:"since"`
	Detail     string `json:"detail"`
}

// -----------------------------------------------------------------------------
// Arbitrage
// -----------------------------------------------------------------------------

// MArbitrageOpportunity is a detected cross-DEX spread for one token pair.
type MArbitrageOpportunity struct {
	Pair             string  `json:"pair"`
	BuyDex           string  `json:"buy_dex"`
	SellDex          string  `json:"sell_dex"`
	BuyPrice         float64 `json:"buy_price"`
	SellPrice        float64 `json:"sell_price"`
	ProfitPercentage float64 `json:"profit_percentage"`
	ConfidenceScore  float64 `json:"confidence_score"`
	Timestamp        int64   `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// Snapshot
// -----------------------------------------------------------------------------

// MProcessingMetrics summarizes pipeline throughput since startup.
type MProcessingMetrics struct {
	EventsApplied    uint64  `json:"events_applied"`
	EventsRejected   uint64  `json:"events_rejected"`
	ParseErrors      uint64  `json:"parse_errors"`
	BuildTimeSeconds float64 `json:"build_time_seconds"`
}

// MSnapshot is an immutable, atomically published copy of all aggregate
// state. Never mutated after publication; shared by reference across readers.
type MSnapshot struct {
	Type          string                     `json:"type"` // "INITIAL" or "UPDATE"
	Sequence      uint64                     `json:"sequence"`
	Timestamp     int64                      `json:"timestamp"`
	Instruments   map[string]MAggregateState `json:"instruments"`
	Connection    MConnectionStatus          `json:"connection"`
	Conditions    []MCondition               `json:"conditions"`
	Opportunities []MArbitrageOpportunity    `json:"opportunities"`
	Metrics       MProcessingMetrics         `json:"processing_metrics"`
}

// -----------------------------------------------------------------------------

// MSubscribeCommand for dashboard client messages
type MSubscribeCommand struct {
	Command     string   `json:"command"`
	ClientType  string   `json:"clientType"`
	Instruments []string `json:"instruments"`
	Window      string   `json:"window"`
}
