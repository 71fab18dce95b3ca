package models

// RingBuffer indices and constants
const (
	RB_IDX_TIMESTAMP = 0
	RB_IDX_PRICE     = 1
	RB_IDX_VOLUME    = 2
	RB_NUM_FEATURES  = 3
)

// MSamplePoint is one timestamped price/volume sample stored in the
// per-instrument ring buffer.
type MSamplePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
}
