package models

import "time"

// -----------------------------------------------------------------------------

// MCandle is one time-aligned OHLCV bar.
type MCandle struct {
	StartTime int64   `json:"start_time"`
	EndTime   int64   `json:"end_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// -----------------------------------------------------------------------------

// MWindowStats holds rolling statistics for one configured time window.
type MWindowStats struct {
	WindowName             string  `json:"window_name"` // e.g., "1m", "5m"
	DataPoints             int     `json:"data_points"`
	Mean                   float64 `json:"mean"`
	Variance               float64 `json:"variance"`
	StdDev                 float64 `json:"std_dev"`
	Min                    float64 `json:"min"`
	Max                    float64 `json:"max"`
	Volume                 float64 `json:"volume"`
	PricePercentChange     float64 `json:"price_percent_change"`
	PriceVolumeCorrelation float64 `json:"price_volume_correlation"`
	VolumeAnomalyRatio     float64 `json:"volume_anomaly_ratio"`
	Candle                 MCandle `json:"candle"`
}

// -----------------------------------------------------------------------------

// MAggregateState is the per-instrument mutable record. It is exclusively
// owned and mutated by the aggregation engine; everything handed to readers
// is a copy inside an MSnapshot.
type MAggregateState struct {
	Instrument       string                  `json:"instrument"`
	Pair             string                  `json:"pair"`
	Dex              string                  `json:"dex"`
	LastPrice        float64                 `json:"last_price"`
	LastSlot         uint64                  `json:"last_slot"`
	LastTick         int32                   `json:"last_tick"`
	Liquidity        float64                 `json:"liquidity"`
	CumulativeVolume float64                 `json:"cumulative_volume"`
	PriceChange24h   float64                 `json:"price_change_24h"`
	Windows          map[string]MWindowStats `json:"windows"`
	LastUpdate       int64                   `json:"last_update"`
	Stale            bool                    `json:"stale"`
	UpdatedAt        time.Time               `json:"updated_at"`
}
