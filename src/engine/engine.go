package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"sol-terminal/src/analysis/core"
	"sol-terminal/src/helpers"
	"sol-terminal/src/logger"
	"sol-terminal/src/metrics"
	"sol-terminal/src/models"
	"sol-terminal/src/utils"
)

// -----------------------------------------------------------------------------
// Engine owns all per-instrument aggregate state. It is a single-goroutine
// actor: events and snapshot requests arrive on channels, so no state needs a
// mutex. Readers only ever see copies built by BuildStates.
// -----------------------------------------------------------------------------

type Engine struct {
	Logger  *logger.Logger
	Metrics *metrics.Metrics

	cfg     models.MAggregationConfig
	windows map[string]int64 // window name -> seconds

	instruments map[string]*instrumentState

	snapReq chan snapshotRequest

	eventsApplied  uint64
	eventsRejected uint64

	cancelFunc context.CancelFunc
}

// instrumentState is the loop-owned mutable record for one pool.
type instrumentState struct {
	pool models.MPoolConfig
	agg  models.MAggregateState
	ring *utils.RingBuffer

	candles   map[string]*models.MCandle
	prevClose map[string]float64

	// Highest slot applied per event kind. One account notification fans out
	// into several kinds at the same slot, so dedup must be per kind.
	lastSlotByKind map[models.EventKind]uint64
}

type snapshotRequest struct {
	now   int64
	reply chan snapshotResult
}

type snapshotResult struct {
	states   map[string]models.MAggregateState
	applied  uint64
	rejected uint64
}

// -----------------------------------------------------------------------------

func NewEngine(cfg *models.MConfig, windows map[string]int64, m *metrics.Metrics, log *logger.Logger) *Engine {
	e := &Engine{
		Logger:      log,
		Metrics:     m,
		cfg:         cfg.Aggregation,
		windows:     windows,
		instruments: make(map[string]*instrumentState),
		snapReq:     make(chan snapshotRequest),
	}

	capacity := cfg.Aggregation.RingCapacity
	if capacity <= 0 {
		capacity = utils.CalculateRingCapacity(windows)
	}

	// Instruments are fixed at startup; events for anything else are rejected.
	for _, pool := range cfg.Pools {
		if !pool.Enabled {
			continue
		}
		e.instruments[pool.Name] = &instrumentState{
			pool: pool,
			agg: models.MAggregateState{
				Instrument: pool.Name,
				Pair:       pool.Pair,
				Dex:        pool.Dex,
				Windows:    make(map[string]models.MWindowStats),
			},
			ring:           utils.NewRingBuffer(capacity),
			candles:        make(map[string]*models.MCandle),
			prevClose:      make(map[string]float64),
			lastSlotByKind: make(map[models.EventKind]uint64),
		}
	}

	return e
}

// -----------------------------------------------------------------------------

// Start launches the actor loop consuming normalized events from in.
func (e *Engine) Start(ctx context.Context, in <-chan models.MMarketEvent, wg *sync.WaitGroup) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancelFunc = cancel

	go func() {
		defer wg.Done()
		e.run(runCtx, in)
	}()

	return nil
}

// Stop terminates the actor loop.
func (e *Engine) Stop() error {
	if e.cancelFunc != nil {
		e.cancelFunc()
	}
	return nil
}

// -----------------------------------------------------------------------------

func (e *Engine) run(ctx context.Context, in <-chan models.MMarketEvent) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-in:
			if err := e.Apply(ev); err != nil {
				e.Logger.Debug("Event rejected: %v", err)
			}

		case req := <-e.snapReq:
			req.reply <- snapshotResult{
				states:   e.BuildStates(req.now),
				applied:  e.eventsApplied,
				rejected: e.eventsRejected,
			}
		}
	}
}

// -----------------------------------------------------------------------------

// States returns a consistent copy of all aggregate states plus the
// throughput counters. Safe to call from any goroutine while the loop runs.
func (e *Engine) States(ctx context.Context, now int64) (map[string]models.MAggregateState, uint64, uint64, error) {
	req := snapshotRequest{now: now, reply: make(chan snapshotResult, 1)}

	select {
	case e.snapReq <- req:
	case <-ctx.Done():
		return nil, 0, 0, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.states, res.applied, res.rejected, nil
	case <-ctx.Done():
		return nil, 0, 0, ctx.Err()
	}
}

// -----------------------------------------------------------------------------

// Apply folds one event into the owning instrument's state. Must only be
// called from the actor goroutine (or before Start). Duplicate and
// out-of-order events are rejected per instrument and kind: an event whose
// slot is at or below the last applied slot of the same kind changes nothing.
func (e *Engine) Apply(ev models.MMarketEvent) error {
	if ev.Kind == models.EventHeartbeat {
		return nil // liveness only, carries no market state
	}

	st, ok := e.instruments[ev.Instrument]
	if !ok {
		e.reject()
		return helpers.NewAggregationError(ev.Instrument, ev.Slot, "instrument is not configured")
	}

	// Slot zero means the source supplied no sequencing; accept as-is.
	if ev.Slot != 0 {
		if last := st.lastSlotByKind[ev.Kind]; ev.Slot <= last {
			e.reject()
			return helpers.NewAggregationError(ev.Instrument, ev.Slot, "duplicate or out-of-order event")
		}
		st.lastSlotByKind[ev.Kind] = ev.Slot
	}

	switch ev.Kind {
	case models.EventPriceTick:
		e.applyPriceTick(st, ev)
	case models.EventVolumeUpdate:
		e.applyVolumeUpdate(st, ev)
	case models.EventAccountChange:
		e.applyAccountChange(st, ev)
	}

	st.agg.LastUpdate = ev.Timestamp
	st.agg.UpdatedAt = time.Now()
	e.eventsApplied++

	return nil
}

// -----------------------------------------------------------------------------

func (e *Engine) applyPriceTick(st *instrumentState, ev models.MMarketEvent) {
	st.agg.LastPrice = ev.Price
	if ev.Slot > st.agg.LastSlot {
		st.agg.LastSlot = ev.Slot
	}
	st.agg.LastTick = ev.Tick
	if ev.Liquidity > 0 {
		st.agg.Liquidity = ev.Liquidity
	}

	st.ring.Append(models.MSamplePoint{
		Timestamp: ev.Timestamp,
		Price:     ev.Price,
		Volume:    ev.Volume,
	})

	e.updateCandles(st, ev.Timestamp, ev.Price)
}

// -----------------------------------------------------------------------------

func (e *Engine) applyVolumeUpdate(st *instrumentState, ev models.MMarketEvent) {
	st.agg.CumulativeVolume += ev.Volume

	// Volume lands in whichever bar the event's timestamp falls into.
	for name := range e.windows {
		if candle := st.candles[name]; candle != nil && ev.Timestamp >= candle.StartTime && ev.Timestamp < candle.EndTime {
			candle.Volume += ev.Volume
		}
	}
}

// -----------------------------------------------------------------------------

func (e *Engine) applyAccountChange(st *instrumentState, ev models.MMarketEvent) {
	if ev.Liquidity > 0 {
		st.agg.Liquidity = ev.Liquidity
	}
	st.agg.LastTick = ev.Tick
	if ev.Slot > st.agg.LastSlot {
		st.agg.LastSlot = ev.Slot
	}
}

// -----------------------------------------------------------------------------

// updateCandles rolls or extends the live bar of every configured window.
func (e *Engine) updateCandles(st *instrumentState, ts int64, price float64) {
	for name, secs := range e.windows {
		bucket := ts - ts%secs
		candle := st.candles[name]

		if candle == nil || candle.StartTime != bucket {
			open := price
			if candle != nil {
				st.prevClose[name] = candle.Close
				open = candle.Close
			}
			st.candles[name] = &models.MCandle{
				StartTime: bucket,
				EndTime:   bucket + secs,
				Open:      open,
				High:      math.Max(open, price),
				Low:       math.Min(open, price),
				Close:     price,
			}
			continue
		}

		if price > candle.High {
			candle.High = price
		}
		if price < candle.Low {
			candle.Low = price
		}
		candle.Close = price
	}
}

// -----------------------------------------------------------------------------

// BuildStates materializes a read-only copy of every instrument's aggregate
// state as of now (unix seconds), computing the rolling window statistics
// from the retained samples. Must only be called from the actor goroutine
// (or via States).
func (e *Engine) BuildStates(now int64) map[string]models.MAggregateState {
	threshold := int64(e.cfg.StalenessThresholdSeconds)

	out := make(map[string]models.MAggregateState, len(e.instruments))
	for name, st := range e.instruments {
		agg := st.agg // value copy
		agg.Windows = make(map[string]models.MWindowStats, len(e.windows))

		for windowName, secs := range e.windows {
			agg.Windows[windowName] = e.buildWindowStats(st, windowName, now-secs)
		}

		agg.PriceChange24h = e.change24h(st, now)
		agg.Stale = threshold > 0 && agg.LastUpdate > 0 && now-agg.LastUpdate > threshold

		out[name] = agg
	}

	return out
}

// -----------------------------------------------------------------------------

func (e *Engine) buildWindowStats(st *instrumentState, windowName string, since int64) models.MWindowStats {
	stats := models.MWindowStats{WindowName: windowName}

	if candle := st.candles[windowName]; candle != nil {
		stats.Candle = *candle
	}

	samples := st.ring.GetSince(since)
	stats.DataPoints = len(samples)
	if len(samples) == 0 {
		return stats
	}

	prices := make([]float64, len(samples))
	volumes := make([]float64, len(samples))
	var windowVolume float64
	for i, s := range samples {
		prices[i] = s.Price
		volumes[i] = s.Volume
		windowVolume += s.Volume
	}

	mean, variance := core.WelfordMeanVariance(prices)
	stats.Mean = mean
	stats.Variance = variance
	stats.StdDev = math.Sqrt(variance)
	stats.Min, stats.Max = core.MinMax(prices)
	stats.Volume = windowVolume
	stats.PricePercentChange = core.CalculateChangePercent(prices[len(prices)-1], prices[0])
	stats.PriceVolumeCorrelation = core.CalculateCorrelation(prices, volumes)

	// Baseline for the anomaly ratio is the mean per-sample volume over the
	// whole retained history, scaled to the window's sample count.
	all := st.ring.GetAll()
	var totalVolume float64
	for _, s := range all {
		totalVolume += s.Volume
	}
	if len(all) > 0 {
		expected := totalVolume / float64(len(all)) * float64(len(samples))
		stats.VolumeAnomalyRatio = core.CalculateAnomalyRatio(windowVolume, expected)
	}

	return stats
}

// -----------------------------------------------------------------------------

func (e *Engine) change24h(st *instrumentState, now int64) float64 {
	samples := st.ring.GetSince(now - 24*3600)
	if len(samples) < 2 {
		return 0
	}
	return core.CalculateChangePercent(samples[len(samples)-1].Price, samples[0].Price)
}

// -----------------------------------------------------------------------------

func (e *Engine) reject() {
	e.eventsRejected++
	if e.Metrics != nil {
		e.Metrics.EventsRejected.Inc()
	}
}
