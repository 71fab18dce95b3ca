package publisher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"sol-terminal/src/analysis"
	"sol-terminal/src/engine"
	"sol-terminal/src/interfaces"
	"sol-terminal/src/logger"
	"sol-terminal/src/metrics"
	"sol-terminal/src/models"
	"sol-terminal/src/monitor"
)

// ParseErrorFunc reports the cumulative malformed-message count of the
// ingestion side.
type ParseErrorFunc func() uint64

// -----------------------------------------------------------------------------
// Publisher assembles immutable snapshots on a fixed cadence and hands them
// to consumers. Publication is a single atomic pointer swap: a reader either
// sees the previous complete snapshot or the new complete snapshot, never a
// partially built one.
// -----------------------------------------------------------------------------

type Publisher struct {
	Logger  *logger.Logger
	Metrics *metrics.Metrics

	engine  *engine.Engine
	monitor *monitor.Monitor
	arb     *analysis.ArbitrageDetector

	interval    time.Duration
	parseErrors ParseErrorFunc

	mu    sync.Mutex
	sinks []interfaces.ISnapshotSink

	latest     atomic.Pointer[models.MSnapshot]
	sequence   atomic.Uint64
	cancelFunc context.CancelFunc
}

// -----------------------------------------------------------------------------

func NewPublisher(eng *engine.Engine, mon *monitor.Monitor, arb *analysis.ArbitrageDetector, intervalMillis int, parseErrors ParseErrorFunc, m *metrics.Metrics, log *logger.Logger) *Publisher {
	if intervalMillis <= 0 {
		intervalMillis = 1000
	}
	return &Publisher{
		Logger:      log,
		Metrics:     m,
		engine:      eng,
		monitor:     mon,
		arb:         arb,
		interval:    time.Duration(intervalMillis) * time.Millisecond,
		parseErrors: parseErrors,
	}
}

// -----------------------------------------------------------------------------

// AddSink registers a snapshot consumer. Must be called before Start.
func (p *Publisher) AddSink(sink interfaces.ISnapshotSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, sink)
}

// -----------------------------------------------------------------------------

// Latest returns the most recently published snapshot, or nil before the
// first publication. The returned snapshot is immutable and safe to share.
func (p *Publisher) Latest() *models.MSnapshot {
	return p.latest.Load()
}

// -----------------------------------------------------------------------------

// Start launches the publication ticker.
func (p *Publisher) Start(ctx context.Context, wg *sync.WaitGroup) error {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancelFunc = cancel

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := p.Publish(runCtx); err != nil && runCtx.Err() == nil {
					p.Logger.Error("Snapshot publication failed: %v", err)
				}
			}
		}
	}()

	return nil
}

// Stop terminates the publication ticker.
func (p *Publisher) Stop() error {
	if p.cancelFunc != nil {
		p.cancelFunc()
	}
	return nil
}

// -----------------------------------------------------------------------------

// Publish builds one snapshot from current engine state and publishes it.
func (p *Publisher) Publish(ctx context.Context) error {
	started := time.Now()
	now := started.Unix()

	states, applied, rejected, err := p.engine.States(ctx, now)
	if err != nil {
		return err
	}

	var conditions []models.MCondition
	var connection models.MConnectionStatus
	if p.monitor != nil {
		conditions = p.monitor.Evaluate(states, now)
		connection = p.monitor.ConnectionStatus()
	}

	var opportunities []models.MArbitrageOpportunity
	if p.arb != nil {
		opportunities = p.arb.Detect(states, now)
	}

	var parseErrs uint64
	if p.parseErrors != nil {
		parseErrs = p.parseErrors()
	}

	seq := p.sequence.Add(1)
	snapType := "UPDATE"
	if seq == 1 {
		snapType = "INITIAL"
	}

	snap := &models.MSnapshot{
		Type:          snapType,
		Sequence:      seq,
		Timestamp:     now,
		Instruments:   states,
		Connection:    connection,
		Conditions:    conditions,
		Opportunities: opportunities,
		Metrics: models.MProcessingMetrics{
			EventsApplied:    applied,
			EventsRejected:   rejected,
			ParseErrors:      parseErrs,
			BuildTimeSeconds: time.Since(started).Seconds(),
		},
	}

	p.latest.Store(snap)
	if p.Metrics != nil {
		p.Metrics.SnapshotsPublished.Inc()
	}

	p.mu.Lock()
	sinks := make([]interfaces.ISnapshotSink, len(p.sinks))
	copy(sinks, p.sinks)
	p.mu.Unlock()

	for _, sink := range sinks {
		sink.OnSnapshot(snap)
	}

	return nil
}
