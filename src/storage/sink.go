package storage

import (
	"context"
	"sync"
	"time"

	"sol-terminal/src/interfaces"
	"sol-terminal/src/logger"
	"sol-terminal/src/models"
)

const cleanupInterval = time.Hour

// -----------------------------------------------------------------------------
// Sink persists published snapshots asynchronously. The publisher hands
// snapshots over a buffered channel and never waits on the database: when the
// writer falls behind, snapshots are dropped and the next one carries the
// fresher state anyway.
// -----------------------------------------------------------------------------

type Sink struct {
	Logger *logger.Logger

	db interfaces.IDatabase
	ch chan *models.MSnapshot

	cancelFunc context.CancelFunc
}

// -----------------------------------------------------------------------------

func NewSink(db interfaces.IDatabase, log *logger.Logger) *Sink {
	return &Sink{
		Logger: log,
		db:     db,
		ch:     make(chan *models.MSnapshot, 32),
	}
}

// -----------------------------------------------------------------------------

// Name identifies the sink in logs.
func (s *Sink) Name() string {
	return "storage"
}

// -----------------------------------------------------------------------------

// OnSnapshot queues one snapshot for persistence. Never blocks.
func (s *Sink) OnSnapshot(snap *models.MSnapshot) {
	select {
	case s.ch <- snap:
	default:
		s.Logger.Warning("Storage queue full, dropping snapshot %d", snap.Sequence)
	}
}

// -----------------------------------------------------------------------------

// Start launches the writer goroutine.
func (s *Sink) Start(ctx context.Context, wg *sync.WaitGroup) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	go func() {
		defer wg.Done()

		cleanup := time.NewTicker(cleanupInterval)
		defer cleanup.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case snap := <-s.ch:
				s.persist(snap)
			case <-cleanup.C:
				if err := s.db.CleanupOldData(); err != nil {
					s.Logger.Error("Retention cleanup failed: %v", err)
				}
			}
		}
	}()

	return nil
}

// Stop terminates the writer goroutine.
func (s *Sink) Stop() error {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *Sink) persist(snap *models.MSnapshot) {
	if err := s.db.SaveAggregates(snap.Instruments); err != nil {
		s.Logger.Error("Failed to persist aggregates: %v", err)
		return
	}

	// One sample row per instrument per snapshot; the (instrument, timestamp)
	// key collapses ticks that land in the same second.
	for name, agg := range snap.Instruments {
		if agg.LastUpdate == 0 || agg.LastPrice <= 0 {
			continue
		}
		sample := []models.MSamplePoint{{
			Timestamp: agg.LastUpdate,
			Price:     agg.LastPrice,
			Volume:    agg.CumulativeVolume,
		}}
		if err := s.db.SaveSamplesBulk(name, sample); err != nil {
			s.Logger.Error("Failed to persist samples for %s: %v", name, err)
		}
	}
}
