package monitor

import (
	"context"
	"sort"
	"sync"

	"sol-terminal/src/logger"
	"sol-terminal/src/models"
)

// ResubscribeFunc asks the connection layer to re-issue one instrument's
// subscription.
type ResubscribeFunc func(instrument string) error

// -----------------------------------------------------------------------------
// Monitor tracks connection health and per-instrument staleness. Faults are
// reported as conditions inside snapshots, never as process failures. A stale
// instrument triggers exactly one resubscribe per staleness episode; the
// flag clears itself when fresh data arrives.
// -----------------------------------------------------------------------------

type Monitor struct {
	Logger *logger.Logger

	resubscribe ResubscribeFunc

	mu          sync.Mutex
	status      models.MConnectionStatus
	downSince   int64
	staleSince  map[string]int64
	resubIssued map[string]bool
}

// -----------------------------------------------------------------------------

func NewMonitor(resub ResubscribeFunc, log *logger.Logger) *Monitor {
	return &Monitor{
		Logger:      log,
		resubscribe: resub,
		staleSince:  make(map[string]int64),
		resubIssued: make(map[string]bool),
	}
}

// -----------------------------------------------------------------------------

// Start consumes connection status updates until the context is cancelled.
func (mo *Monitor) Start(ctx context.Context, statusCh <-chan models.MConnectionStatus, wg *sync.WaitGroup) error {
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case st := <-statusCh:
				mo.onStatus(st)
			}
		}
	}()
	return nil
}

// -----------------------------------------------------------------------------

func (mo *Monitor) onStatus(st models.MConnectionStatus) {
	mo.mu.Lock()
	defer mo.mu.Unlock()

	prev := mo.status.State
	mo.status = st

	switch {
	case st.State != models.StateConnected && prev == models.StateConnected:
		mo.Logger.Warning("Connection lost: %s", st.LastError)
	case st.State == models.StateConnected && prev != models.StateConnected:
		mo.downSince = 0
		mo.Logger.Info("Connection restored to %s", st.Endpoint)
	}
}

// -----------------------------------------------------------------------------

// ConnectionStatus returns the latest observed connection state.
func (mo *Monitor) ConnectionStatus() models.MConnectionStatus {
	mo.mu.Lock()
	defer mo.mu.Unlock()
	return mo.status
}

// -----------------------------------------------------------------------------

// Evaluate inspects the aggregate states and returns the active fault
// conditions as of now (unix seconds). Staleness is only meaningful while the
// connection is up: a dead connection makes everything stale, and reporting
// every instrument would just be noise on top of the connection_down
// condition.
func (mo *Monitor) Evaluate(states map[string]models.MAggregateState, now int64) []models.MCondition {
	mo.mu.Lock()
	defer mo.mu.Unlock()

	var conditions []models.MCondition

	if mo.status.State != models.StateConnected {
		if mo.downSince == 0 {
			mo.downSince = now
		}
		conditions = append(conditions, models.MCondition{
			Kind:   models.ConditionConnectionDown,
			Since:  mo.downSince,
			Detail: mo.status.LastError,
		})
		return mo.sorted(conditions)
	}

	for name, agg := range states {
		if !agg.Stale {
			delete(mo.staleSince, name)
			delete(mo.resubIssued, name)
			continue
		}

		since, known := mo.staleSince[name]
		if !known {
			since = now
			mo.staleSince[name] = since
		}

		conditions = append(conditions, models.MCondition{
			Kind:       models.ConditionStaleInstrument,
			Instrument: name,
			Since:      since,
			Detail:     "no events within staleness threshold",
		})

		// One corrective action per episode; the condition stays visible
		// until fresh data clears it.
		if !mo.resubIssued[name] && mo.resubscribe != nil {
			mo.resubIssued[name] = true
			mo.Logger.Warning("Instrument %s is stale, requesting resubscribe", name)
			if err := mo.resubscribe(name); err != nil {
				mo.Logger.Error("Resubscribe request for %s failed: %v", name, err)
			}
		}
	}

	return mo.sorted(conditions)
}

// -----------------------------------------------------------------------------

func (mo *Monitor) sorted(conditions []models.MCondition) []models.MCondition {
	sort.Slice(conditions, func(i, j int) bool {
		if conditions[i].Kind != conditions[j].Kind {
			return conditions[i].Kind < conditions[j].Kind
		}
		return conditions[i].Instrument < conditions[j].Instrument
	})
	return conditions
}
