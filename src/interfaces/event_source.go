package interfaces

import (
	"context"
	"sync"

	"sol-terminal/src/models"
)

// -----------------------------------------------------------------------------
// IEventSource is a long-lived stream of normalized market events.
// -----------------------------------------------------------------------------

type IEventSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// Start begins streaming.
	// ctx: controls the lifecycle (cancellation stops the source)
	// out: channel normalized events are pushed to
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, out chan<- models.MMarketEvent, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Status returns a channel of connection-state changes, consumed by the
	// fault monitor.
	Status() <-chan models.MConnectionStatus

	// -----------------------------------------------------------------------------

	// Resubscribe re-issues the subscription for a single instrument on the
	// live session. Used by the fault monitor's staleness feedback.
	Resubscribe(instrument string) error

	// -----------------------------------------------------------------------------

	// Stop terminates streaming (cancelling the context passed to Start is
	// the normal path; Stop exists for manual control).
	Stop() error
}
