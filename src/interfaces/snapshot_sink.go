package interfaces

import "sol-terminal/src/models"

// -----------------------------------------------------------------------------
// ISnapshotSink receives published snapshots (server hub, storage, ...).
// -----------------------------------------------------------------------------

type ISnapshotSink interface {

	// Name returns the sink identifier for logging.
	Name() string

	// -----------------------------------------------------------------------------

	// OnSnapshot hands over one published snapshot. The snapshot is immutable;
	// implementations must never block the publisher for long.
	OnSnapshot(snap *models.MSnapshot)
}
