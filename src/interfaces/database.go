package interfaces

import "sol-terminal/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveSamplesBulk inserts a batch of raw price samples.
	SaveSamplesBulk(instrument string, samples []models.MSamplePoint) error

	// -----------------------------------------------------------------------------

	// SaveAggregates persists the per-instrument window statistics of a snapshot.
	SaveAggregates(states map[string]models.MAggregateState) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
