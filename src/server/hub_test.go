package server

import (
	"testing"

	"sol-terminal/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func testSnapshot() *models.MSnapshot {
	return &models.MSnapshot{
		Type:      "UPDATE",
		Sequence:  7,
		Timestamp: 1_700_000_000,
		Instruments: map[string]models.MAggregateState{
			"orca-sol-usdc": {
				Instrument: "orca-sol-usdc",
				LastPrice:  100.0,
				Windows: map[string]models.MWindowStats{
					"1m": {WindowName: "1m", Mean: 100.0},
					"5m": {WindowName: "5m", Mean: 99.5},
				},
			},
			"raydium-sol-usdc": {
				Instrument: "raydium-sol-usdc",
				LastPrice:  102.0,
				Windows: map[string]models.MWindowStats{
					"1m": {WindowName: "1m", Mean: 102.0},
				},
			},
		},
	}
}

// -----------------------------------------------------------------------------

func TestFilterSnapshotNoFilterReturnsOriginal(t *testing.T) {
	snap := testSnapshot()
	assert.Same(t, snap, filterSnapshot(snap, clientFilter{}))
}

// -----------------------------------------------------------------------------

func TestFilterSnapshotByInstrument(t *testing.T) {
	snap := testSnapshot()

	filtered := filterSnapshot(snap, clientFilter{instruments: []string{"orca-sol-usdc"}})
	require.Len(t, filtered.Instruments, 1)
	assert.Contains(t, filtered.Instruments, "orca-sol-usdc")

	// The shared original is untouched
	assert.Len(t, snap.Instruments, 2)
}

// -----------------------------------------------------------------------------

func TestFilterSnapshotByWindow(t *testing.T) {
	snap := testSnapshot()

	filtered := filterSnapshot(snap, clientFilter{window: "1m"})
	require.Len(t, filtered.Instruments, 2)

	orca := filtered.Instruments["orca-sol-usdc"]
	require.Len(t, orca.Windows, 1)
	assert.Contains(t, orca.Windows, "1m")

	// Instruments without the requested window get an empty map, not a nil one
	assert.Len(t, snap.Instruments["orca-sol-usdc"].Windows, 2)
}

// -----------------------------------------------------------------------------

func TestFilterSnapshotUnknownInstrument(t *testing.T) {
	snap := testSnapshot()

	filtered := filterSnapshot(snap, clientFilter{instruments: []string{"no-such-pool"}})
	assert.Empty(t, filtered.Instruments)
	assert.Equal(t, snap.Sequence, filtered.Sequence)
}

// -----------------------------------------------------------------------------

func TestInitialForNeverMutatesOriginal(t *testing.T) {
	snap := testSnapshot()

	initial := initialFor(snap, clientFilter{})
	assert.NotSame(t, snap, initial)
	assert.Equal(t, "INITIAL", initial.Type)
	assert.Equal(t, "UPDATE", snap.Type)

	filtered := initialFor(snap, clientFilter{instruments: []string{"orca-sol-usdc"}})
	assert.Equal(t, "INITIAL", filtered.Type)
	assert.Len(t, filtered.Instruments, 1)
	assert.Equal(t, "UPDATE", snap.Type)
}

// -----------------------------------------------------------------------------

func TestOnSnapshotNeverBlocks(t *testing.T) {
	cfg := &models.MConfig{Name: "t", Host: "127.0.0.1", Port: 8000, LogLevel: "ERROR"}
	s := NewTerminalServer(cfg, nil, testLogger())

	// No hub loop is running; the queue fills and further snapshots are dropped
	for i := 0; i < 1000; i++ {
		s.OnSnapshot(testSnapshot())
	}
}
