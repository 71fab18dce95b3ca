package utils

// -----------------------------------------------------------------------------

// Constants for ring-buffer sizing. Account notifications for a liquid pool
// arrive at well under 3 per second on confirmed commitment; 2/s average
// leaves headroom without blowing up memory for many pools.
const (
	expectedEventsPerSec = 2
	minRingCapacity      = 1024
	maxRingCapacity      = 1 << 18
)

// -----------------------------------------------------------------------------

// CalculateRingCapacity sizes a per-instrument sample buffer so the largest
// configured window (plus the 24h change lookback) stays fully covered.
func CalculateRingCapacity(windowSeconds map[string]int64) int {
	var maxWindow int64 = 86400 // 24h change lookback floor
	for _, secs := range windowSeconds {
		if secs > maxWindow {
			maxWindow = secs
		}
	}

	capacity := int(maxWindow) * expectedEventsPerSec
	if capacity < minRingCapacity {
		capacity = minRingCapacity
	}
	if capacity > maxRingCapacity {
		capacity = maxRingCapacity
	}
	return capacity
}
