package core

// -----------------------------------------------------------------------------

// CalculateChangePercent returns the percent change from oldValue to newValue.
func CalculateChangePercent(newValue, oldValue float64) float64 {
	if oldValue == 0 {
		return 0
	}
	return ((newValue - oldValue) / oldValue) * 100.0
}

// -----------------------------------------------------------------------------

// CalculateAnomalyRatio compares a window's volume against the historical
// average. 1.0 means unremarkable; >>1 flags a volume spike.
func CalculateAnomalyRatio(windowVolume, avgVolume float64) float64 {
	if avgVolume <= 0 {
		return 0
	}
	return windowVolume / avgVolume
}
