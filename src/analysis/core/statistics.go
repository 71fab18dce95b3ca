package core

import "math"

// -----------------------------------------------------------------------------

// WelfordMeanVariance computes mean and population variance in a single pass
// using Welford's algorithm. The incremental update keeps the computation
// numerically stable under long accumulations where the naive
// sum-of-squares formula suffers catastrophic cancellation.
func WelfordMeanVariance(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	var mean, m2 float64
	for i, v := range data {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
	}

	if len(data) == 1 {
		return mean, 0
	}
	return mean, m2 / float64(len(data))
}

// -----------------------------------------------------------------------------

// MinMax returns the smallest and largest values of data.
func MinMax(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	min, max := data[0], data[0]
	for _, v := range data[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// -----------------------------------------------------------------------------

// CalculateCorrelation computes the Pearson correlation coefficient.
func CalculateCorrelation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}

	n := float64(len(x))

	// Zero variance on either side means no meaningful correlation
	_, varX := WelfordMeanVariance(x)
	_, varY := WelfordMeanVariance(y)
	if varX == 0 || varY == 0 {
		return 0
	}

	sumX, sumY, sumXY, sumX2, sumY2 := 0.0, 0.0, 0.0, 0.0, 0.0
	for i := 0; i < len(x); i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}

	numerator := (n * sumXY) - (sumX * sumY)
	denominator := math.Sqrt(((n * sumX2) - (sumX * sumX)) * ((n * sumY2) - (sumY * sumY)))

	if denominator == 0 {
		return 0
	}

	result := numerator / denominator
	if math.IsNaN(result) {
		return 0
	}

	return result
}

// -----------------------------------------------------------------------------

// CalculateZScore calculates Z-Score (Standard Score).
func CalculateZScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0.0
	}
	return (value - mean) / std
}
