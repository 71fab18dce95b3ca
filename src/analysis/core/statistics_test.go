package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// -----------------------------------------------------------------------------

func TestWelfordMeanVariance(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	mean, variance := WelfordMeanVariance(data)
	assert.InDelta(t, 5.0, mean, 1e-12)
	assert.InDelta(t, 4.0, variance, 1e-12) // population variance
}

func TestWelfordMeanVarianceEdgeCases(t *testing.T) {
	mean, variance := WelfordMeanVariance(nil)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, variance)

	mean, variance = WelfordMeanVariance([]float64{42})
	assert.Equal(t, 42.0, mean)
	assert.Equal(t, 0.0, variance)
}

func TestWelfordMatchesNaiveFormula(t *testing.T) {
	data := []float64{10.1, 10.4, 9.8, 10.0, 10.6, 9.9, 10.2}

	var sum float64
	for _, v := range data {
		sum += v
	}
	naiveMean := sum / float64(len(data))
	var sqSum float64
	for _, v := range data {
		sqSum += (v - naiveMean) * (v - naiveMean)
	}
	naiveVar := sqSum / float64(len(data))

	mean, variance := WelfordMeanVariance(data)
	assert.InDelta(t, naiveMean, mean, 1e-9)
	assert.InDelta(t, naiveVar, variance, 1e-9)
}

// -----------------------------------------------------------------------------

func TestMinMax(t *testing.T) {
	min, max := MinMax([]float64{3, -1, 7, 0})
	assert.Equal(t, -1.0, min)
	assert.Equal(t, 7.0, max)

	min, max = MinMax(nil)
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 0.0, max)
}

// -----------------------------------------------------------------------------

func TestCalculateCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	up := []float64{2, 4, 6, 8, 10}
	down := []float64{10, 8, 6, 4, 2}

	assert.InDelta(t, 1.0, CalculateCorrelation(x, up), 1e-12)
	assert.InDelta(t, -1.0, CalculateCorrelation(x, down), 1e-12)
}

func TestCalculateCorrelationDegenerate(t *testing.T) {
	// Zero variance on either side means no meaningful correlation
	flat := []float64{5, 5, 5}
	assert.Equal(t, 0.0, CalculateCorrelation([]float64{1, 2, 3}, flat))
	assert.Equal(t, 0.0, CalculateCorrelation(flat, []float64{1, 2, 3}))

	// Mismatched or tiny inputs
	assert.Equal(t, 0.0, CalculateCorrelation([]float64{1, 2}, []float64{1}))
	assert.Equal(t, 0.0, CalculateCorrelation([]float64{1}, []float64{1}))
}

// -----------------------------------------------------------------------------

func TestCalculateZScore(t *testing.T) {
	assert.InDelta(t, 2.0, CalculateZScore(12, 10, 1), 1e-12)
	assert.Equal(t, 0.0, CalculateZScore(12, 10, 0))
}

// -----------------------------------------------------------------------------

func TestCalculateChangePercent(t *testing.T) {
	assert.InDelta(t, 2.0, CalculateChangePercent(102, 100), 1e-12)
	assert.InDelta(t, -50.0, CalculateChangePercent(50, 100), 1e-12)
	assert.Equal(t, 0.0, CalculateChangePercent(10, 0))
}

// -----------------------------------------------------------------------------

func TestCalculateAnomalyRatio(t *testing.T) {
	assert.InDelta(t, 3.0, CalculateAnomalyRatio(300, 100), 1e-12)
	assert.Equal(t, 0.0, CalculateAnomalyRatio(300, 0))
	assert.False(t, math.IsNaN(CalculateAnomalyRatio(0, 100)))
}
