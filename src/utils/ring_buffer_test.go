package utils

import (
	"testing"

	"sol-terminal/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func sample(ts int64, price float64) models.MSamplePoint {
	return models.MSamplePoint{Timestamp: ts, Price: price, Volume: 1}
}

// -----------------------------------------------------------------------------

func TestRingBufferAppendAndGetAll(t *testing.T) {
	rb := NewRingBuffer(4)

	rb.Append(sample(1, 10))
	rb.Append(sample(2, 11))
	rb.Append(sample(3, 12))

	all := rb.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, int64(1), all[0].Timestamp)
	assert.Equal(t, int64(3), all[2].Timestamp)
	assert.Equal(t, 3, rb.Size())
	assert.False(t, rb.IsFull())
}

// -----------------------------------------------------------------------------

func TestRingBufferWrapsAround(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := int64(1); i <= 5; i++ {
		rb.Append(sample(i, float64(i)))
	}

	assert.True(t, rb.IsFull())
	assert.Equal(t, 3, rb.Size())

	all := rb.GetAll()
	require.Len(t, all, 3)
	// Oldest two rows were overwritten
	assert.Equal(t, int64(3), all[0].Timestamp)
	assert.Equal(t, int64(5), all[2].Timestamp)
}

// -----------------------------------------------------------------------------

func TestRingBufferGetSince(t *testing.T) {
	rb := NewRingBuffer(8)
	for i := int64(10); i <= 50; i += 10 {
		rb.Append(sample(i, float64(i)))
	}

	recent := rb.GetSince(30)
	require.Len(t, recent, 3)
	assert.Equal(t, int64(30), recent[0].Timestamp)
	assert.Equal(t, int64(50), recent[2].Timestamp)

	assert.Empty(t, rb.GetSince(51))
	assert.Len(t, rb.GetSince(0), 5)
}

// -----------------------------------------------------------------------------

func TestRingBufferGetLatest(t *testing.T) {
	rb := NewRingBuffer(8)
	for i := int64(1); i <= 5; i++ {
		rb.Append(sample(i, float64(i)))
	}

	latest := rb.GetLatest(2)
	require.Len(t, latest, 2)
	assert.Equal(t, int64(4), latest[0].Timestamp)
	assert.Equal(t, int64(5), latest[1].Timestamp)

	assert.Len(t, rb.GetLatest(100), 5)
	assert.Empty(t, rb.GetLatest(0))
}

// -----------------------------------------------------------------------------

func TestRingBufferClear(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Append(sample(1, 1))
	rb.Clear()

	assert.Equal(t, 0, rb.Size())
	assert.Empty(t, rb.GetAll())
}

// -----------------------------------------------------------------------------

func TestCalculateRingCapacity(t *testing.T) {
	// Always at least a day of retention, clamped to sane bounds
	small := CalculateRingCapacity(map[string]int64{"1m": 60})
	assert.GreaterOrEqual(t, small, 1024)
	assert.Equal(t, 86400*2, small)

	huge := CalculateRingCapacity(map[string]int64{"7d": 7 * 86400})
	assert.Equal(t, 1<<18, huge)
}
