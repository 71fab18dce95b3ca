package utils

import (
	"sol-terminal/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of timestamped samples.
// True ring buffer - no resizing on the hot path.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	// Data storage as 2D slice (rows x features)
	data     [][models.RB_NUM_FEATURES]float64
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1000 // Default reasonable size
	}

	return &RingBuffer{
		data:     make([][models.RB_NUM_FEATURES]float64, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds a sample. Callers append in timestamp order; GetSince relies
// on rows being non-decreasing in time.
func (rb *RingBuffer) Append(point models.MSamplePoint) {
	rb.data[rb.index] = [models.RB_NUM_FEATURES]float64{
		float64(point.Timestamp),
		point.Price,
		point.Volume,
	}

	rb.index = (rb.index + 1) % rb.capacity

	// Size never exceeds capacity
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// rowAt returns the i-th oldest row.
func (rb *RingBuffer) rowAt(i int) [models.RB_NUM_FEATURES]float64 {
	var startIdx int
	if rb.size == rb.capacity {
		startIdx = rb.index
	} else {
		startIdx = 0
	}
	return rb.data[(startIdx+i)%rb.capacity]
}

// -----------------------------------------------------------------------------

// GetAll returns all samples in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.MSamplePoint {
	if rb.size == 0 {
		return []models.MSamplePoint{}
	}

	result := make([]models.MSamplePoint, rb.size)
	for i := 0; i < rb.size; i++ {
		row := rb.rowAt(i)
		result[i] = models.MSamplePoint{
			Timestamp: int64(row[models.RB_IDX_TIMESTAMP]),
			Price:     row[models.RB_IDX_PRICE],
			Volume:    row[models.RB_IDX_VOLUME],
		}
	}

	return result
}

// -----------------------------------------------------------------------------

// GetSince returns the samples with Timestamp >= since, oldest to newest.
// Scans backwards from the newest row, so the cost is proportional to the
// number of returned samples, not the buffer size.
func (rb *RingBuffer) GetSince(since int64) []models.MSamplePoint {
	if rb.size == 0 {
		return []models.MSamplePoint{}
	}

	// Count matching rows from the newest backwards
	count := 0
	for i := rb.size - 1; i >= 0; i-- {
		row := rb.rowAt(i)
		if int64(row[models.RB_IDX_TIMESTAMP]) < since {
			break
		}
		count++
	}

	if count == 0 {
		return []models.MSamplePoint{}
	}

	result := make([]models.MSamplePoint, count)
	for i := 0; i < count; i++ {
		row := rb.rowAt(rb.size - count + i)
		result[i] = models.MSamplePoint{
			Timestamp: int64(row[models.RB_IDX_TIMESTAMP]),
			Price:     row[models.RB_IDX_PRICE],
			Volume:    row[models.RB_IDX_VOLUME],
		}
	}

	return result
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest samples, oldest to newest.
func (rb *RingBuffer) GetLatest(n int) []models.MSamplePoint {
	if rb.size == 0 || n <= 0 {
		return []models.MSamplePoint{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MSamplePoint, count)
	for i := 0; i < count; i++ {
		row := rb.rowAt(rb.size - count + i)
		result[i] = models.MSamplePoint{
			Timestamp: int64(row[models.RB_IDX_TIMESTAMP]),
			Price:     row[models.RB_IDX_PRICE],
			Volume:    row[models.RB_IDX_VOLUME],
		}
	}

	return result
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (rb *RingBuffer) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *RingBuffer) Clear() {
	rb.index = 0
	rb.size = 0
}
