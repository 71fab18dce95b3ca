package helpers

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type TerminalError struct {
	Message string
	Cause   error
}

func (e *TerminalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TerminalError) Unwrap() error {
	return e.Cause
}

// -----------------------------------------------------------------------------

// ConnectionError is a transport-level failure; retried per backoff policy.
type ConnectionError struct {
	TerminalError
	Endpoint string
}

func NewConnectionError(endpoint string, cause error) *ConnectionError {
	return &ConnectionError{
		TerminalError: TerminalError{Message: fmt.Sprintf("connection to %s failed", endpoint), Cause: cause},
		Endpoint:      endpoint,
	}
}

// -----------------------------------------------------------------------------

// SubscriptionError is a subscribe request rejected by the source; surfaced
// to the caller, not auto-retried indefinitely.
type SubscriptionError struct {
	TerminalError
	Instrument string
	Code       int
}

func NewSubscriptionError(instrument string, code int, detail string) *SubscriptionError {
	return &SubscriptionError{
		TerminalError: TerminalError{Message: fmt.Sprintf("subscription for %s rejected (code %d): %s", instrument, code, detail)},
		Instrument:    instrument,
		Code:          code,
	}
}

// -----------------------------------------------------------------------------

// ParseError is a single malformed message; dropped and logged, non-fatal.
type ParseError struct {
	TerminalError
}

func NewParseError(detail string, cause error) *ParseError {
	return &ParseError{TerminalError{Message: detail, Cause: cause}}
}

// -----------------------------------------------------------------------------

// AggregationError is an ordering or schema violation for one instrument;
// isolated, never fatal to the process.
type AggregationError struct {
	TerminalError
	Instrument string
	Slot       uint64
}

func NewAggregationError(instrument string, slot uint64, detail string) *AggregationError {
	return &AggregationError{
		TerminalError: TerminalError{Message: fmt.Sprintf("aggregation failed for %s at slot %d: %s", instrument, slot, detail)},
		Instrument:    instrument,
		Slot:          slot,
	}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times
// with exponential backoff.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		time.Sleep(delay)
	}

	return nil, &TerminalError{Message: fmt.Sprintf("%s failed after %d attempts", operation, maxRetries), Cause: lastErr}
}
