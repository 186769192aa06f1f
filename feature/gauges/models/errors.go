package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the sync pipeline. Callers use errors.Is to decide
// whether a failure truncates a fetch, aborts a cycle, or is isolated to
// a single station.
var (
	// ErrFeedUnavailable marks a network/timeout/non-success failure of the
	// upstream feed. It truncates the current fetch but does not abort the
	// cycle; reconciling a partial batch is safe because reconciliation is
	// idempotent.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrMalformedRecord marks an unparseable individual feature. The
	// record is skipped, never fatal.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrStoreUnavailable marks a backing store connectivity/auth failure.
	// It aborts the current reconciliation cycle; the next scheduled cycle
	// retries after the normal interval.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// StationWriteError isolates a write failure to one station so the
// remaining stations still get processed.
type StationWriteError struct {
	Station string
	Err     error
}

func (e *StationWriteError) Error() string {
	return fmt.Sprintf("station %s: %v", e.Station, e.Err)
}

func (e *StationWriteError) Unwrap() error {
	return e.Err
}
