package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no record exists for a fingerprint.
	ErrNotFound = errors.New("document not found")

	// ErrNoFingerprint indicates a consolidation input without a fingerprint.
	ErrNoFingerprint = errors.New("fingerprint is required")

	// ErrConflict is wrapped by every ConsolidationConflict.
	ErrConflict = errors.New("consolidation conflict")
)

// ConsolidationConflict reports a field that already held a different
// non-empty value for the same fingerprint. The newer value is kept.
type ConsolidationConflict struct {
	Fingerprint string
	Field       string
	Old         string
	New         string
}

func (e *ConsolidationConflict) Error() string {
	return fmt.Sprintf("consolidation conflict for %s: %s changed from %q to %q", e.Fingerprint, e.Field, e.Old, e.New)
}

func (e *ConsolidationConflict) Unwrap() error { return ErrConflict }

// IsConflict returns true if err is or wraps a ConsolidationConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
