package lockgraph

import (
	"errors"
	"fmt"
)

// GraphError represents a structural inconsistency in the ingested trace.
//
// Both codes mean the trace data is untrustworthy: a lock created twice,
// or an ordering event naming a lock that was never created. The caller
// should abort the whole run rather than analyze a partial graph.
type GraphError struct {
	// Code identifies the error category.
	Code GraphErrorCode

	// Lock is the offending lock id.
	Lock LockID

	// Site is the provenance of the event that triggered the error,
	// when known.
	Site Site
}

// GraphErrorCode categorizes graph ingestion errors.
type GraphErrorCode string

const (
	// ErrCodeDuplicateLock indicates a lock id was registered twice.
	ErrCodeDuplicateLock GraphErrorCode = "DUPLICATE_LOCK"

	// ErrCodeUnknownLock indicates an order event referenced a lock id
	// that was never registered.
	ErrCodeUnknownLock GraphErrorCode = "UNKNOWN_LOCK"
)

// Error implements the error interface.
func (e *GraphError) Error() string {
	switch e.Code {
	case ErrCodeDuplicateLock:
		return fmt.Sprintf("%s: lock %s created twice (second creation at %s)", e.Code, e.Lock, e.Site)
	case ErrCodeUnknownLock:
		return fmt.Sprintf("%s: lock %s referenced at %s but never created", e.Code, e.Lock, e.Site)
	}
	return fmt.Sprintf("%s: lock %s", e.Code, e.Lock)
}

// IsDuplicateLock returns true if the error is a duplicate-creation error.
// Uses errors.As to handle wrapped errors.
func IsDuplicateLock(err error) bool {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Code == ErrCodeDuplicateLock
	}
	return false
}

// IsUnknownLock returns true if the error is an unknown-lock error.
// Uses errors.As to handle wrapped errors.
func IsUnknownLock(err error) bool {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Code == ErrCodeUnknownLock
	}
	return false
}
