package trace

import (
	"errors"
	"fmt"
)

// FormatError reports malformed or inconsistent trace input.
type FormatError struct {
	// Code identifies the error category.
	Code FormatErrorCode

	// File is the trace file being read, when known.
	File string

	// Detail describes what was wrong.
	Detail string
}

// FormatErrorCode categorizes trace format errors.
type FormatErrorCode string

const (
	// ErrCodeTruncated indicates the file ended inside a record.
	ErrCodeTruncated FormatErrorCode = "TRUNCATED"

	// ErrCodeStringTooLong indicates an unterminated or oversized
	// filename string.
	ErrCodeStringTooLong FormatErrorCode = "STRING_TOO_LONG"

	// ErrCodeDuplicateThread indicates two trace files claim the same
	// thread number.
	ErrCodeDuplicateThread FormatErrorCode = "DUPLICATE_THREAD"

	// ErrCodeTimeSkew indicates trace files from different runs: their
	// creation times are more than an hour apart.
	ErrCodeTimeSkew FormatErrorCode = "TIME_SKEW"
)

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.File, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// IsFormatError returns true if err is (or wraps) a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
