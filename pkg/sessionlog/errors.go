package sessionlog

import "errors"

// Common errors returned by the sessionlog package.
var (
	// ErrFileTooLarge is returned when a JSONL file exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("session log file exceeds maximum size")

	// ErrMalformedLine is returned for lines that are not valid JSON
	// records. Callers normally tally these rather than fail.
	ErrMalformedLine = errors.New("malformed session log line")

	// ErrMissingTimestamp is returned for records without a parseable
	// timestamp.
	ErrMissingTimestamp = errors.New("record has no valid timestamp")
)
