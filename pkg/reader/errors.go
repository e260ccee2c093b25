package reader

import "errors"

// Errors returned when reading session files incrementally.
var (
	// ErrFileLocked is returned when a session file is held by another
	// process; the read is retried.
	ErrFileLocked = errors.New("session file is locked")

	// ErrFileNotFound is returned when a session file does not exist.
	ErrFileNotFound = errors.New("session file not found")

	// ErrPermissionDenied is returned when a session file cannot be
	// opened for reading.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrFileTooLarge is returned when a session file exceeds the
	// configured size limit.
	ErrFileTooLarge = errors.New("session file exceeds maximum size")

	// ErrFileTruncated is returned when the stored offset points past
	// the end of the file.
	ErrFileTruncated = errors.New("session file was truncated")

	// ErrInvalidOffset is returned when an offset is negative.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrReaderClosed is returned when using a closed reader.
	ErrReaderClosed = errors.New("reader is closed")
)
