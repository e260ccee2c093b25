// Package reader provides incremental session log reading with position
// tracking.
//
// It reads files from the last known position and persists offsets so
// repeated scans and the watch loop only parse new lines.
//
// Example usage:
//
//	r, err := reader.New(reader.Config{
//	    PositionStore: store,
//	    Parser:        sessionlog.New(),
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	result, err := r.Read(ctx, "/path/to/session.jsonl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, ev := range result.Events {
//	    fmt.Printf("Tokens: %d\n", ev.InputTokens+ev.OutputTokens)
//	}
package reader

import (
	"context"
	"time"

	"github.com/Momoyeyu/token-usage/pkg/sessionlog"
)

// PositionStore provides persistence for file read positions.
type PositionStore interface {
	// GetPosition retrieves the last read position for a file.
	// Returns 0 if no position is stored (start from beginning).
	GetPosition(path string) (int64, error)

	// SetPosition stores the read position for a file.
	SetPosition(path string, offset int64) error
}

// Reader provides incremental session log reading.
type Reader interface {
	// Read parses new entries from a file since the last read position
	// and updates the stored position on success.
	Read(ctx context.Context, path string) (*sessionlog.Result, error)

	// ReadFrom parses entries from a specific offset, returning the new
	// offset. Does not update the stored position.
	ReadFrom(ctx context.Context, path string, offset int64) (*sessionlog.Result, int64, error)

	// Reset resets the read position for a file to the beginning.
	Reset(path string) error

	// Close closes the reader and releases resources.
	Close() error
}

// Config contains reader configuration.
type Config struct {
	// PositionStore persists file read positions.
	PositionStore PositionStore

	// Parser parses session log lines.
	Parser sessionlog.Parser

	// MaxRetries is the maximum number of retry attempts for transient errors.
	// Default: 3.
	MaxRetries int

	// RetryDelay is the base delay between retry attempts.
	// Uses exponential backoff: delay * 2^attempt.
	// Default: 100ms.
	RetryDelay time.Duration

	// MaxFileSize is the maximum file size to read (safety limit).
	// Default: 100MB.
	MaxFileSize int64
}
