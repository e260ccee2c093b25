package export

import "errors"

// Common errors returned by the export package.
var (
	// ErrNoEmbeddedData is returned when a Markdown report carries no
	// embedded stats block. Only reports exported by this tool can be
	// re-ingested.
	ErrNoEmbeddedData = errors.New("no embedded stats data found in markdown")

	// ErrInvalidEmbeddedData is returned when the embedded block is not
	// valid JSON or fails the bundle shape check.
	ErrInvalidEmbeddedData = errors.New("invalid embedded stats data")
)
