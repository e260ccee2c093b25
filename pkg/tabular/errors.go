package tabular

import "errors"

// Common errors returned by the tabular package.
var (
	// ErrMissingHeader is returned when the CSV has no header row.
	ErrMissingHeader = errors.New("export file has no header row")

	// ErrMissingDateColumn is returned when the header lacks the Date
	// column; without it no row can be bucketed or filtered.
	ErrMissingDateColumn = errors.New("export header has no Date column")
)
