// Package tabular parses the CSV usage export source and normalizes its
// rows into event.Usage values.
//
// Expected columns: Date, User, Kind, Model, Max Mode,
// Input (w/ Cache Write), Input (w/o Cache Write), Cache Read,
// Output Tokens, Total Tokens, Requests. Numeric cells may carry
// thousands separators; unparsable numbers default to 0. The Requests
// column can be fractional (weighted requests).
//
// The Kind column classifies each row; rows whose kind marks them as
// errored or free are normalized with event.KindExcluded so the
// aggregator counts them separately instead of adding them to totals.
package tabular

import (
	"github.com/Momoyeyu/token-usage/pkg/event"
)

// Column names of the export format.
const (
	colDate            = "Date"
	colUser            = "User"
	colKind            = "Kind"
	colModel           = "Model"
	colInputWithCache  = "Input (w/ Cache Write)"
	colInputNoCache    = "Input (w/o Cache Write)"
	colCacheRead       = "Cache Read"
	colOutputTokens    = "Output Tokens"
	colTotalTokens     = "Total Tokens"
	colRequests        = "Requests"
)

// Result is the outcome of parsing one export file scope.
type Result struct {
	// Events are the normalized usage events in row order, including
	// excluded rows (marked with event.KindExcluded).
	Events []event.Usage

	// ParseErrors counts rows that could not be parsed at all
	// (malformed CSV row, missing or invalid timestamp).
	ParseErrors int
}

// Merge folds another result into r.
func (r *Result) Merge(other *Result) {
	r.Events = append(r.Events, other.Events...)
	r.ParseErrors += other.ParseErrors
}
