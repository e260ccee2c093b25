// Package event defines the normalized usage event model shared by both
// telemetry sources, along with deduplication and time-range filtering.
//
// Raw records (session-log lines or tabular-export rows) are converted
// into Usage values at the normalizer boundary; everything downstream
// (aggregation, merging, reconciliation) operates on this one shape.
//
// Example usage:
//
//	events = event.Deduplicate(events)
//	events = event.FilterRange(events, event.Window{Start: start, End: end})
//	for _, ev := range events {
//	    agg.Add(ev)
//	}
package event

import (
	"time"
)

// Source identifies which telemetry source produced an event.
type Source string

const (
	// SourceSessionLog is the line-oriented JSONL session log source.
	// It reports cache tokens separately from new input tokens.
	SourceSessionLog Source = "session-log"

	// SourceTabularExport is the CSV export source. It reports a single
	// pre-summed total that already includes cache effects.
	SourceTabularExport Source = "tabular-export"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s == SourceSessionLog || s == SourceTabularExport
}

// Kind classifies a record as chargeable or excluded from totals.
type Kind int

const (
	// KindChargeable is a real, billable request.
	KindChargeable Kind = iota

	// KindExcluded is an errored or free record. Excluded records are
	// counted separately and never contribute to totals.
	KindExcluded
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindChargeable:
		return "chargeable"
	case KindExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// Usage is one normalized usage event.
//
// Invariant: all token counts are >= 0. Normalizers clamp negative or
// unparsable values to 0 rather than propagate them.
type Usage struct {
	// Timestamp is the event instant, used for bucketing and filtering.
	Timestamp time.Time

	// Source identifies the producing telemetry source.
	Source Source

	// Model is the free-form model identifier. Unrecognized models are
	// still aggregated under their own key.
	Model string

	// Kind classifies the record (tabular source only; session-log
	// events are always chargeable).
	Kind Kind

	// InputTokens are new input tokens charged at full rate. For the
	// tabular source this is the input-without-cache-write column.
	InputTokens int

	// OutputTokens are generated output tokens.
	OutputTokens int

	// CacheWriteTokens are tokens newly written to a prompt cache.
	// Reported directly by the session-log source; derived for the
	// tabular source (see DerivedCacheWrite).
	CacheWriteTokens int

	// CacheReadTokens are tokens served from cache at a discount.
	CacheReadTokens int

	// ReportedTotal is the tabular source's own Total Tokens column,
	// cache-inclusive by construction. Zero for session-log events.
	ReportedTotal int

	// RequestWeight is the request count contribution of this event.
	// The tabular source reports fractional weights; session-log events
	// always weigh 1.
	RequestWeight float64

	// RequestID is the optional request identifier used for dedup.
	RequestID string

	// SessionID, User and Project are optional grouping dimensions,
	// populated only for sources that carry them.
	SessionID string
	User      string
	Project   string
}

// DedupKey returns the identity used to collapse repeated records into
// one logical event. Empty means the event is assumed unique.
func (u Usage) DedupKey() string {
	return u.RequestID
}

// Chargeable reports whether the event contributes to totals.
func (u Usage) Chargeable() bool {
	return u.Kind == KindChargeable
}

// DerivedCacheWrite computes the tabular source's cache-write tokens as
// the difference between the with-cache-write and without-cache-write
// input columns. Malformed input can make the difference negative; a
// negative cache-write is not meaningful, so the result is clamped to 0.
func DerivedCacheWrite(withCacheWrite, withoutCacheWrite int) int {
	d := withCacheWrite - withoutCacheWrite
	if d < 0 {
		return 0
	}
	return d
}

// Day returns the UTC calendar day key (YYYY-MM-DD) for a timestamp.
// All day bucketing uses UTC so the normalizer, filter and aggregator
// agree on day boundaries.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
