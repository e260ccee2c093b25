// Package stats folds normalized usage events into multi-dimensional
// statistics reports, and defines the cross-source reconciliation that
// makes the two token-accounting schemes comparable.
//
// The fold is a single pass and commutative: feeding the same
// deduplicated, filtered event set in any order produces the same
// report. Deduplication is order-sensitive and must run before
// aggregation (see event.Deduplicate).
//
// Example usage:
//
//	agg := stats.NewAggregator(event.SourceSessionLog)
//	for _, ev := range events {
//	    agg.Add(ev)
//	}
//	report := agg.Report(stats.Metadata{StartDate: start, EndDate: end})
package stats

import (
	"time"

	"github.com/Momoyeyu/token-usage/pkg/event"
)

// Metadata describes how and for which window a report was generated.
type Metadata struct {
	GeneratedAt time.Time    `json:"generated_at"`
	StartDate   time.Time    `json:"start_date"`
	EndDate     time.Time    `json:"end_date"`
	Username    string       `json:"username,omitempty"`
	Machine     string       `json:"machine,omitempty"`
	Source      event.Source `json:"source"`
}

// Summary holds whole-window totals and counts for one source.
//
// total_tokens_with_cache is the comparable total defined by the
// reconciler: it is the one field safe to compare across sources.
// total_tokens keeps each source's native meaning: new input + output
// for the session-log source, and the sum of reported (cache-inclusive)
// totals for the tabular source.
type Summary struct {
	InputTokens          int     `json:"input_tokens"`
	OutputTokens         int     `json:"output_tokens"`
	CacheCreationTokens  int     `json:"cache_creation_tokens"`
	CacheReadTokens      int     `json:"cache_read_tokens"`
	TotalTokens          int     `json:"total_tokens"`
	TotalTokensWithCache int     `json:"total_tokens_with_cache"`
	Requests             float64 `json:"requests"`
	Records              int     `json:"records"`
	ExcludedRecords      int     `json:"excluded_records"`
	ParseErrors          int     `json:"parse_errors"`
	Sessions             int     `json:"sessions"`
	ActiveDays           int     `json:"active_days"`
	Projects             int     `json:"projects"`
	Users                int     `json:"users"`
	UserMessages         int     `json:"user_messages"`
	AssistantMessages    int     `json:"assistant_messages"`
	ToolCalls            int     `json:"tool_calls"`
}

// Bucket holds summed token fields for one grouping key (a calendar
// day, a model, a project or a user).
type Bucket struct {
	InputTokens          int     `json:"input_tokens"`
	OutputTokens         int     `json:"output_tokens"`
	CacheCreationTokens  int     `json:"cache_creation_tokens"`
	CacheReadTokens      int     `json:"cache_read_tokens"`
	TotalTokensWithCache int     `json:"total_tokens_with_cache"`
	Requests             float64 `json:"requests"`
	Records              int     `json:"records"`
	Sessions             int     `json:"sessions,omitempty"`
}

// Report is one source's complete statistics output. Field names and
// nesting are a contract with downstream consumers (charts, tables,
// the Markdown exporter) and must be preserved.
//
// Reports are value-built and never mutated after construction.
type Report struct {
	Metadata Metadata `json:"metadata"`

	Summary Summary `json:"summary"`

	// ByModel is keyed by model name.
	ByModel map[string]Bucket `json:"by_model"`

	// ByDay is keyed by UTC calendar day (YYYY-MM-DD).
	ByDay map[string]Bucket `json:"by_day"`

	// ByProject is populated for the session-log source only.
	ByProject map[string]Bucket `json:"by_project,omitempty"`

	// ByUser is populated for the tabular-export source only.
	ByUser map[string]Bucket `json:"by_user,omitempty"`
}

// Aggregator folds usage events into a Report.
type Aggregator interface {
	// Add folds one event into the aggregate. Excluded events only
	// increment the excluded-record counter.
	Add(ev event.Usage)

	// CountParseErrors records n malformed raw records that never
	// became events; surfaced as summary.parse_errors.
	CountParseErrors(n int)

	// CountActivity records session-log activity counters.
	CountActivity(userMessages, assistantMessages, toolCalls int)

	// Report builds the immutable report for everything added so far.
	// meta.GeneratedAt defaults to the current time, meta.Source to the
	// aggregator's source.
	Report(meta Metadata) *Report

	// Reset clears all accumulated state.
	Reset()
}
