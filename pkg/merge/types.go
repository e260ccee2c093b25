// Package merge combines independently generated statistics reports
// into team-level aggregates.
//
// Same-source reports merge by summing every scalar total and taking
// the union of day/model/dimension buckets; distinct counts that can be
// recomputed from the merged buckets (active days, projects, users) are
// recomputed rather than summed, since the same day can be active for
// several members. The merge fold is commutative and associative.
//
// Bundles are the exchange format between team members: a versioned
// envelope holding one report per source. Invalid bundles are rejected
// before any merging happens, with an error naming the offending input.
package merge

import (
	"time"

	"github.com/Momoyeyu/token-usage/pkg/stats"
)

// BundleVersion is the supported bundle envelope version.
const BundleVersion = 2

// Mode selects how merged numbers are presented.
type Mode string

const (
	// ModeSum presents summed totals across all members.
	ModeSum Mode = "sum"

	// ModeMean divides every summed numeric field in summary and by_day
	// by the number of merged reports, yielding a per-member view.
	// Division truncates for integer fields; it is exact when the sum
	// divides evenly. Distinct counts recomputed from merged buckets
	// (active days, projects, users) are not divided.
	ModeMean Mode = "mean"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeSum || m == ModeMean
}

// Bundle is one member's exported report set.
type Bundle struct {
	Version  int    `json:"version"`
	Username string `json:"username"`

	// One report per source; either may be nil when the member has no
	// data for that source, but not both.
	SessionLog    *stats.Report `json:"session_log"`
	TabularExport *stats.Report `json:"tabular_export"`
}

// DateRange is the union window covered by merged inputs.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Combined places both sources' comparable totals side by side.
type Combined struct {
	// TotalTokens sums both sources' comparable totals.
	TotalTokens int `json:"total_tokens"`

	// InputTokens and OutputTokens sum the cache-write-inclusive input
	// and the output of both sources.
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// MemberTotals is one member's row in the team report, using the
// comparable total for both sources.
type MemberTotals struct {
	Username            string `json:"username"`
	SessionLogTokens    int    `json:"session_log_tokens"`
	TabularExportTokens int    `json:"tabular_export_tokens"`
}

// TeamReport is the merged output across all members.
type TeamReport struct {
	GeneratedAt time.Time `json:"generated_at"`
	Members     int       `json:"members"`
	Mode        Mode      `json:"mode"`
	DateRange   DateRange `json:"date_range"`

	SessionLog    *stats.Report `json:"session_log,omitempty"`
	TabularExport *stats.Report `json:"tabular_export,omitempty"`

	Combined Combined       `json:"combined"`
	ByMember []MemberTotals `json:"by_member"`
}
