// Package display provides output formatting for usage statistics.
//
// It supports multiple output formats (table, JSON, simple text)
// for single-source reports and merged team reports.
package display

import (
	"io"

	"github.com/Momoyeyu/token-usage/pkg/merge"
	"github.com/Momoyeyu/token-usage/pkg/stats"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays statistics in a formatted table.
	FormatTable Format = "table"

	// FormatJSON displays statistics as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays statistics in simple text format.
	FormatSimple Format = "simple"
)

// Formatter formats and displays usage statistics.
type Formatter interface {
	// FormatReport formats one source's report.
	FormatReport(w io.Writer, r *stats.Report) error

	// FormatTeam formats a merged team report.
	FormatTeam(w io.Writer, t *merge.TeamReport) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// MaxKeyWidth caps the width of the first table column (model,
	// day, project or user names). 0 derives it from the terminal
	// width, falling back to 40 when stdout is not a terminal.
	MaxKeyWidth int

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool
}
