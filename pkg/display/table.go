package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Momoyeyu/token-usage/pkg/event"
	"github.com/Momoyeyu/token-usage/pkg/merge"
	"github.com/Momoyeyu/token-usage/pkg/stats"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatReport implements Formatter.FormatReport.
func (f *tableFormatter) FormatReport(w io.Writer, r *stats.Report) error {
	title := "Usage Statistics"
	if r.Metadata.Source.Valid() {
		title = fmt.Sprintf("Usage Statistics (%s)", r.Metadata.Source)
	}
	if err := writeHeader(w, title, f.config.Compact); err != nil {
		return err
	}

	s := r.Summary
	rows := [][]string{
		{"Records", formatNumber(s.Records)},
		{"Input Tokens", formatNumber(s.InputTokens)},
		{"Output Tokens", formatNumber(s.OutputTokens)},
		{"Cache Write Tokens", formatNumber(s.CacheCreationTokens)},
		{"Cache Read Tokens", formatNumber(s.CacheReadTokens)},
		{"Total Tokens", formatNumber(s.TotalTokens)},
		{"Total (w/ Cache)", formatNumber(s.TotalTokensWithCache)},
		{"Active Days", formatNumber(s.ActiveDays)},
	}

	if r.Metadata.Source == event.SourceSessionLog {
		rows = append(rows,
			[]string{"Sessions", formatNumber(s.Sessions)},
			[]string{"Projects", formatNumber(s.Projects)},
			[]string{"User Messages", formatNumber(s.UserMessages)},
			[]string{"Assistant Messages", formatNumber(s.AssistantMessages)},
			[]string{"Tool Calls", formatNumber(s.ToolCalls)},
		)
	}
	if r.Metadata.Source == event.SourceTabularExport {
		rows = append(rows,
			[]string{"Requests", formatFloat(s.Requests, 1)},
			[]string{"Users", formatNumber(s.Users)},
		)
	}
	if s.ExcludedRecords > 0 {
		rows = append(rows, []string{"Excluded Records", formatNumber(s.ExcludedRecords)})
	}
	if s.ParseErrors > 0 {
		rows = append(rows, []string{"Parse Errors", formatNumber(s.ParseErrors)})
	}

	if err := f.writeTable(w, []string{"Metric", "Value"}, rows); err != nil {
		return err
	}

	if err := f.writeBuckets(w, "By Day", "Day", r.ByDay, byKeyAscending); err != nil {
		return err
	}
	if err := f.writeBuckets(w, "By Model", "Model", r.ByModel, byTokensDescending); err != nil {
		return err
	}
	if r.ByProject != nil {
		if err := f.writeBuckets(w, "By Project", "Project", r.ByProject, byTokensDescending); err != nil {
			return err
		}
	}
	if r.ByUser != nil {
		if err := f.writeBuckets(w, "By User", "User", r.ByUser, byTokensDescending); err != nil {
			return err
		}
	}

	return nil
}

// FormatTeam implements Formatter.FormatTeam.
func (f *tableFormatter) FormatTeam(w io.Writer, t *merge.TeamReport) error {
	if err := writeHeader(w, "Team Usage Statistics", f.config.Compact); err != nil {
		return err
	}

	rows := [][]string{
		{"Members", formatNumber(t.Members)},
		{"Mode", string(t.Mode)},
		{"Combined Tokens", formatNumber(t.Combined.TotalTokens)},
		{"Combined Input", formatNumber(t.Combined.InputTokens)},
		{"Combined Output", formatNumber(t.Combined.OutputTokens)},
	}
	if t.SessionLog != nil {
		rows = append(rows, []string{"Session Log Tokens",
			formatNumber(t.SessionLog.Summary.TotalTokensWithCache)})
	}
	if t.TabularExport != nil {
		rows = append(rows, []string{"Tabular Export Tokens",
			formatNumber(t.TabularExport.Summary.TotalTokensWithCache)})
	}
	if !t.DateRange.Start.IsZero() {
		rows = append(rows,
			[]string{"Start", t.DateRange.Start.UTC().Format("2006-01-02")},
			[]string{"End", t.DateRange.End.UTC().Format("2006-01-02")},
		)
	}

	if err := f.writeTable(w, []string{"Metric", "Value"}, rows); err != nil {
		return err
	}

	if len(t.ByMember) > 0 {
		if err := writeHeader(w, "Members", f.config.Compact); err != nil {
			return err
		}

		memberRows := make([][]string, len(t.ByMember))
		for i, m := range t.ByMember {
			memberRows[i] = []string{
				fmt.Sprintf("#%d", i+1),
				truncate(m.Username, f.config.MaxKeyWidth),
				formatNumber(m.SessionLogTokens),
				formatNumber(m.TabularExportTokens),
				formatNumber(m.SessionLogTokens + m.TabularExportTokens),
			}
		}

		header := []string{"Rank", "Member", "Session Log", "Tabular Export", "Combined"}
		if err := f.writeTable(w, header, memberRows); err != nil {
			return err
		}
	}

	return nil
}

// Bucket orderings.
var (
	byKeyAscending = func(keys []string, buckets map[string]stats.Bucket) {
		sort.Strings(keys)
	}
	byTokensDescending = func(keys []string, buckets map[string]stats.Bucket) {
		sort.Slice(keys, func(i, j int) bool {
			a := buckets[keys[i]].TotalTokensWithCache
			b := buckets[keys[j]].TotalTokensWithCache
			if a != b {
				return a > b
			}
			return keys[i] < keys[j]
		})
	}
)

// writeBuckets writes one bucket map as a table.
func (f *tableFormatter) writeBuckets(w io.Writer, title, keyName string,
	buckets map[string]stats.Bucket, order func([]string, map[string]stats.Bucket)) error {
	if len(buckets) == 0 {
		return nil
	}

	if err := writeHeader(w, title, f.config.Compact); err != nil {
		return err
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	order(keys, buckets)

	header := []string{keyName, "Input", "Output", "Cache Write", "Cache Read", "Total"}
	rows := make([][]string, len(keys))
	for i, key := range keys {
		b := buckets[key]
		rows[i] = []string{
			truncate(key, f.config.MaxKeyWidth),
			formatNumber(b.InputTokens),
			formatNumber(b.OutputTokens),
			formatNumber(b.CacheCreationTokens),
			formatNumber(b.CacheReadTokens),
			formatNumber(b.TotalTokensWithCache),
		}
	}

	return f.writeTable(w, header, rows)
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	// Calculate column widths.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Write header.
	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	// Write separator.
	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	// Write rows.
	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	// Add spacing.
	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	for i, cell := range cells {
		if i > 0 {
			if f.config.Compact {
				if _, err := fmt.Fprint(w, " "); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprint(w, "  "); err != nil {
					return err
				}
			}
		}

		format := fmt.Sprintf("%%-%ds", widths[i])
		if _, err := fmt.Fprintf(w, format, cell); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}
