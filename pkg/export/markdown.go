package export

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Momoyeyu/token-usage/pkg/merge"
	"github.com/Momoyeyu/token-usage/pkg/stats"
)

// statsDataPattern matches the embedded stats block in an exported
// Markdown report.
var statsDataPattern = regexp.MustCompile(`(?s)<!--STATS_DATA\s*(\{.*?\})\s*STATS_DATA-->`)

// PersonalMarkdown renders one member's report as Markdown with the
// bundle embedded in an HTML comment for lossless re-ingestion.
func PersonalMarkdown(b *merge.Bundle) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}

	var sl, te stats.Summary
	hasTabular := b.TabularExport != nil
	if b.SessionLog != nil {
		sl = b.SessionLog.Summary
	}
	if hasTabular {
		te = b.TabularExport.Summary
	}

	start, end := bundleWindow(b)

	var sb strings.Builder
	sb.WriteString("# Usage Statistics Report\n\n")
	fmt.Fprintf(&sb, "**User**: %s\n", b.Username)
	fmt.Fprintf(&sb, "**Period**: %s ~ %s\n", formatDate(start), formatDate(end))
	fmt.Fprintf(&sb, "**Generated**: %s\n\n---\n\n", time.Now().UTC().Format("2006-01-02 15:04"))

	sb.WriteString("## Totals\n\n")
	if hasTabular {
		sb.WriteString("| Metric | Session Log | Tabular Export | Delta |\n")
		sb.WriteString("|--------|-------------|----------------|-------|\n")
		writeRow(&sb, "Total tokens", sl.TotalTokensWithCache, te.TotalTokensWithCache)
		writeRow(&sb, "Input tokens", sl.InputTokens, te.InputTokens)
		writeRow(&sb, "Cache write tokens", sl.CacheCreationTokens, te.CacheCreationTokens)
		writeRow(&sb, "Cache read tokens", sl.CacheReadTokens, te.CacheReadTokens)
		writeRow(&sb, "Output tokens", sl.OutputTokens, te.OutputTokens)
		fmt.Fprintf(&sb, "| Active days | %d | %d | %+d |\n", sl.ActiveDays, te.ActiveDays, sl.ActiveDays-te.ActiveDays)
		fmt.Fprintf(&sb, "| Sessions / requests | %d | %d | %+d |\n",
			sl.Sessions, int(te.Requests), sl.Sessions-int(te.Requests))

		if te.TotalTokensWithCache > 0 {
			ratio := float64(sl.TotalTokensWithCache) / float64(te.TotalTokensWithCache) * 100
			fmt.Fprintf(&sb, "\n## Migration Progress\n\n**Session log / tabular export = %.1f%%**\n", ratio)
		}
	} else {
		sb.WriteString("| Metric | Session Log |\n")
		sb.WriteString("|--------|-------------|\n")
		fmt.Fprintf(&sb, "| Total tokens | %s |\n", formatTokens(sl.TotalTokensWithCache))
		fmt.Fprintf(&sb, "| Input tokens | %s |\n", formatTokens(sl.InputTokens))
		fmt.Fprintf(&sb, "| Cache write tokens | %s |\n", formatTokens(sl.CacheCreationTokens))
		fmt.Fprintf(&sb, "| Cache read tokens | %s |\n", formatTokens(sl.CacheReadTokens))
		fmt.Fprintf(&sb, "| Output tokens | %s |\n", formatTokens(sl.OutputTokens))
		fmt.Fprintf(&sb, "| Active days | %d |\n", sl.ActiveDays)
		fmt.Fprintf(&sb, "| Sessions | %d |\n", sl.Sessions)
	}

	sb.WriteString("\n---\n\n*Report generated by token-usage*\n\n")

	if err := embedBundle(&sb, b); err != nil {
		return "", err
	}

	return sb.String(), nil
}

// TeamMarkdown renders a merged team report as Markdown.
func TeamMarkdown(t *merge.TeamReport) string {
	var sb strings.Builder

	sb.WriteString("# Team Usage Statistics Report\n\n")
	fmt.Fprintf(&sb, "**Members**: %d\n", t.Members)
	fmt.Fprintf(&sb, "**Period**: %s ~ %s\n", formatDate(t.DateRange.Start), formatDate(t.DateRange.End))
	fmt.Fprintf(&sb, "**Generated**: %s\n\n---\n\n", time.Now().UTC().Format("2006-01-02 15:04"))

	sb.WriteString("## Overview\n\n")
	sb.WriteString("| Source | Total Tokens |\n|--------|-------------|\n")
	if t.SessionLog != nil {
		fmt.Fprintf(&sb, "| Session log | %s |\n", formatTokens(t.SessionLog.Summary.TotalTokensWithCache))
	}
	if t.TabularExport != nil {
		fmt.Fprintf(&sb, "| Tabular export | %s |\n", formatTokens(t.TabularExport.Summary.TotalTokensWithCache))
	}
	fmt.Fprintf(&sb, "| Combined | %s |\n", formatTokens(t.Combined.TotalTokens))

	if len(t.ByMember) > 0 {
		sb.WriteString("\n## Members\n\n")
		sb.WriteString("| Member | Session Log | Tabular Export |\n|--------|-------------|----------------|\n")
		for _, m := range t.ByMember {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n",
				m.Username,
				formatTokens(m.SessionLogTokens),
				formatTokens(m.TabularExportTokens))
		}
	}

	sb.WriteString("\n---\n\n*Report generated by token-usage*\n")
	return sb.String()
}

// ParseMarkdown extracts and validates the bundle embedded in an
// exported Markdown report.
func ParseMarkdown(content string) (*merge.Bundle, error) {
	m := statsDataPattern.FindStringSubmatch(content)
	if m == nil {
		return nil, ErrNoEmbeddedData
	}

	var b merge.Bundle
	if err := json.Unmarshal([]byte(m[1]), &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEmbeddedData, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEmbeddedData, err)
	}

	return &b, nil
}

// embedBundle appends the machine-readable stats block.
func embedBundle(sb *strings.Builder, b *merge.Bundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to embed bundle: %w", err)
	}

	fmt.Fprintf(sb, "<!--STATS_DATA\n%s\nSTATS_DATA-->\n", data)
	return nil
}

// writeRow writes one comparison row with a signed delta column.
func writeRow(sb *strings.Builder, label string, a, b int) {
	fmt.Fprintf(sb, "| %s | %s | %s | %s |\n",
		label, formatTokens(a), formatTokens(b), formatDelta(a-b))
}

// bundleWindow picks the report window from whichever report is set.
func bundleWindow(b *merge.Bundle) (time.Time, time.Time) {
	if b.SessionLog != nil {
		return b.SessionLog.Metadata.StartDate, b.SessionLog.Metadata.EndDate
	}
	return b.TabularExport.Metadata.StartDate, b.TabularExport.Metadata.EndDate
}

// formatDate renders a day, or N/A for the zero time.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02")
}

// formatTokens renders a token count with a K/M suffix.
func formatTokens(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// formatDelta renders a signed token delta.
func formatDelta(n int) string {
	if n > 0 {
		return "+" + formatTokens(n)
	}
	if n < 0 {
		return "-" + formatTokens(-n)
	}
	return "0"
}
