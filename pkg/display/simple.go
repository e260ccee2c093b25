package display

import (
	"fmt"
	"io"

	"github.com/Momoyeyu/token-usage/pkg/merge"
	"github.com/Momoyeyu/token-usage/pkg/stats"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatReport implements Formatter.FormatReport.
func (f *simpleFormatter) FormatReport(w io.Writer, r *stats.Report) error {
	s := r.Summary
	_, err := fmt.Fprintf(w, "%s: %d records | Input: %s | Output: %s | Total: %s (w/ cache: %s) | Active days: %d\n",
		r.Metadata.Source,
		s.Records,
		formatNumber(s.InputTokens),
		formatNumber(s.OutputTokens),
		formatNumber(s.TotalTokens),
		formatNumber(s.TotalTokensWithCache),
		s.ActiveDays)
	return err
}

// FormatTeam implements Formatter.FormatTeam.
func (f *simpleFormatter) FormatTeam(w io.Writer, t *merge.TeamReport) error {
	if _, err := fmt.Fprintf(w, "%d members | Combined: %s tokens\n",
		t.Members,
		formatNumber(t.Combined.TotalTokens)); err != nil {
		return err
	}

	for i, m := range t.ByMember {
		if _, err := fmt.Fprintf(w, "#%d: %s - %s tokens\n",
			i+1,
			m.Username,
			formatNumber(m.SessionLogTokens+m.TabularExportTokens)); err != nil {
			return err
		}
	}

	return nil
}
