package display

import (
	"encoding/json"
	"io"

	"github.com/Momoyeyu/token-usage/pkg/merge"
	"github.com/Momoyeyu/token-usage/pkg/stats"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// FormatReport implements Formatter.FormatReport.
func (f *jsonFormatter) FormatReport(w io.Writer, r *stats.Report) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(r)
}

// FormatTeam implements Formatter.FormatTeam.
func (f *jsonFormatter) FormatTeam(w io.Writer, t *merge.TeamReport) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(t)
}
