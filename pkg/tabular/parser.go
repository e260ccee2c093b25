package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Momoyeyu/token-usage/pkg/event"
)

// Parser normalizes tabular export files into usage events.
type Parser interface {
	// ParseFile reads and normalizes one CSV export file.
	//
	// Malformed rows are tallied in Result.ParseErrors and skipped;
	// only I/O-level or header-level failures return an error.
	ParseFile(path string) (*Result, error)

	// ParseReader normalizes CSV rows from r until EOF.
	ParseReader(r io.Reader) (*Result, error)
}

// csvParser implements Parser.
type csvParser struct{}

// New creates a new tabular export parser.
func New() Parser {
	return &csvParser{}
}

// ParseFile implements Parser.ParseFile.
func (p *csvParser) ParseFile(path string) (*Result, error) {
	f, err := os.Open(path) // nolint:gosec // path comes from discovery
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return p.ParseReader(f)
}

// ParseReader implements Parser.ParseReader.
func (p *csvParser) ParseReader(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // rows may be ragged; handled per field

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	if _, ok := cols[colDate]; !ok {
		return nil, ErrMissingDateColumn
	}

	res := &Result{
		Events: make([]event.Usage, 0, 100),
	}

	for {
		row, readErr := cr.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// Corrupt row; keep going.
			res.ParseErrors++
			continue
		}

		ev, ok := normalizeRow(row, cols)
		if !ok {
			res.ParseErrors++
			continue
		}

		res.Events = append(res.Events, ev)
	}

	return res, nil
}

// normalizeRow converts one data row into a usage event. Returns false
// when the row carries no usable timestamp.
func normalizeRow(row []string, cols map[string]int) (event.Usage, bool) {
	ts, err := parseTimestamp(field(row, cols, colDate))
	if err != nil {
		return event.Usage{}, false
	}

	model := field(row, cols, colModel)
	if model == "" {
		model = "unknown"
	}

	inputWithCache := int(parseNumber(field(row, cols, colInputWithCache)))
	inputNoCache := int(parseNumber(field(row, cols, colInputNoCache)))

	return event.Usage{
		Timestamp:        ts,
		Source:           event.SourceTabularExport,
		Model:            model,
		Kind:             classifyKind(field(row, cols, colKind)),
		InputTokens:      clampInt(inputNoCache),
		OutputTokens:     clampInt(int(parseNumber(field(row, cols, colOutputTokens)))),
		CacheWriteTokens: event.DerivedCacheWrite(clampInt(inputWithCache), clampInt(inputNoCache)),
		CacheReadTokens:  clampInt(int(parseNumber(field(row, cols, colCacheRead)))),
		ReportedTotal:    clampInt(int(parseNumber(field(row, cols, colTotalTokens)))),
		RequestWeight:    parseNumber(field(row, cols, colRequests)),
		User:             field(row, cols, colUser),
	}, true
}

// classifyKind maps the export's free-form Kind column onto the
// enumerated record kind. Errored and free rows are excluded from
// totals but still counted.
func classifyKind(kind string) event.Kind {
	if strings.Contains(kind, "Errored") || strings.Contains(kind, "No Charge") {
		return event.KindExcluded
	}
	return event.KindChargeable
}

// field returns the named cell, or "" when the column is absent or the
// row is too short.
func field(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseNumber parses a numeric cell, tolerating thousands separators
// and blanks. Unparsable values default to 0.
func parseNumber(s string) float64 {
	if s == "" {
		return 0
	}

	n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return n
}

// clampInt coerces negative token counts to 0.
func clampInt(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// parseTimestamp parses the Date column. Timestamps without a zone are
// taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unparsable timestamp: %q", s)
}
