package sessionlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Momoyeyu/token-usage/pkg/event"
)

const (
	// MaxFileSize is the maximum allowed JSONL file size (100MB).
	// Larger files are rejected to prevent memory exhaustion.
	MaxFileSize = 100 * 1024 * 1024

	// MaxLineLength is the maximum allowed line length (1MB).
	MaxLineLength = 1024 * 1024
)

// Parser normalizes session log files into usage events.
type Parser interface {
	// ParseFile reads a JSONL file from the given byte offset and
	// returns the parse result along with the new offset.
	//
	// Malformed lines are tallied in Result.ParseErrors and skipped;
	// only I/O-level failures return an error. The returned offset can
	// be handed back for incremental reading.
	//
	// Thread-safety: safe to call concurrently with different files.
	ParseFile(path string, offset int64) (*Result, int64, error)

	// ParseReader normalizes records from r until EOF.
	ParseReader(r io.Reader) (*Result, error)
}

// jsonlParser implements Parser.
type jsonlParser struct {
	window event.Window
}

// New creates a new session log parser.
func New() Parser {
	return &jsonlParser{}
}

// NewWindowed creates a parser whose activity counters only cover
// records inside w. Usage events are still returned in full so dedup
// can run over the whole file before window filtering.
func NewWindowed(w event.Window) Parser {
	return &jsonlParser{window: w}
}

// ParseFile implements Parser.ParseFile.
func (p *jsonlParser) ParseFile(path string, offset int64) (*Result, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Size() > MaxFileSize {
		return nil, 0, fmt.Errorf("%w: size=%d, max=%d",
			ErrFileTooLarge, info.Size(), MaxFileSize)
	}

	f, err := os.Open(path) // nolint:gosec // path comes from discovery
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if offset > 0 {
		if _, seekErr := f.Seek(offset, io.SeekStart); seekErr != nil {
			return nil, 0, fmt.Errorf("failed to seek to offset %d: %w", offset, seekErr)
		}
	}

	res, err := p.ParseReader(f)
	if err != nil {
		return nil, 0, err
	}

	newOffset, seekErr := f.Seek(0, io.SeekCurrent)
	if seekErr != nil {
		newOffset = info.Size()
	}

	return res, newOffset, nil
}

// ParseReader implements Parser.ParseReader.
func (p *jsonlParser) ParseReader(r io.Reader) (*Result, error) {
	res := &Result{
		Events: make([]event.Usage, 0, 100),
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, MaxLineLength)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		if err := p.parseLine(line, res); err != nil {
			res.ParseErrors++
		}
	}

	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scanner error at line %d: %w", lineNum, err)
	}

	return res, nil
}

// parseLine normalizes one line into res. Returns an error only for
// lines that cannot represent any record. Record types other than
// user and assistant (summary lines, for example) carry no usage and
// no timestamp, so they are skipped without a tally.
func (p *jsonlParser) parseLine(line string, res *Result) error {
	var entry Entry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}

	switch entry.Type {
	case recordUser:
		ts, err := parseTimestamp(entry.Timestamp)
		if err != nil {
			return err
		}
		if !p.window.Contains(ts) {
			return nil
		}

		if entry.Message != nil && (entry.Message.Content.IsText || entry.Message.Content.HasTextBlock()) {
			res.UserMessages++
		}

	case recordAssistant:
		ts, err := parseTimestamp(entry.Timestamp)
		if err != nil {
			return err
		}

		if entry.Message == nil {
			return nil
		}

		msg := entry.Message
		if p.window.Contains(ts) {
			for _, b := range msg.Content.Blocks {
				switch b.Type {
				case "text":
					res.AssistantMessages++
				case "tool_use":
					res.ToolCalls++
				}
			}
		}

		if msg.Usage == nil {
			return nil
		}

		res.Events = append(res.Events, normalize(ts, &entry, msg))
	}

	return nil
}

// normalize converts an assistant record into a usage event, clamping
// negative token counts to 0.
func normalize(ts time.Time, entry *Entry, msg *Message) event.Usage {
	model := msg.Model
	if model == "" {
		model = "unknown"
	}

	return event.Usage{
		Timestamp:        ts,
		Source:           event.SourceSessionLog,
		Model:            model,
		Kind:             event.KindChargeable,
		InputTokens:      clamp(msg.Usage.InputTokens),
		OutputTokens:     clamp(msg.Usage.OutputTokens),
		CacheWriteTokens: clamp(msg.Usage.CacheCreationInputTokens),
		CacheReadTokens:  clamp(msg.Usage.CacheReadInputTokens),
		RequestWeight:    1,
		RequestID:        entry.RequestID,
		SessionID:        entry.SessionID,
	}
}

// clamp coerces negative token counts to 0 so malformed input cannot
// corrupt the aggregate.
func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// parseTimestamp parses an ISO-8601 timestamp. Timestamps without a
// zone are taken as UTC to match the log format's convention.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrMissingTimestamp
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrMissingTimestamp, s)
}
