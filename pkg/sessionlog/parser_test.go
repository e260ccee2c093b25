package sessionlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Momoyeyu/token-usage/pkg/event"
)

const sampleLog = `{"type":"user","timestamp":"2024-06-01T10:00:00Z","sessionId":"550e8400-e29b-41d4-a716-446655440000","message":{"content":"write a parser"}}
{"type":"assistant","timestamp":"2024-06-01T10:00:05Z","sessionId":"550e8400-e29b-41d4-a716-446655440000","requestId":"req_1","message":{"model":"claude-3-5-sonnet-20241022","content":[{"type":"text"}],"usage":{"input_tokens":100,"output_tokens":50,"cache_creation_input_tokens":2000,"cache_read_input_tokens":8000}}}
{"type":"assistant","timestamp":"2024-06-01T10:00:10Z","sessionId":"550e8400-e29b-41d4-a716-446655440000","requestId":"req_2","message":{"model":"claude-3-5-sonnet-20241022","content":[{"type":"tool_use"},{"type":"text"}],"usage":{"input_tokens":200,"output_tokens":80,"cache_creation_input_tokens":0,"cache_read_input_tokens":9000}}}
`

// TestParseReader tests normalization of a well-formed log.
func TestParseReader(t *testing.T) {
	p := New()

	res, err := p.ParseReader(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	if len(res.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(res.Events))
	}
	if res.ParseErrors != 0 {
		t.Errorf("ParseErrors = %d, want 0", res.ParseErrors)
	}
	if res.UserMessages != 1 {
		t.Errorf("UserMessages = %d, want 1", res.UserMessages)
	}
	if res.AssistantMessages != 2 {
		t.Errorf("AssistantMessages = %d, want 2", res.AssistantMessages)
	}
	if res.ToolCalls != 1 {
		t.Errorf("ToolCalls = %d, want 1", res.ToolCalls)
	}

	ev := res.Events[0]
	if ev.Source != event.SourceSessionLog {
		t.Errorf("Source = %q, want session-log", ev.Source)
	}
	if ev.Model != "claude-3-5-sonnet-20241022" {
		t.Errorf("Model = %q", ev.Model)
	}
	if ev.InputTokens != 100 || ev.OutputTokens != 50 {
		t.Errorf("input/output = %d/%d, want 100/50", ev.InputTokens, ev.OutputTokens)
	}
	if ev.CacheWriteTokens != 2000 || ev.CacheReadTokens != 8000 {
		t.Errorf("cache write/read = %d/%d, want 2000/8000", ev.CacheWriteTokens, ev.CacheReadTokens)
	}
	if ev.RequestID != "req_1" {
		t.Errorf("RequestID = %q, want req_1", ev.RequestID)
	}
	if ev.SessionID != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("SessionID = %q", ev.SessionID)
	}
	if ev.RequestWeight != 1 {
		t.Errorf("RequestWeight = %v, want 1", ev.RequestWeight)
	}
	if ev.Kind != event.KindChargeable {
		t.Errorf("Kind = %v, want chargeable", ev.Kind)
	}

	want := time.Date(2024, 6, 1, 10, 0, 5, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, want)
	}
}

// TestParseReaderMalformedLines tests that bad lines are tallied, not fatal.
func TestParseReaderMalformedLines(t *testing.T) {
	input := `not json at all
{"type":"assistant","timestamp":"2024-06-01T10:00:00Z","requestId":"req_1","message":{"model":"m","usage":{"input_tokens":1,"output_tokens":1}}}
{"type":"assistant","message":{"model":"m","usage":{"input_tokens":1,"output_tokens":1}}}
{broken json
`

	res, err := New().ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	if len(res.Events) != 1 {
		t.Errorf("got %d events, want 1", len(res.Events))
	}
	// Two unparsable lines plus one record without a timestamp.
	if res.ParseErrors != 3 {
		t.Errorf("ParseErrors = %d, want 3", res.ParseErrors)
	}
}

// TestParseReaderOtherRecordTypes tests that record types without
// usage, like the summary lines written at the top of session files,
// are skipped without an error tally.
func TestParseReaderOtherRecordTypes(t *testing.T) {
	input := `{"type":"summary","summary":"Build a JSONL parser","leafUuid":"9f1c2d3e-4b5a-6789-abcd-ef0123456789"}
{"type":"system","content":"compacted"}
{"type":"assistant","timestamp":"2024-06-01T10:00:00Z","requestId":"req_1","message":{"model":"m","usage":{"input_tokens":1,"output_tokens":1}}}
`

	res, err := New().ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	if res.ParseErrors != 0 {
		t.Errorf("ParseErrors = %d, want 0", res.ParseErrors)
	}
	if len(res.Events) != 1 {
		t.Errorf("got %d events, want 1", len(res.Events))
	}
}

// TestParseReaderWindowedActivity tests that a windowed parser counts
// activity only for records inside the window while still returning
// every usage event.
func TestParseReaderWindowedActivity(t *testing.T) {
	input := `{"type":"user","timestamp":"2024-06-01T10:00:00Z","message":{"content":"in window"}}
{"type":"assistant","timestamp":"2024-06-01T10:00:05Z","requestId":"req_1","message":{"model":"m","content":[{"type":"text"},{"type":"tool_use"}],"usage":{"input_tokens":1,"output_tokens":1}}}
{"type":"user","timestamp":"2024-06-05T10:00:00Z","message":{"content":"out of window"}}
{"type":"assistant","timestamp":"2024-06-05T10:00:05Z","requestId":"req_2","message":{"model":"m","content":[{"type":"text"}],"usage":{"input_tokens":1,"output_tokens":1}}}
`

	w := event.Window{
		Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
	}

	res, err := NewWindowed(w).ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	if res.UserMessages != 1 {
		t.Errorf("UserMessages = %d, want 1", res.UserMessages)
	}
	if res.AssistantMessages != 1 {
		t.Errorf("AssistantMessages = %d, want 1", res.AssistantMessages)
	}
	if res.ToolCalls != 1 {
		t.Errorf("ToolCalls = %d, want 1", res.ToolCalls)
	}

	// Events are not window-filtered at parse time.
	if len(res.Events) != 2 {
		t.Errorf("got %d events, want 2", len(res.Events))
	}
}

// TestParseReaderEmptyLines tests that blank lines are skipped silently.
func TestParseReaderEmptyLines(t *testing.T) {
	input := "\n\n" + `{"type":"assistant","timestamp":"2024-06-01T10:00:00Z","message":{"model":"m","usage":{"input_tokens":1,"output_tokens":1}}}` + "\n\n"

	res, err := New().ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	if len(res.Events) != 1 || res.ParseErrors != 0 {
		t.Errorf("events=%d parseErrors=%d, want 1/0", len(res.Events), res.ParseErrors)
	}
}

// TestParseReaderNoUsage tests that assistant records without usage
// count activity but yield no event.
func TestParseReaderNoUsage(t *testing.T) {
	input := `{"type":"assistant","timestamp":"2024-06-01T10:00:00Z","message":{"model":"m","content":[{"type":"text"}]}}
{"type":"assistant","timestamp":"2024-06-01T10:00:01Z"}
`

	res, err := New().ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	if len(res.Events) != 0 {
		t.Errorf("got %d events, want 0", len(res.Events))
	}
	if res.AssistantMessages != 1 {
		t.Errorf("AssistantMessages = %d, want 1", res.AssistantMessages)
	}
	if res.ParseErrors != 0 {
		t.Errorf("ParseErrors = %d, want 0", res.ParseErrors)
	}
}

// TestParseReaderClampsNegatives tests token clamping.
func TestParseReaderClampsNegatives(t *testing.T) {
	input := `{"type":"assistant","timestamp":"2024-06-01T10:00:00Z","message":{"model":"m","usage":{"input_tokens":-5,"output_tokens":10,"cache_creation_input_tokens":-1,"cache_read_input_tokens":-1}}}
`

	res, err := New().ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}

	ev := res.Events[0]
	if ev.InputTokens != 0 || ev.CacheWriteTokens != 0 || ev.CacheReadTokens != 0 {
		t.Errorf("negative counts not clamped: %+v", ev)
	}
	if ev.OutputTokens != 10 {
		t.Errorf("OutputTokens = %d, want 10", ev.OutputTokens)
	}
}

// TestParseReaderUnknownModel tests the model fallback.
func TestParseReaderUnknownModel(t *testing.T) {
	input := `{"type":"assistant","timestamp":"2024-06-01T10:00:00Z","message":{"usage":{"input_tokens":1,"output_tokens":1}}}
`

	res, err := New().ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}
	if res.Events[0].Model != "unknown" {
		t.Errorf("Model = %q, want unknown", res.Events[0].Model)
	}
}

// TestParseReaderZonelessTimestamp tests that zoneless timestamps are UTC.
func TestParseReaderZonelessTimestamp(t *testing.T) {
	input := `{"type":"assistant","timestamp":"2024-06-01T10:00:00","message":{"model":"m","usage":{"input_tokens":1,"output_tokens":1}}}
`

	res, err := New().ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}

	want := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if !res.Events[0].Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", res.Events[0].Timestamp, want)
	}
}

// TestParseFile tests offset-based incremental parsing.
func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(sampleLog), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	p := New()

	res, offset, err := p.ParseFile(path, 0)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(res.Events) != 2 {
		t.Errorf("got %d events, want 2", len(res.Events))
	}
	if offset != int64(len(sampleLog)) {
		t.Errorf("offset = %d, want %d", offset, len(sampleLog))
	}

	// Nothing new past the returned offset.
	res, offset2, err := p.ParseFile(path, offset)
	if err != nil {
		t.Fatalf("ParseFile() at offset error = %v", err)
	}
	if len(res.Events) != 0 {
		t.Errorf("got %d events past EOF offset, want 0", len(res.Events))
	}
	if offset2 != offset {
		t.Errorf("offset moved from %d to %d without new data", offset, offset2)
	}

	// Appended lines are picked up from the old offset.
	appended := `{"type":"assistant","timestamp":"2024-06-01T11:00:00Z","requestId":"req_3","message":{"model":"m","usage":{"input_tokens":1,"output_tokens":1}}}` + "\n"
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("failed to open fixture for append: %v", err)
	}
	if _, err := f.WriteString(appended); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	_ = f.Close()

	res, _, err = p.ParseFile(path, offset)
	if err != nil {
		t.Fatalf("ParseFile() after append error = %v", err)
	}
	if len(res.Events) != 1 || res.Events[0].RequestID != "req_3" {
		t.Errorf("incremental parse got %d events, want 1 with req_3", len(res.Events))
	}
}

// TestParseFileNotFound tests the error path for missing files.
func TestParseFileNotFound(t *testing.T) {
	_, _, err := New().ParseFile("/nonexistent/session.jsonl", 0)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestResultMerge tests result folding across scopes.
func TestResultMerge(t *testing.T) {
	a := &Result{
		Events:            []event.Usage{{RequestID: "req_1"}},
		UserMessages:      1,
		AssistantMessages: 2,
		ToolCalls:         3,
		ParseErrors:       1,
	}
	b := &Result{
		Events:       []event.Usage{{RequestID: "req_2"}},
		UserMessages: 4,
		ToolCalls:    1,
	}

	a.Merge(b)

	if len(a.Events) != 2 {
		t.Errorf("merged events = %d, want 2", len(a.Events))
	}
	if a.UserMessages != 5 || a.AssistantMessages != 2 || a.ToolCalls != 4 || a.ParseErrors != 1 {
		t.Errorf("merged counters = %+v", a)
	}
}

// TestContentListDecoding tests both content encodings.
func TestContentListDecoding(t *testing.T) {
	input := `{"type":"user","timestamp":"2024-06-01T10:00:00Z","message":{"content":[{"type":"text"},{"type":"tool_result"}]}}
{"type":"user","timestamp":"2024-06-01T10:00:01Z","message":{"content":"plain prompt"}}
{"type":"user","timestamp":"2024-06-01T10:00:02Z","message":{"content":[{"type":"tool_result"}]}}
`

	res, err := New().ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	// Only content with text counts as a user message.
	if res.UserMessages != 2 {
		t.Errorf("UserMessages = %d, want 2", res.UserMessages)
	}
}
