package tabular

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Momoyeyu/token-usage/pkg/event"
)

const sampleHeader = "Date,User,Kind,Model,Max Mode,Input (w/ Cache Write),Input (w/o Cache Write),Cache Read,Output Tokens,Total Tokens,Requests"

const sampleExport = sampleHeader + `
2024-06-01T10:00:00Z,alice@example.com,Included,claude-3-5-sonnet-20241022,No,1500,1000,70000,500,73000,1
2024-06-01T11:00:00Z,alice@example.com,Errored,claude-3-5-sonnet-20241022,No,100,100,0,0,200,1
2024-06-02T09:00:00Z,bob@example.com,Included,claude-3-opus-20240229,Yes,"2,000","1,500",9000,250,11750,0.5
`

// TestParseReader tests normalization of a well-formed export.
func TestParseReader(t *testing.T) {
	res, err := New().ParseReader(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	if len(res.Events) != 3 {
		t.Fatalf("got %d events, want 3", len(res.Events))
	}
	if res.ParseErrors != 0 {
		t.Errorf("ParseErrors = %d, want 0", res.ParseErrors)
	}

	ev := res.Events[0]
	if ev.Source != event.SourceTabularExport {
		t.Errorf("Source = %q, want tabular-export", ev.Source)
	}
	if ev.User != "alice@example.com" {
		t.Errorf("User = %q", ev.User)
	}
	if ev.Kind != event.KindChargeable {
		t.Errorf("Kind = %v, want chargeable", ev.Kind)
	}
	if ev.InputTokens != 1000 {
		t.Errorf("InputTokens = %d, want the without-cache-write column 1000", ev.InputTokens)
	}
	if ev.CacheWriteTokens != 500 {
		t.Errorf("CacheWriteTokens = %d, want derived 500", ev.CacheWriteTokens)
	}
	if ev.CacheReadTokens != 70000 || ev.OutputTokens != 500 {
		t.Errorf("cache read/output = %d/%d, want 70000/500", ev.CacheReadTokens, ev.OutputTokens)
	}
	if ev.ReportedTotal != 73000 {
		t.Errorf("ReportedTotal = %d, want 73000", ev.ReportedTotal)
	}
	if ev.RequestWeight != 1 {
		t.Errorf("RequestWeight = %v, want 1", ev.RequestWeight)
	}

	want := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, want)
	}
}

// TestParseReaderExcludedKinds tests errored/free row classification.
func TestParseReaderExcludedKinds(t *testing.T) {
	input := sampleHeader + `
2024-06-01T10:00:00Z,a,Errored,m,No,10,10,0,0,20,1
2024-06-01T10:01:00Z,a,"Errored, Not Charged",m,No,10,10,0,0,20,1
2024-06-01T10:02:00Z,a,No Charge,m,No,10,10,0,0,20,1
2024-06-01T10:03:00Z,a,Included,m,No,10,10,0,0,20,1
2024-06-01T10:04:00Z,a,,m,No,10,10,0,0,20,1
`

	res, err := New().ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	wantKinds := []event.Kind{
		event.KindExcluded,
		event.KindExcluded,
		event.KindExcluded,
		event.KindChargeable,
		event.KindChargeable,
	}
	for i, want := range wantKinds {
		if res.Events[i].Kind != want {
			t.Errorf("row %d kind = %v, want %v", i, res.Events[i].Kind, want)
		}
	}
}

// TestParseReaderFractionalRequests tests weighted request parsing.
func TestParseReaderFractionalRequests(t *testing.T) {
	res, err := New().ParseReader(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	if res.Events[2].RequestWeight != 0.5 {
		t.Errorf("RequestWeight = %v, want 0.5", res.Events[2].RequestWeight)
	}
}

// TestParseReaderThousandsSeparators tests numeric cell tolerance.
func TestParseReaderThousandsSeparators(t *testing.T) {
	res, err := New().ParseReader(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	ev := res.Events[2]
	if ev.InputTokens != 1500 {
		t.Errorf("InputTokens = %d, want 1500 from \"1,500\"", ev.InputTokens)
	}
	if ev.CacheWriteTokens != 500 {
		t.Errorf("CacheWriteTokens = %d, want derived 500 from quoted columns", ev.CacheWriteTokens)
	}
}

// TestParseReaderDerivedCacheWriteClamped tests the negative difference case.
func TestParseReaderDerivedCacheWriteClamped(t *testing.T) {
	input := sampleHeader + `
2024-06-01T10:00:00Z,a,Included,m,No,900,1000,0,0,1900,1
`

	res, err := New().ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	if res.Events[0].CacheWriteTokens != 0 {
		t.Errorf("CacheWriteTokens = %d, want clamped 0", res.Events[0].CacheWriteTokens)
	}
}

// TestParseReaderBadRows tests that unusable rows are tallied, not fatal.
func TestParseReaderBadRows(t *testing.T) {
	input := sampleHeader + `
not-a-date,a,Included,m,No,10,10,0,0,20,1
,a,Included,m,No,10,10,0,0,20,1
2024-06-01T10:00:00Z,a,Included,m,No,abc,def,0,xyz,20,1
`

	res, err := New().ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	// Unparsable numbers default to 0; only missing timestamps reject a row.
	if len(res.Events) != 1 {
		t.Errorf("got %d events, want 1", len(res.Events))
	}
	if res.ParseErrors != 2 {
		t.Errorf("ParseErrors = %d, want 2", res.ParseErrors)
	}
	if len(res.Events) == 1 && res.Events[0].InputTokens != 0 {
		t.Errorf("InputTokens = %d, want 0 for unparsable cell", res.Events[0].InputTokens)
	}
}

// TestParseReaderShortRows tests ragged row tolerance.
func TestParseReaderShortRows(t *testing.T) {
	input := sampleHeader + `
2024-06-01T10:00:00Z,a,Included
`

	res, err := New().ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}
	if res.Events[0].Model != "unknown" {
		t.Errorf("Model = %q, want unknown fallback", res.Events[0].Model)
	}
}

// TestParseReaderMissingHeader tests the empty input error.
func TestParseReaderMissingHeader(t *testing.T) {
	_, err := New().ParseReader(strings.NewReader(""))
	if !errors.Is(err, ErrMissingHeader) {
		t.Errorf("error = %v, want ErrMissingHeader", err)
	}
}

// TestParseReaderMissingDateColumn tests the required column check.
func TestParseReaderMissingDateColumn(t *testing.T) {
	input := "User,Kind,Model\na,Included,m\n"

	_, err := New().ParseReader(strings.NewReader(input))
	if !errors.Is(err, ErrMissingDateColumn) {
		t.Errorf("error = %v, want ErrMissingDateColumn", err)
	}
}

// TestParseReaderDayGranularDates tests date-only timestamps.
func TestParseReaderDayGranularDates(t *testing.T) {
	input := sampleHeader + `
2024-06-01,a,Included,m,No,10,10,0,5,25,1
`

	res, err := New().ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}

	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if !res.Events[0].Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", res.Events[0].Timestamp, want)
	}
}

// TestParseFile tests reading an export from disk.
func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage_events.csv")
	if err := os.WriteFile(path, []byte(sampleExport), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	res, err := New().ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(res.Events) != 3 {
		t.Errorf("got %d events, want 3", len(res.Events))
	}
}

// TestParseFileNotFound tests the error path for missing files.
func TestParseFileNotFound(t *testing.T) {
	_, err := New().ParseFile("/nonexistent/usage.csv")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestResultMerge tests result folding across files.
func TestResultMerge(t *testing.T) {
	a := &Result{Events: []event.Usage{{User: "alice"}}, ParseErrors: 1}
	b := &Result{Events: []event.Usage{{User: "bob"}}, ParseErrors: 2}

	a.Merge(b)

	if len(a.Events) != 2 || a.ParseErrors != 3 {
		t.Errorf("merged result = %d events, %d parse errors", len(a.Events), a.ParseErrors)
	}
}
