// Package sessionlog parses the line-oriented JSONL session log source
// and normalizes assistant usage records into event.Usage values.
//
// Each line is an independent JSON record with a "type" discriminator.
// Only assistant records carrying a usage object yield usage events;
// user and tool records contribute to activity counters. Malformed
// lines are skipped and tallied rather than aborting the run.
//
// Example usage:
//
//	p := sessionlog.New()
//	res, _, err := p.ParseFile("/path/to/session.jsonl", 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("events=%d skipped=%d\n", len(res.Events), res.ParseErrors)
package sessionlog

import (
	"encoding/json"

	"github.com/Momoyeyu/token-usage/pkg/event"
)

// Record kinds appearing in the "type" field.
const (
	recordUser      = "user"
	recordAssistant = "assistant"
)

// Entry is one raw JSONL line before normalization.
type Entry struct {
	Type      string   `json:"type"`
	Timestamp string   `json:"timestamp"`
	SessionID string   `json:"sessionId"`
	RequestID string   `json:"requestId"`
	Message   *Message `json:"message"`
}

// Message holds the API response details of an assistant record.
type Message struct {
	Model   string      `json:"model"`
	Usage   *TokenUsage `json:"usage"`
	Content ContentList `json:"content"`
}

// TokenUsage carries the four reported token counters. Missing fields
// default to 0 through normal JSON decoding.
type TokenUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

// Block is one content block of a message.
type Block struct {
	Type string `json:"type"`
}

// ContentList tolerates both content encodings used by the log format:
// a plain string (user prompts) or an array of typed blocks.
type ContentList struct {
	// Blocks is populated when content was an array.
	Blocks []Block

	// IsText is true when content was a plain string.
	IsText bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ContentList) UnmarshalJSON(data []byte) error {
	var blocks []Block
	if err := json.Unmarshal(data, &blocks); err == nil {
		c.Blocks = blocks
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.IsText = true
		return nil
	}

	// Unknown content shape is not fatal; the record may still carry
	// usable usage data.
	return nil
}

// HasTextBlock reports whether any block has type "text".
func (c ContentList) HasTextBlock() bool {
	for _, b := range c.Blocks {
		if b.Type == "text" {
			return true
		}
	}
	return false
}

// Result is the outcome of parsing one session file scope.
type Result struct {
	// Events are the normalized usage events in file order. Dedup keys
	// are unique within this scope only; run event.Deduplicate on
	// Events before aggregation.
	Events []event.Usage

	// Activity counters for the summary.
	UserMessages      int
	AssistantMessages int
	ToolCalls         int

	// ParseErrors counts lines that could not be parsed at all.
	ParseErrors int
}

// Merge folds another result into r. Used when one logical scope spans
// several incremental reads of the same file.
func (r *Result) Merge(other *Result) {
	r.Events = append(r.Events, other.Events...)
	r.UserMessages += other.UserMessages
	r.AssistantMessages += other.AssistantMessages
	r.ToolCalls += other.ToolCalls
	r.ParseErrors += other.ParseErrors
}
