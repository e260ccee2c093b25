package stats

import "github.com/Momoyeyu/token-usage/pkg/event"

// ComparableTotal is the reconciled token-volume metric that lets the
// two accounting schemes sit side by side.
//
// The session-log source reports new input tokens separately from cache
// tokens, so its comparable total is the full volume: input + output +
// cache write + cache read. The tabular source's reported total already
// includes cache effects by construction and is taken as-is. Without
// this reconciliation the two sources differ by orders of magnitude
// (new-input-only vs cache-inclusive) and naive comparison misleads.
//
// This is a volume metric, not a billed-cost metric: cache reads are
// billed at a discount but count at full weight here.
func ComparableTotal(ev event.Usage) int {
	if ev.Source == event.SourceTabularExport {
		return ev.ReportedTotal
	}
	return ev.InputTokens + ev.OutputTokens + ev.CacheWriteTokens + ev.CacheReadTokens
}

// APITotal is each source's native total_tokens contribution: new input
// + output for the session-log source, the reported (cache-inclusive)
// total for the tabular source.
func APITotal(ev event.Usage) int {
	if ev.Source == event.SourceTabularExport {
		return ev.ReportedTotal
	}
	return ev.InputTokens + ev.OutputTokens
}
