package event

// Deduplicate collapses events that share a non-empty dedup key, keeping
// the last occurrence. Later records in a stream carry the final token
// counts for a streamed response; earlier partials undercount output
// tokens.
//
// Events with an empty dedup key are never collapsed against each other.
// Relative order of kept events is preserved, and the input slice is not
// modified.
//
// Dedup keys are assumed unique only within one logical scope (a session
// file or an upload batch); callers must not feed unrelated scopes into
// a single call unless ids are known globally unique.
//
// Deduplicate is idempotent: applying it to its own output returns an
// equal sequence.
func Deduplicate(events []Usage) []Usage {
	last := make(map[string]int, len(events))
	for i, ev := range events {
		if key := ev.DedupKey(); key != "" {
			last[key] = i
		}
	}

	out := make([]Usage, 0, len(events))
	for i, ev := range events {
		if key := ev.DedupKey(); key != "" && last[key] != i {
			continue
		}
		out = append(out, ev)
	}

	return out
}
