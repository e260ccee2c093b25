package event

import "time"

// Window is a time range used to filter events.
//
// Start is always inclusive. End is exclusive by default; set
// InclusiveEnd to include the end instant itself. A zero Start or End
// leaves that side of the window unbounded.
type Window struct {
	Start        time.Time
	End          time.Time
	InclusiveEnd bool
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if w.End.IsZero() {
		return true
	}
	if w.InclusiveEnd {
		return !t.After(w.End)
	}
	return t.Before(w.End)
}

// FilterRange returns the subsequence of events whose timestamps fall
// inside the window. The input slice is not modified. Out-of-range
// timestamps are not an error; they are silently dropped.
func FilterRange(events []Usage, w Window) []Usage {
	out := make([]Usage, 0, len(events))
	for _, ev := range events {
		if w.Contains(ev.Timestamp) {
			out = append(out, ev)
		}
	}
	return out
}
