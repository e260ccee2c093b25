package stats

import (
	"sync"
	"time"

	"github.com/Momoyeyu/token-usage/pkg/event"
)

// aggregator implements the Aggregator interface.
type aggregator struct {
	source event.Source

	mu         sync.RWMutex
	summary    Summary
	byModel    map[string]*Bucket
	byDay      map[string]*Bucket
	byProject  map[string]*Bucket
	byUser     map[string]*Bucket
	sessions   map[string]struct{}
	activeDays map[string]struct{}

	// sessionsByProject backs the per-project session counts.
	sessionsByProject map[string]map[string]struct{}
}

// NewAggregator creates an aggregator for one source's events.
func NewAggregator(source event.Source) Aggregator {
	a := &aggregator{source: source}
	a.reset()
	return a
}

// Add implements Aggregator.Add.
func (a *aggregator) Add(ev event.Usage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !ev.Chargeable() {
		a.summary.ExcludedRecords++
		return
	}

	comparable := ComparableTotal(ev)

	a.summary.InputTokens += ev.InputTokens
	a.summary.OutputTokens += ev.OutputTokens
	a.summary.CacheCreationTokens += ev.CacheWriteTokens
	a.summary.CacheReadTokens += ev.CacheReadTokens
	a.summary.TotalTokens += APITotal(ev)
	a.summary.TotalTokensWithCache += comparable
	a.summary.Requests += ev.RequestWeight
	a.summary.Records++

	if ev.SessionID != "" {
		a.sessions[ev.SessionID] = struct{}{}
	}

	day := event.Day(ev.Timestamp)
	if comparable != 0 {
		a.activeDays[day] = struct{}{}
	}

	addBucket(a.byDay, day, ev, comparable)
	addBucket(a.byModel, ev.Model, ev, comparable)

	if ev.Project != "" {
		addBucket(a.byProject, ev.Project, ev, comparable)
		if ev.SessionID != "" {
			set, ok := a.sessionsByProject[ev.Project]
			if !ok {
				set = make(map[string]struct{})
				a.sessionsByProject[ev.Project] = set
			}
			set[ev.SessionID] = struct{}{}
		}
	}
	if ev.User != "" {
		addBucket(a.byUser, ev.User, ev, comparable)
	}
}

// CountParseErrors implements Aggregator.CountParseErrors.
func (a *aggregator) CountParseErrors(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.summary.ParseErrors += n
}

// CountActivity implements Aggregator.CountActivity.
func (a *aggregator) CountActivity(userMessages, assistantMessages, toolCalls int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.summary.UserMessages += userMessages
	a.summary.AssistantMessages += assistantMessages
	a.summary.ToolCalls += toolCalls
}

// Report implements Aggregator.Report.
func (a *aggregator) Report(meta Metadata) *Report {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now().UTC()
	}
	if meta.Source == "" {
		meta.Source = a.source
	}

	summary := a.summary
	summary.Sessions = len(a.sessions)
	summary.ActiveDays = len(a.activeDays)
	summary.Projects = len(a.byProject)
	summary.Users = len(a.byUser)

	report := &Report{
		Metadata: meta,
		Summary:  summary,
		ByModel:  copyBuckets(a.byModel),
		ByDay:    copyBuckets(a.byDay),
	}

	// Source-dependent extra dimension.
	switch a.source {
	case event.SourceSessionLog:
		report.ByProject = copyBuckets(a.byProject)
		for project, set := range a.sessionsByProject {
			b := report.ByProject[project]
			b.Sessions = len(set)
			report.ByProject[project] = b
		}
	case event.SourceTabularExport:
		report.ByUser = copyBuckets(a.byUser)
	}

	return report
}

// Reset implements Aggregator.Reset.
func (a *aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.reset()
}

func (a *aggregator) reset() {
	a.summary = Summary{}
	a.byModel = make(map[string]*Bucket)
	a.byDay = make(map[string]*Bucket)
	a.byProject = make(map[string]*Bucket)
	a.byUser = make(map[string]*Bucket)
	a.sessions = make(map[string]struct{})
	a.activeDays = make(map[string]struct{})
	a.sessionsByProject = make(map[string]map[string]struct{})
}

// addBucket folds one event into the bucket for key.
func addBucket(buckets map[string]*Bucket, key string, ev event.Usage, comparable int) {
	b, ok := buckets[key]
	if !ok {
		b = &Bucket{}
		buckets[key] = b
	}

	b.InputTokens += ev.InputTokens
	b.OutputTokens += ev.OutputTokens
	b.CacheCreationTokens += ev.CacheWriteTokens
	b.CacheReadTokens += ev.CacheReadTokens
	b.TotalTokensWithCache += comparable
	b.Requests += ev.RequestWeight
	b.Records++
}

// copyBuckets snapshots accumulator buckets into an immutable value map.
func copyBuckets(buckets map[string]*Bucket) map[string]Bucket {
	out := make(map[string]Bucket, len(buckets))
	for key, b := range buckets {
		out[key] = *b
	}
	return out
}
