package merge

import (
	"fmt"
	"sort"
	"time"

	"github.com/Momoyeyu/token-usage/pkg/event"
	"github.com/Momoyeyu/token-usage/pkg/stats"
)

// Merge combines N same-source reports into one. Inputs are never
// mutated; the result is freshly allocated.
//
// Summary scalars and bucket fields sum across inputs; day, model and
// dimension buckets union by key. Active days, projects and users are
// recomputed from the merged buckets instead of summed, since the same
// key may appear in several inputs. Session counts cannot be recomputed
// from reports (session ids are not part of the report shape) and are
// summed; members with shared sessions would be double counted, which
// does not occur in practice since members do not share log files.
//
// The merged window is the min of all start dates and the max of all
// end dates. ModeMean divides the summed summary and by_day numbers by
// len(reports) on the returned copy only.
func Merge(reports []*stats.Report, mode Mode) (*stats.Report, error) {
	if len(reports) == 0 {
		return nil, ErrNoReports
	}
	if mode == "" {
		mode = ModeSum
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	source := reports[0].Metadata.Source
	for i, r := range reports {
		if err := validateReport(r); err != nil {
			return nil, fmt.Errorf("report %d: %w", i, err)
		}
		if r.Metadata.Source != source {
			return nil, fmt.Errorf("%w: report %d is %q, expected %q",
				ErrSourceMismatch, i, r.Metadata.Source, source)
		}
	}

	out := &stats.Report{
		Metadata: stats.Metadata{
			GeneratedAt: time.Now().UTC(),
			Source:      source,
		},
		ByModel: make(map[string]stats.Bucket),
		ByDay:   make(map[string]stats.Bucket),
	}
	if source == event.SourceSessionLog {
		out.ByProject = make(map[string]stats.Bucket)
	}
	if source == event.SourceTabularExport {
		out.ByUser = make(map[string]stats.Bucket)
	}

	for _, r := range reports {
		out.Summary = sumSummaries(out.Summary, r.Summary)
		mergeBuckets(out.ByModel, r.ByModel)
		mergeBuckets(out.ByDay, r.ByDay)
		mergeBuckets(out.ByProject, r.ByProject)
		mergeBuckets(out.ByUser, r.ByUser)

		out.Metadata.StartDate = minTime(out.Metadata.StartDate, r.Metadata.StartDate)
		out.Metadata.EndDate = maxTime(out.Metadata.EndDate, r.Metadata.EndDate)
	}

	// Recompute distinct counts from the merged key sets.
	out.Summary.ActiveDays = activeDays(out.ByDay)
	if out.ByProject != nil {
		out.Summary.Projects = len(out.ByProject)
	}
	if out.ByUser != nil {
		out.Summary.Users = len(out.ByUser)
	}

	if mode == ModeMean {
		applyMean(out, len(reports))
	}

	return out, nil
}

// MergeBundles validates and merges N member bundles into a team
// report. A bundle failing the shape check rejects the whole call with
// an error identifying the offending input by index and username.
func MergeBundles(bundles []Bundle, mode Mode) (*TeamReport, error) {
	if len(bundles) == 0 {
		return nil, ErrNoReports
	}
	if mode == "" {
		mode = ModeSum
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	for i, b := range bundles {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("input %d (%s): %w", i, b.name(), err)
		}
	}

	team := &TeamReport{
		GeneratedAt: time.Now().UTC(),
		Mode:        mode,
	}

	var sessionReports, tabularReports []*stats.Report
	members := make(map[string]*MemberTotals)

	for _, b := range bundles {
		m, ok := members[b.name()]
		if !ok {
			m = &MemberTotals{Username: b.name()}
			members[b.name()] = m
		}

		if b.SessionLog != nil {
			sessionReports = append(sessionReports, b.SessionLog)
			m.SessionLogTokens += b.SessionLog.Summary.TotalTokensWithCache
			team.DateRange.Start = minTime(team.DateRange.Start, b.SessionLog.Metadata.StartDate)
			team.DateRange.End = maxTime(team.DateRange.End, b.SessionLog.Metadata.EndDate)
		}
		if b.TabularExport != nil {
			tabularReports = append(tabularReports, b.TabularExport)
			m.TabularExportTokens += b.TabularExport.Summary.TotalTokensWithCache
			team.DateRange.Start = minTime(team.DateRange.Start, b.TabularExport.Metadata.StartDate)
			team.DateRange.End = maxTime(team.DateRange.End, b.TabularExport.Metadata.EndDate)
		}
	}

	team.Members = len(members)

	if len(sessionReports) > 0 {
		merged, err := Merge(sessionReports, mode)
		if err != nil {
			return nil, fmt.Errorf("merging session-log reports: %w", err)
		}
		team.SessionLog = merged
	}
	if len(tabularReports) > 0 {
		merged, err := Merge(tabularReports, mode)
		if err != nil {
			return nil, fmt.Errorf("merging tabular-export reports: %w", err)
		}
		team.TabularExport = merged
	}

	team.Combined = combine(team.SessionLog, team.TabularExport)

	team.ByMember = make([]MemberTotals, 0, len(members))
	for _, m := range members {
		team.ByMember = append(team.ByMember, *m)
	}
	sort.Slice(team.ByMember, func(i, j int) bool {
		a, b := team.ByMember[i], team.ByMember[j]
		at := a.SessionLogTokens + a.TabularExportTokens
		bt := b.SessionLogTokens + b.TabularExportTokens
		if at != bt {
			return at > bt
		}
		return a.Username < b.Username
	})

	return team, nil
}

// Validate performs the minimal shape check on a bundle.
func (b *Bundle) Validate() error {
	if b.Version == 0 {
		return ErrMissingVersion
	}
	if b.Version != BundleVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, b.Version, BundleVersion)
	}
	if b.SessionLog == nil && b.TabularExport == nil {
		return ErrEmptyBundle
	}

	if b.SessionLog != nil {
		if err := validateReport(b.SessionLog); err != nil {
			return fmt.Errorf("session_log: %w", err)
		}
		if b.SessionLog.Metadata.Source != event.SourceSessionLog {
			return fmt.Errorf("%w: session_log tagged %q",
				ErrInvalidReport, b.SessionLog.Metadata.Source)
		}
	}
	if b.TabularExport != nil {
		if err := validateReport(b.TabularExport); err != nil {
			return fmt.Errorf("tabular_export: %w", err)
		}
		if b.TabularExport.Metadata.Source != event.SourceTabularExport {
			return fmt.Errorf("%w: tabular_export tagged %q",
				ErrInvalidReport, b.TabularExport.Metadata.Source)
		}
	}

	return nil
}

// name returns the member name used in error messages and team rows.
func (b *Bundle) name() string {
	if b.Username != "" {
		return b.Username
	}
	return "unknown"
}

// validateReport checks the required top-level keys of a report.
func validateReport(r *stats.Report) error {
	if r == nil {
		return fmt.Errorf("%w: nil report", ErrInvalidReport)
	}
	if !r.Metadata.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidReport, r.Metadata.Source)
	}
	if r.ByDay == nil {
		return fmt.Errorf("%w: missing by_day", ErrInvalidReport)
	}
	if r.ByModel == nil {
		return fmt.Errorf("%w: missing by_model", ErrInvalidReport)
	}
	return nil
}

// sumSummaries adds b's scalars to a. Distinct counts (active days,
// projects, users) are summed here but recomputed by the caller.
func sumSummaries(a, b stats.Summary) stats.Summary {
	a.InputTokens += b.InputTokens
	a.OutputTokens += b.OutputTokens
	a.CacheCreationTokens += b.CacheCreationTokens
	a.CacheReadTokens += b.CacheReadTokens
	a.TotalTokens += b.TotalTokens
	a.TotalTokensWithCache += b.TotalTokensWithCache
	a.Requests += b.Requests
	a.Records += b.Records
	a.ExcludedRecords += b.ExcludedRecords
	a.ParseErrors += b.ParseErrors
	a.Sessions += b.Sessions
	a.ActiveDays += b.ActiveDays
	a.Projects += b.Projects
	a.Users += b.Users
	a.UserMessages += b.UserMessages
	a.AssistantMessages += b.AssistantMessages
	a.ToolCalls += b.ToolCalls
	return a
}

// mergeBuckets unions src into dst, summing shared keys.
func mergeBuckets(dst map[string]stats.Bucket, src map[string]stats.Bucket) {
	if dst == nil {
		return
	}
	for key, b := range src {
		merged := dst[key]
		merged.InputTokens += b.InputTokens
		merged.OutputTokens += b.OutputTokens
		merged.CacheCreationTokens += b.CacheCreationTokens
		merged.CacheReadTokens += b.CacheReadTokens
		merged.TotalTokensWithCache += b.TotalTokensWithCache
		merged.Requests += b.Requests
		merged.Records += b.Records
		merged.Sessions += b.Sessions
		dst[key] = merged
	}
}

// activeDays counts day buckets with a non-zero comparable total.
func activeDays(byDay map[string]stats.Bucket) int {
	n := 0
	for _, b := range byDay {
		if b.TotalTokensWithCache != 0 {
			n++
		}
	}
	return n
}

// applyMean divides the summed summary and by_day numbers by n in
// place. Only called on the freshly built merged report, never on an
// input. Recomputed distinct counts are left untouched.
func applyMean(r *stats.Report, n int) {
	if n <= 1 {
		return
	}

	s := &r.Summary
	s.InputTokens /= n
	s.OutputTokens /= n
	s.CacheCreationTokens /= n
	s.CacheReadTokens /= n
	s.TotalTokens /= n
	s.TotalTokensWithCache /= n
	s.Requests /= float64(n)
	s.Records /= n
	s.ExcludedRecords /= n
	s.ParseErrors /= n
	s.Sessions /= n
	s.UserMessages /= n
	s.AssistantMessages /= n
	s.ToolCalls /= n

	for key, b := range r.ByDay {
		b.InputTokens /= n
		b.OutputTokens /= n
		b.CacheCreationTokens /= n
		b.CacheReadTokens /= n
		b.TotalTokensWithCache /= n
		b.Requests /= float64(n)
		b.Records /= n
		b.Sessions /= n
		r.ByDay[key] = b
	}
}

// minTime returns the earlier of a and b, ignoring zero values.
func minTime(a, b time.Time) time.Time {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	if b.Before(a) {
		return b
	}
	return a
}

// maxTime returns the later of a and b, ignoring zero values.
func maxTime(a, b time.Time) time.Time {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	if b.After(a) {
		return b
	}
	return a
}

// combine builds the cross-source comparable totals.
func combine(sessionLog, tabular *stats.Report) Combined {
	var c Combined

	if sessionLog != nil {
		s := sessionLog.Summary
		c.TotalTokens += s.TotalTokensWithCache
		c.InputTokens += s.InputTokens + s.CacheCreationTokens
		c.OutputTokens += s.OutputTokens
	}
	if tabular != nil {
		s := tabular.Summary
		c.TotalTokens += s.TotalTokensWithCache
		c.InputTokens += s.InputTokens + s.CacheCreationTokens
		c.OutputTokens += s.OutputTokens
	}

	return c
}
