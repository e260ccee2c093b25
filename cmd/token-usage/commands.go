package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Momoyeyu/token-usage/pkg/config"
	"github.com/Momoyeyu/token-usage/pkg/discovery"
	"github.com/Momoyeyu/token-usage/pkg/display"
	"github.com/Momoyeyu/token-usage/pkg/event"
	"github.com/Momoyeyu/token-usage/pkg/export"
	"github.com/Momoyeyu/token-usage/pkg/logger"
	"github.com/Momoyeyu/token-usage/pkg/merge"
	"github.com/Momoyeyu/token-usage/pkg/reader"
	"github.com/Momoyeyu/token-usage/pkg/sessionlog"
	"github.com/Momoyeyu/token-usage/pkg/stats"
	"github.com/Momoyeyu/token-usage/pkg/tabular"
	"github.com/Momoyeyu/token-usage/pkg/watcher"
)

// windowFlags holds the raw window selection flags shared by the
// scan, csv and watch commands.
type windowFlags struct {
	start string
	end   string
	days  int
	week  bool
	all   bool
}

// registerWindowFlags adds the shared window flags to a flag set.
func registerWindowFlags(fs *flag.FlagSet) *windowFlags {
	wf := &windowFlags{}
	fs.StringVar(&wf.start, "start", "", "window start day (YYYY-MM-DD, inclusive)")
	fs.StringVar(&wf.end, "end", "", "window end day (YYYY-MM-DD, whole day included)")
	fs.IntVar(&wf.days, "days", 0, "last N days including today")
	fs.BoolVar(&wf.week, "week", false, "current week, Monday through now")
	fs.BoolVar(&wf.all, "all", false, "no window, aggregate everything")
	return wf
}

// resolve turns the raw flags into a concrete window.
//
// Precedence: explicit -start/-end, then -all, then -days, then -week,
// then the configured default range. Day-granular -end input is mapped
// to the start of the following day so the whole end day is covered by
// the exclusive end.
func (wf *windowFlags) resolve(cfg config.WindowConfig, now time.Time) (event.Window, error) {
	now = now.UTC()
	w := event.Window{InclusiveEnd: cfg.InclusiveEnd}

	explicit := wf.start != "" || wf.end != ""
	if wf.all && (explicit || wf.days > 0 || wf.week) {
		return event.Window{}, errors.New("-all cannot be combined with other window flags")
	}

	switch {
	case explicit:
		if wf.start != "" {
			day, err := parseDay(wf.start)
			if err != nil {
				return event.Window{}, err
			}
			w.Start = day
		}
		if wf.end != "" {
			day, err := parseDay(wf.end)
			if err != nil {
				return event.Window{}, err
			}
			w.End = day.Add(24 * time.Hour)
		}
		if !w.Start.IsZero() && !w.End.IsZero() && w.End.Before(w.Start) {
			return event.Window{}, fmt.Errorf("window end %s is before start %s", wf.end, wf.start)
		}
	case wf.all:
		// Unbounded on both sides.
	case wf.days > 0:
		w.Start = startOfDay(now).AddDate(0, 0, -(wf.days - 1))
		w.End = now
	case wf.week:
		w.Start = weekStart(now)
		w.End = now
	default:
		switch cfg.DefaultRange {
		case "today":
			w.Start = startOfDay(now)
			w.End = now
		case "all":
			// Unbounded.
		default:
			w.Start = weekStart(now)
			w.End = now
		}
	}

	return w, nil
}

// parseDay parses a YYYY-MM-DD day as UTC midnight.
func parseDay(s string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return day, nil
}

// startOfDay truncates a UTC instant to its calendar day.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// weekStart returns Monday 00:00 UTC of the week containing t.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

// initialize loads configuration and creates the logger.
func initialize(configPath string) (*config.Config, logger.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Output: cfg.Logging.Output,
		Format: cfg.Logging.Format,
	})

	return cfg, log, nil
}

// reportMetadata builds the report metadata for one run.
func reportMetadata(w event.Window, username string, source event.Source) stats.Metadata {
	if username == "" {
		username = os.Getenv("USER")
	}
	if username == "" {
		username = "unknown"
	}

	machine, _ := os.Hostname()

	return stats.Metadata{
		StartDate: w.Start,
		EndDate:   w.End,
		Username:  username,
		Machine:   machine,
		Source:    source,
	}
}

// newFormatter creates a display formatter, falling back to the
// configured default format.
func newFormatter(cfg *config.Config, format string, compact bool) display.Formatter {
	if format == "" {
		format = cfg.Display.DefaultFormat
	}
	return display.New(display.Config{
		Format:  display.Format(format),
		Compact: compact,
	})
}

// emitReport writes a single-source report to the requested sinks:
// a JSON bundle file, a Markdown file, or the terminal.
func emitReport(cfg *config.Config, b *merge.Bundle, r *stats.Report,
	output, markdown, format string, compact bool) error {
	wrote := false

	if output != "" {
		f, err := os.Create(output) // nolint:gosec // user-chosen output path
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		if err := export.WriteBundle(f, b); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Printf("Bundle written to: %s\n", output)
		wrote = true
	}

	if markdown != "" {
		md, err := export.PersonalMarkdown(b)
		if err != nil {
			return err
		}
		if err := os.WriteFile(markdown, []byte(md), 0600); err != nil {
			return fmt.Errorf("failed to write markdown file: %w", err)
		}
		fmt.Printf("Markdown report written to: %s\n", markdown)
		wrote = true
	}

	if wrote {
		return nil
	}

	return newFormatter(cfg, format, compact).FormatReport(os.Stdout, r)
}

// scanCommand aggregates session log statistics.
type scanCommand struct {
	configPath string
	window     *windowFlags
	project    string
	username   string
	format     string
	compact    bool
	output     string
	markdown   string
}

// Execute runs the scan command.
func (c *scanCommand) Execute() error {
	cfg, log, err := initialize(c.configPath)
	if err != nil {
		return err
	}

	win, err := c.window.resolve(cfg.Window, time.Now())
	if err != nil {
		return err
	}

	disc := discovery.New(cfg.Sources.SessionLogDirs, cfg.Sources.ExportDir, log)
	files, err := disc.Sessions()
	if err != nil {
		return fmt.Errorf("session discovery failed: %w", err)
	}

	combined := &sessionlog.Result{}
	// Activity counters are window-bounded at parse time; usage events
	// are filtered after dedup.
	parser := sessionlog.NewWindowed(win)

	for _, f := range files {
		if c.project != "" && f.Project != c.project {
			continue
		}

		res, _, err := parser.ParseFile(f.FilePath, 0)
		if err != nil {
			log.Warn("skipping unreadable session file", "path", f.FilePath, "error", err)
			continue
		}

		// Dedup keys are unique per session file only.
		res.Events = event.Deduplicate(res.Events)
		for i := range res.Events {
			res.Events[i].Project = f.Project
		}

		combined.Merge(res)
	}

	events := event.FilterRange(combined.Events, win)

	agg := stats.NewAggregator(event.SourceSessionLog)
	for _, ev := range events {
		agg.Add(ev)
	}
	agg.CountParseErrors(combined.ParseErrors)
	agg.CountActivity(combined.UserMessages, combined.AssistantMessages, combined.ToolCalls)

	meta := reportMetadata(win, c.username, event.SourceSessionLog)
	report := agg.Report(meta)

	bundle := &merge.Bundle{
		Version:    merge.BundleVersion,
		Username:   meta.Username,
		SessionLog: report,
	}

	return emitReport(cfg, bundle, report, c.output, c.markdown, c.format, c.compact)
}

// csvCommand aggregates a tabular CSV export.
type csvCommand struct {
	configPath string
	window     *windowFlags
	file       string
	user       string
	username   string
	format     string
	compact    bool
	output     string
	markdown   string
}

// Execute runs the csv command.
func (c *csvCommand) Execute() error {
	cfg, log, err := initialize(c.configPath)
	if err != nil {
		return err
	}

	win, err := c.window.resolve(cfg.Window, time.Now())
	if err != nil {
		return err
	}

	path := c.file
	if path == "" {
		disc := discovery.New(cfg.Sources.SessionLogDirs, cfg.Sources.ExportDir, log)
		exports, err := disc.Exports()
		if err != nil {
			return fmt.Errorf("export discovery failed: %w", err)
		}
		if len(exports) == 0 {
			return fmt.Errorf("no CSV exports found in %s; use -file to name one", cfg.Sources.ExportDir)
		}
		// Newest first.
		path = exports[0].FilePath
		log.Info("using newest export", "path", path)
	}

	res, err := tabular.New().ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	events := event.FilterRange(res.Events, win)

	agg := stats.NewAggregator(event.SourceTabularExport)
	for _, ev := range events {
		if c.user != "" && ev.User != c.user {
			continue
		}
		agg.Add(ev)
	}
	agg.CountParseErrors(res.ParseErrors)

	meta := reportMetadata(win, c.username, event.SourceTabularExport)
	report := agg.Report(meta)

	bundle := &merge.Bundle{
		Version:       merge.BundleVersion,
		Username:      meta.Username,
		TabularExport: report,
	}

	return emitReport(cfg, bundle, report, c.output, c.markdown, c.format, c.compact)
}

// mergeCommand merges exported bundles into a team report.
type mergeCommand struct {
	configPath string
	mode       string
	format     string
	compact    bool
	output     string
	markdown   string
	inputs     []string
}

// Execute runs the merge command.
func (c *mergeCommand) Execute() error {
	if len(c.inputs) == 0 {
		return errors.New("no input files; pass bundle (.json) or exported report (.md) paths")
	}

	cfg, _, err := initialize(c.configPath)
	if err != nil {
		return err
	}

	bundles := make([]merge.Bundle, 0, len(c.inputs))
	for _, path := range c.inputs {
		b, err := readBundleFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		bundles = append(bundles, *b)
	}

	team, err := merge.MergeBundles(bundles, merge.Mode(c.mode))
	if err != nil {
		return err
	}

	wrote := false

	if c.output != "" {
		if err := writeTeamJSON(c.output, team); err != nil {
			return err
		}
		fmt.Printf("Team report written to: %s\n", c.output)
		wrote = true
	}

	if c.markdown != "" {
		md := export.TeamMarkdown(team)
		if err := os.WriteFile(c.markdown, []byte(md), 0600); err != nil {
			return fmt.Errorf("failed to write markdown file: %w", err)
		}
		fmt.Printf("Team Markdown report written to: %s\n", c.markdown)
		wrote = true
	}

	if wrote {
		return nil
	}

	return newFormatter(cfg, c.format, c.compact).FormatTeam(os.Stdout, team)
}

// readBundleFile loads one member bundle from a JSON bundle file or an
// exported Markdown report with embedded data.
func readBundleFile(path string) (*merge.Bundle, error) {
	if isMarkdownInput(path) {
		content, err := os.ReadFile(path) // nolint:gosec // user-chosen input path
		if err != nil {
			return nil, err
		}
		return export.ParseMarkdown(string(content))
	}

	f, err := os.Open(path) // nolint:gosec // user-chosen input path
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	return export.ReadBundle(f)
}

// isMarkdownInput reports whether a merge input should be parsed as an
// exported Markdown report.
func isMarkdownInput(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

// writeTeamJSON writes the team report as indented JSON.
func writeTeamJSON(path string, team *merge.TeamReport) error {
	f, err := os.Create(path) // nolint:gosec // user-chosen output path
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	formatter := display.New(display.Config{Format: display.FormatJSON})
	if err := formatter.FormatTeam(f, team); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// watchCommand shows live statistics updated as session logs change.
type watchCommand struct {
	configPath  string
	window      *windowFlags
	project     string
	format      string
	clearScreen bool
}

// Execute runs the watch command.
func (c *watchCommand) Execute() error {
	cfg, log, err := initialize(c.configPath)
	if err != nil {
		return err
	}

	win, err := c.window.resolve(cfg.Window, time.Now())
	if err != nil {
		return err
	}
	// A live view has no fixed end unless one was given explicitly.
	if c.window.end == "" {
		win.End = time.Time{}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbPath := cfg.Storage.DBPath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open position store: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	store, err := reader.NewBoltPositionStore(db)
	if err != nil {
		return fmt.Errorf("failed to initialize position store: %w", err)
	}

	r, err := reader.New(reader.Config{
		PositionStore: store,
		Parser:        sessionlog.NewWindowed(win),
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() {
		_ = r.Close()
	}()

	w, err := watcher.New(watcher.Config{Extensions: []string{".jsonl"}}, log)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = w.Close()
	}()

	state := &watchState{
		window:    win,
		project:   c.project,
		reader:    r,
		logger:    log,
		agg:       stats.NewAggregator(event.SourceSessionLog),
		files:     make(map[string]*fileTail),
		formatter: newFormatter(cfg, c.format, false),
	}

	// Initial full pass over everything already on disk.
	disc := discovery.New(cfg.Sources.SessionLogDirs, cfg.Sources.ExportDir, log)
	files, err := disc.Sessions()
	if err != nil {
		return fmt.Errorf("session discovery failed: %w", err)
	}
	for _, f := range files {
		if err := r.Reset(f.FilePath); err != nil {
			log.Warn("failed to reset read position", "path", f.FilePath, "error", err)
		}
		state.ingest(ctx, f.FilePath, f.Project)
	}

	if err := state.redraw(c.clearScreen); err != nil {
		return err
	}

	if err := w.Start(ctx, cfg.Sources.SessionLogDirs); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			state.ingest(ctx, ev.Path, discovery.ProjectName(filepath.Dir(ev.Path)))
			if err := state.redraw(c.clearScreen); err != nil {
				return err
			}
		case werr, ok := <-w.Errors():
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", werr)
		}
	}
}

// watchState accumulates live statistics across incremental reads.
// Each file's parsed lines are kept so the aggregate can be refolded
// with dedup running over the whole file, not just the newest batch.
type watchState struct {
	window    event.Window
	project   string
	reader    reader.Reader
	logger    logger.Logger
	agg       stats.Aggregator
	files     map[string]*fileTail
	formatter display.Formatter
}

// fileTail is the accumulated parse result of one session file.
type fileTail struct {
	project string
	result  *sessionlog.Result
}

// ingest appends new lines of one session file to its accumulated
// result.
func (s *watchState) ingest(ctx context.Context, path, project string) {
	if s.project != "" && project != s.project {
		return
	}

	res, err := s.reader.Read(ctx, path)
	if err != nil {
		s.logger.Warn("failed to read session file", "path", path, "error", err)
		return
	}

	f, ok := s.files[path]
	if !ok {
		f = &fileTail{project: project, result: &sessionlog.Result{}}
		s.files[path] = f
	}
	f.result.Merge(res)
}

// rebuild refolds the aggregate from the accumulated files. A record
// that restates an earlier request id, arriving in a later batch with
// final token counts, replaces the earlier one here.
func (s *watchState) rebuild() {
	s.agg.Reset()

	for _, f := range s.files {
		events := event.Deduplicate(f.result.Events)
		for _, ev := range event.FilterRange(events, s.window) {
			ev.Project = f.project
			s.agg.Add(ev)
		}
		s.agg.CountParseErrors(f.result.ParseErrors)
		s.agg.CountActivity(f.result.UserMessages, f.result.AssistantMessages, f.result.ToolCalls)
	}
}

// redraw renders the current aggregate.
func (s *watchState) redraw(clearScreen bool) error {
	s.rebuild()

	if clearScreen {
		fmt.Print("\033[2J\033[H")
	}

	meta := reportMetadata(s.window, "", event.SourceSessionLog)
	return s.formatter.FormatReport(os.Stdout, s.agg.Report(meta))
}
