// Package main provides the token-usage CLI application.
//
// Token Usage aggregates Claude Code CLI token telemetry from two
// sources (session JSONL logs and tabular CSV exports) into statistics
// reports, exports them as shareable bundles, and merges bundles from
// several team members into a team report.
package main

import (
	"flag"
	"fmt"
	"os"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run() error {
	// Define global flags.
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "show version information")

	// Parse command.
	flag.Parse()

	// Handle version flag.
	if *showVersion {
		fmt.Printf("token-usage %s\n", version)
		return nil
	}

	// Get command.
	args := flag.Args()
	if len(args) == 0 {
		return showUsage()
	}

	command := args[0]

	switch command {
	case "scan":
		return runScanCommand(*configPath, args[1:])
	case "csv":
		return runCsvCommand(*configPath, args[1:])
	case "merge":
		return runMergeCommand(*configPath, args[1:])
	case "watch":
		return runWatchCommand(*configPath, args[1:])
	case "config":
		return runConfigCommand(*configPath, args[1:])
	case "help":
		return showUsage()
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runScanCommand runs the scan command.
func runScanCommand(configPath string, args []string) error {
	// Define scan-specific flags.
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	window := registerWindowFlags(fs)
	project := fs.String("project", "", "filter by project name")
	username := fs.String("username", "", "username recorded in the report (default: $USER)")
	format := fs.String("format", "", "output format (table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")
	output := fs.String("output", "", "write a shareable JSON bundle to this path")
	markdown := fs.String("markdown", "", "write a Markdown report to this path")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &scanCommand{
		configPath: configPath,
		window:     window,
		project:    *project,
		username:   *username,
		format:     *format,
		compact:    *compact,
		output:     *output,
		markdown:   *markdown,
	}

	return cmd.Execute()
}

// runCsvCommand runs the csv command.
func runCsvCommand(configPath string, args []string) error {
	// Define csv-specific flags.
	fs := flag.NewFlagSet("csv", flag.ExitOnError)
	window := registerWindowFlags(fs)
	file := fs.String("file", "", "CSV export file to read (default: newest in the export directory)")
	user := fs.String("user", "", "filter by the export's user column")
	username := fs.String("username", "", "username recorded in the report (default: $USER)")
	format := fs.String("format", "", "output format (table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")
	output := fs.String("output", "", "write a shareable JSON bundle to this path")
	markdown := fs.String("markdown", "", "write a Markdown report to this path")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &csvCommand{
		configPath: configPath,
		window:     window,
		file:       *file,
		user:       *user,
		username:   *username,
		format:     *format,
		compact:    *compact,
		output:     *output,
		markdown:   *markdown,
	}

	return cmd.Execute()
}

// runMergeCommand runs the merge command.
func runMergeCommand(configPath string, args []string) error {
	// Define merge-specific flags.
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	mode := fs.String("mode", "sum", "merge mode (sum, mean)")
	format := fs.String("format", "", "output format (table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")
	output := fs.String("output", "", "write the team report as JSON to this path")
	markdown := fs.String("markdown", "", "write a team Markdown report to this path")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &mergeCommand{
		configPath: configPath,
		mode:       *mode,
		format:     *format,
		compact:    *compact,
		output:     *output,
		markdown:   *markdown,
		inputs:     fs.Args(),
	}

	return cmd.Execute()
}

// runWatchCommand runs the watch command.
func runWatchCommand(configPath string, args []string) error {
	// Define watch-specific flags.
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	window := registerWindowFlags(fs)
	project := fs.String("project", "", "filter by project name")
	format := fs.String("format", "", "output format (table, simple)")
	history := fs.Bool("history", false, "keep history of updates (append mode)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &watchCommand{
		configPath:  configPath,
		window:      window,
		project:     *project,
		format:      *format,
		clearScreen: !*history, // clear screen unless history mode
	}

	return cmd.Execute()
}

// runConfigCommand runs the config command.
func runConfigCommand(configPath string, args []string) error {
	cmd := &configCommand{
		configPath: configPath,
	}
	return cmd.Execute(args)
}

// showUsage displays usage information.
func showUsage() error {
	usage := `Token Usage - Claude Code CLI token usage statistics tool

Usage:
  token-usage [flags] <command> [command flags]

Commands:
  scan        Aggregate session log statistics
  csv         Aggregate a tabular CSV export
  merge       Merge exported bundles into a team report
  watch       Live statistics updated as session logs change
  config      Configuration management (show, path, reset)
  help        Show this help message

Global Flags:
  -config     Path to configuration file
  -version    Show version information

Window Flags (scan, csv, watch):
  -start      Window start day (YYYY-MM-DD, inclusive)
  -end        Window end day (YYYY-MM-DD, whole day included)
  -days       Last N days including today
  -week       Current week, Monday through now
  -all        No window, aggregate everything

Scan Command Flags:
  -project    Filter by project name
  -username   Username recorded in the report (default: $USER)
  -format     Output format (table, json, simple)
  -compact    Compact output
  -output     Write a shareable JSON bundle to this path
  -markdown   Write a Markdown report to this path

Csv Command Flags:
  -file       CSV export file to read (default: newest in the export directory)
  -user       Filter by the export's user column

Merge Command Flags:
  -mode       Merge mode (sum, mean)
  -output     Write the team report as JSON to this path
  -markdown   Write a team Markdown report to this path

Examples:
  # Current week's session log statistics
  token-usage scan

  # Last 30 days as JSON
  token-usage scan -days 30 -format json

  # Export a bundle for team merging
  token-usage scan -output alice.json

  # Export a Markdown report with embedded data
  token-usage scan -markdown alice.md

  # Aggregate the newest CSV export
  token-usage csv

  # Aggregate a specific export for one user
  token-usage csv -file usage.csv -user alice@example.com

  # Merge bundles (JSON or exported Markdown) into a team report
  token-usage merge alice.json bob.md

  # Per-member averages instead of sums
  token-usage merge -mode mean alice.json bob.json

  # Live statistics for the current week
  token-usage watch

Version: %s
`

	fmt.Printf(usage, version)
	return nil
}
