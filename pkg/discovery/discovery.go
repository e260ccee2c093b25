// Package discovery locates the raw telemetry sources on disk: session
// JSONL files grouped by project directory, and tabular CSV exports.
//
// Example usage:
//
//	d := discovery.New([]string{"~/.config/claude/projects"}, "~/Downloads", logger.Default())
//	files, err := d.Sessions()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range files {
//	    fmt.Printf("Session: %s, Project: %s\n", f.SessionID, f.Project)
//	}
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Logger defines the logging interface used by the discovery package.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SessionFile represents a discovered session JSONL file.
type SessionFile struct {
	// SessionID is the UUID extracted from the filename.
	SessionID string

	// FilePath is the absolute path to the JSONL file.
	FilePath string

	// Project is the project name derived from the containing directory.
	Project string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime int64 // Unix timestamp
}

// ExportFile represents a discovered tabular CSV export.
type ExportFile struct {
	// FilePath is the absolute path to the CSV file.
	FilePath string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime int64 // Unix timestamp
}

// Discoverer locates telemetry source files.
type Discoverer interface {
	// Sessions scans the configured session log directories and returns
	// all session files found. Files that do not match the expected
	// <uuid>.jsonl pattern are skipped.
	Sessions() ([]SessionFile, error)

	// SessionsInProject returns session files under one project directory.
	SessionsInProject(projectPath string) ([]SessionFile, error)

	// Exports scans the configured export directory for CSV files,
	// newest first.
	Exports() ([]ExportFile, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	sessionDirs []string
	exportDir   string
	logger      Logger
}

// New creates a new Discoverer instance.
//
// sessionDirs are the base directories scanned for per-project session
// files. exportDir holds tabular CSV exports and may be empty.
func New(sessionDirs []string, exportDir string, logger Logger) Discoverer {
	return &discoverer{
		sessionDirs: sessionDirs,
		exportDir:   exportDir,
		logger:      logger,
	}
}

// Sessions implements Discoverer.Sessions.
func (d *discoverer) Sessions() ([]SessionFile, error) {
	var all []SessionFile

	for _, baseDir := range d.sessionDirs {
		expandedDir := expandHome(baseDir)

		if _, err := os.Stat(expandedDir); err != nil {
			if os.IsNotExist(err) {
				d.logger.Warn("directory not found, skipping", "path", expandedDir)
				continue
			}
			return nil, fmt.Errorf("failed to stat directory %s: %w", expandedDir, err)
		}

		files, err := d.scanBaseDirectory(expandedDir)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", expandedDir, err)
		}

		all = append(all, files...)
	}

	d.logger.Info("session discovery complete", "total_files", len(all))
	return all, nil
}

// SessionsInProject implements Discoverer.SessionsInProject.
func (d *discoverer) SessionsInProject(projectPath string) ([]SessionFile, error) {
	expandedPath := expandHome(projectPath)

	if _, err := os.Stat(expandedPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, expandedPath)
		}
		return nil, fmt.Errorf("failed to stat directory %s: %w", expandedPath, err)
	}

	return d.scanProjectDirectory(expandedPath)
}

// Exports implements Discoverer.Exports.
func (d *discoverer) Exports() ([]ExportFile, error) {
	if d.exportDir == "" {
		return nil, nil
	}

	expandedDir := expandHome(d.exportDir)
	entries, err := os.ReadDir(expandedDir)
	if err != nil {
		if os.IsNotExist(err) {
			d.logger.Warn("export directory not found", "path", expandedDir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read export directory %s: %w", expandedDir, err)
	}

	var exports []ExportFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			d.logger.Warn("failed to get file info",
				"path", filepath.Join(expandedDir, entry.Name()),
				"error", err)
			continue
		}

		exports = append(exports, ExportFile{
			FilePath: filepath.Join(expandedDir, entry.Name()),
			Size:     info.Size(),
			ModTime:  info.ModTime().Unix(),
		})
	}

	sort.Slice(exports, func(i, j int) bool {
		return exports[i].ModTime > exports[j].ModTime
	})

	d.logger.Debug("export discovery complete", "total_files", len(exports))
	return exports, nil
}

// scanBaseDirectory scans a base directory for project subdirectories.
//
// Layout: basedir/project-dir/session-uuid.jsonl.
func (d *discoverer) scanBaseDirectory(baseDir string) ([]SessionFile, error) {
	var files []SessionFile

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		projectPath := filepath.Join(baseDir, entry.Name())
		projectFiles, err := d.scanProjectDirectory(projectPath)
		if err != nil {
			d.logger.Warn("failed to scan project directory",
				"path", projectPath,
				"error", err)
			continue
		}

		files = append(files, projectFiles...)
	}

	return files, nil
}

// scanProjectDirectory scans a project directory for session JSONL files.
func (d *discoverer) scanProjectDirectory(projectDir string) ([]SessionFile, error) {
	files := make([]SessionFile, 0, 10)
	project := ProjectName(projectDir)

	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}

		sessionID := strings.TrimSuffix(entry.Name(), ".jsonl")
		if !isValidSessionID(sessionID) {
			d.logger.Debug("skipping non-session file",
				"file", entry.Name(),
				"reason", "invalid session ID format")
			continue
		}

		filePath := filepath.Join(projectDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			d.logger.Warn("failed to get file info",
				"path", filePath,
				"error", err)
			continue
		}

		files = append(files, SessionFile{
			SessionID: sessionID,
			FilePath:  filePath,
			Project:   project,
			Size:      info.Size(),
			ModTime:   info.ModTime().Unix(),
		})
	}

	d.logger.Debug("scanned project directory",
		"path", projectDir,
		"files_found", len(files))

	return files, nil
}

// ProjectName derives a display name from a project directory path.
//
// Session log directories encode the project working directory with
// path separators replaced by dashes; the last path-like component
// makes the most readable name, so "-home-alice-src-widget" becomes
// "widget".
func ProjectName(projectDir string) string {
	base := filepath.Base(projectDir)
	trimmed := strings.Trim(base, "-")
	if trimmed == "" {
		return base
	}

	parts := strings.Split(trimmed, "-")
	return parts[len(parts)-1]
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}

// isValidSessionID performs basic validation on session ID format.
//
// Expected format: UUID v4 (8-4-4-4-12 hex digits with dashes)
// Example: a1b2c3d4-e5f6-7890-abcd-ef1234567890.
func isValidSessionID(id string) bool {
	if len(id) != 36 {
		return false
	}

	if id[8] != '-' || id[13] != '-' || id[18] != '-' || id[23] != '-' {
		return false
	}

	for i, c := range id {
		if i == 8 || i == 13 || i == 18 || i == 23 {
			continue
		}

		if !isHexDigit(c) {
			return false
		}
	}

	return true
}

// isHexDigit checks if a rune is a hexadecimal digit.
func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'f') ||
		(r >= 'A' && r <= 'F')
}
