package config

import (
	"os"
	"path/filepath"
)

// defaultSessionLogDirs returns the default session log directories.
//
// Searches in order:
// 1. ~/.config/claude/projects/ (new default)
// 2. ~/.claude/projects/ (legacy)
//
// Returns all directories that exist on the filesystem.
func defaultSessionLogDirs() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir not available
		return []string{"."}
	}

	candidates := []string{
		filepath.Join(homeDir, ".config", "claude", "projects"),
		filepath.Join(homeDir, ".claude", "projects"),
	}

	var dirs []string
	for _, dir := range candidates {
		if _, err := os.Stat(dir); err == nil {
			dirs = append(dirs, dir)
		}
	}

	// If no directories found, return the new default path
	// (will be created by the application if needed)
	if len(dirs) == 0 {
		return []string{filepath.Join(homeDir, ".config", "claude", "projects")}
	}

	return dirs
}

// defaultExportDir returns the default tabular export directory.
//
// Returns: ~/Downloads, which is where the export tooling drops CSVs.
func defaultExportDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(homeDir, "Downloads")
}

// defaultDBPath returns the default database file path.
//
// Returns: ~/.config/token-usage/positions.db.
func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./positions.db"
	}

	return filepath.Join(homeDir, ".config", "token-usage", "positions.db")
}

// defaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/token-usage/config.yaml.
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}

	return filepath.Join(homeDir, ".config", "token-usage", "config.yaml")
}
