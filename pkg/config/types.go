// Package config provides configuration management for token-usage.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Environment variables (highest priority)
// 2. Configuration file
// 3. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Session log dirs: %v\n", cfg.Sources.SessionLogDirs)
package config

// Config represents the complete application configuration.
//
// Invariants:
// - Sources.SessionLogDirs must have at least one directory
// - Window.DefaultRange must be a known range
// - Display and Logging enums must hold known values.
type Config struct {
	// Source locations
	Sources SourcesConfig `yaml:"sources"`

	// Report window defaults
	Window WindowConfig `yaml:"window"`

	// Storage settings
	Storage StorageConfig `yaml:"storage"`

	// Display settings
	Display DisplayConfig `yaml:"display"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// SourcesConfig locates the raw telemetry sources.
type SourcesConfig struct {
	// Directories scanned for per-project session log files
	SessionLogDirs []string `yaml:"session_log_dirs"`

	// Directory scanned for tabular CSV exports
	ExportDir string `yaml:"export_dir"`
}

// WindowConfig holds report window defaults.
type WindowConfig struct {
	// Default range when no explicit window is given
	// (week = Monday through now, matching the reporting cadence)
	DefaultRange string `yaml:"default_range"`

	// Whether the window end instant itself is included.
	// The default is an exclusive end; day-granular CLI input is mapped
	// to the start of the following day so whole days are still covered.
	InclusiveEnd bool `yaml:"inclusive_end"`
}

// StorageConfig contains storage-related settings.
type StorageConfig struct {
	// Path to the BoltDB file holding incremental read positions
	DBPath string `yaml:"db_path"`
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	// Default output format (table, json, simple)
	DefaultFormat string `yaml:"default_format"`

	// Enable colored output
	ColorEnabled bool `yaml:"color_enabled"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if len(c.Sources.SessionLogDirs) == 0 {
		return ErrNoSessionLogDirs
	}

	validRanges := map[string]bool{
		"week":  true,
		"today": true,
		"all":   true,
	}
	if !validRanges[c.Window.DefaultRange] {
		return ErrInvalidDefaultRange
	}

	validFormats := map[string]bool{
		"table":  true,
		"json":   true,
		"simple": true,
	}
	if !validFormats[c.Display.DefaultFormat] {
		return ErrInvalidDisplayFormat
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Sources: SourcesConfig{
			SessionLogDirs: defaultSessionLogDirs(),
			ExportDir:      defaultExportDir(),
		},
		Window: WindowConfig{
			DefaultRange: "week",
			InclusiveEnd: false,
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
		Display: DisplayConfig{
			DefaultFormat: "table",
			ColorEnabled:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
