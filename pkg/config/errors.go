package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrNoSessionLogDirs is returned when no session log directories are specified.
	ErrNoSessionLogDirs = errors.New("no session log directories specified")

	// ErrInvalidDefaultRange is returned when the default range is not recognized.
	ErrInvalidDefaultRange = errors.New("invalid default range: must be week, today, or all")

	// ErrInvalidDisplayFormat is returned when the display format is not recognized.
	ErrInvalidDisplayFormat = errors.New("invalid display format: must be table, json, or simple")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
