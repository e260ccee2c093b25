package merge

import "errors"

// Common errors returned by the merge package.
var (
	// ErrNoReports is returned when a merge call receives no inputs.
	ErrNoReports = errors.New("no reports to merge")

	// ErrSourceMismatch is returned when reports of different sources
	// are handed to one merge call.
	ErrSourceMismatch = errors.New("reports have mismatched sources")

	// ErrMissingVersion is returned for bundles without a version tag.
	ErrMissingVersion = errors.New("bundle has no version tag")

	// ErrUnsupportedVersion is returned for bundles with an unknown
	// version tag.
	ErrUnsupportedVersion = errors.New("unsupported bundle version")

	// ErrEmptyBundle is returned for bundles carrying no report at all.
	ErrEmptyBundle = errors.New("bundle contains no reports")

	// ErrInvalidReport is returned when a report fails the shape check
	// (missing required top-level keys or wrong source tag).
	ErrInvalidReport = errors.New("invalid report shape")

	// ErrInvalidMode is returned for unknown merge modes.
	ErrInvalidMode = errors.New("invalid merge mode")
)
