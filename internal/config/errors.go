// Package config provides configuration types and defaults for thumbsync.
package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidThreshold indicates an acceptance threshold outside (0, 2].
	ErrInvalidThreshold = errors.New("acceptance threshold out of range")

	// ErrInvalidRatioTolerance indicates a non-positive aspect-ratio tolerance.
	ErrInvalidRatioTolerance = errors.New("aspect ratio tolerance out of range")

	// ErrInvalidStrategy indicates an unknown assignment strategy name.
	ErrInvalidStrategy = errors.New("invalid strategy")

	// ErrInvalidWorkers indicates a worker count outside the valid range.
	ErrInvalidWorkers = errors.New("worker count out of range")

	// ErrNoExtensions indicates an empty video or image extension filter.
	ErrNoExtensions = errors.New("extension filter is empty")

	// ErrInvalidRenameSuffix indicates a rename suffix containing a path separator.
	ErrInvalidRenameSuffix = errors.New("invalid rename suffix")
)
