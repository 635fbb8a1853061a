// Package config provides configuration types and defaults for thumbsync.
package config

import (
	"fmt"
	"strings"

	thserrors "github.com/five82/thumbsync/internal/errors"
	"github.com/five82/thumbsync/internal/util"
)

// Default constants
const (
	// DefaultThreshold is the acceptance threshold T. A candidate matches when
	// 1 - similarity is strictly below it.
	DefaultThreshold float64 = 0.01

	// MaxThreshold is the largest meaningful threshold. Difference is bounded
	// by 2 because correlation is bounded below by -1.
	MaxThreshold float64 = 2

	// DefaultRatioTolerance is the aspect-ratio gate T_ratio.
	DefaultRatioTolerance float64 = 0.01

	// DefaultWorkers is the number of candidates scored concurrently for a
	// single thumbnail. One keeps the reference sequential behaviour.
	DefaultWorkers int = 1

	// MaxWorkers caps scoring concurrency; every worker holds decoded frames.
	MaxWorkers int = 64

	// DefaultRenameSuffix is appended to the video stem when renaming a
	// matched thumbnail.
	DefaultRenameSuffix string = "_thumb"

	// DefaultExifToolPath is the exiftool executable.
	DefaultExifToolPath string = "exiftool"

	// DefaultFFmpegPath is the ffmpeg executable.
	DefaultFFmpegPath string = "ffmpeg"

	// DefaultFFprobePath is the ffprobe executable.
	DefaultFFprobePath string = "ffprobe"

	// ThumbnailDirName is the directory name that marks a thumbnail folder.
	ThumbnailDirName string = "thumbnails"
)

// Strategy selects how the assignment engine picks among candidates that
// clear the threshold.
type Strategy string

const (
	// StrategyFirst binds to the first acceptable candidate in enumeration order.
	StrategyFirst Strategy = "first"
	// StrategyBest binds to the highest-scoring acceptable candidate.
	StrategyBest Strategy = "best"
)

// DefaultStrategy is the reference first-acceptable-match behaviour.
const DefaultStrategy = StrategyFirst

// ParseStrategy parses a string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first":
		return StrategyFirst, nil
	case "best":
		return StrategyBest, nil
	default:
		return "", fmt.Errorf("%w: '%s', valid options: first, best", ErrInvalidStrategy, s)
	}
}

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// Config holds all configuration for a thumbsync run.
type Config struct {
	// Input/output paths
	InputDir string
	LogDir   string

	// Matching
	Threshold       float64
	RatioTolerance  float64
	Strategy        Strategy
	Workers         int
	VideoExtensions []string
	ImageExtensions []string

	// Tagging
	Backup       bool // Keep exiftool's FILE_original copy instead of overwriting in place
	Rename       bool // Rename matched thumbnails to <video-stem><RenameSuffix><ext>
	RenameSuffix string
	FailFast     bool

	// DebugDir receives side-by-side comparison images for every scored
	// pair. Empty disables debug output.
	DebugDir string

	// External tools
	ExifToolPath string
	FFmpegPath   string
	FFprobePath  string

	// MetricsFile receives a Prometheus textfile at the end of a run.
	MetricsFile string

	// EventsFile receives a copy of the run's NDJSON events.
	EventsFile string
}

// NewConfig creates a new Config with default values.
func NewConfig(inputDir string) *Config {
	return &Config{
		InputDir:        inputDir,
		Threshold:       DefaultThreshold,
		RatioTolerance:  DefaultRatioTolerance,
		Strategy:        DefaultStrategy,
		Workers:         DefaultWorkers,
		VideoExtensions: append([]string(nil), util.DefaultVideoExtensions...),
		ImageExtensions: append([]string(nil), util.DefaultImageExtensions...),
		RenameSuffix:    DefaultRenameSuffix,
		ExifToolPath:    DefaultExifToolPath,
		FFmpegPath:      DefaultFFmpegPath,
		FFprobePath:     DefaultFFprobePath,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return thserrors.NewConfigError(err)
	}
	return nil
}

func (c *Config) validate() error {
	if !(c.Threshold > 0 && c.Threshold <= MaxThreshold) {
		return fmt.Errorf("%w: must be in (0, %g], got %g", ErrInvalidThreshold, MaxThreshold, c.Threshold)
	}

	if !(c.RatioTolerance > 0) {
		return fmt.Errorf("%w: must be > 0, got %g", ErrInvalidRatioTolerance, c.RatioTolerance)
	}

	if _, err := ParseStrategy(string(c.Strategy)); err != nil {
		return err
	}

	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: must be 1-%d, got %d", ErrInvalidWorkers, MaxWorkers, c.Workers)
	}

	if len(util.ExtensionSet(c.VideoExtensions)) == 0 || len(util.ExtensionSet(c.ImageExtensions)) == 0 {
		return ErrNoExtensions
	}

	if c.Rename && strings.ContainsAny(c.RenameSuffix, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidRenameSuffix, c.RenameSuffix)
	}

	return nil
}

// VideoExtensionSet returns the configured video extensions as a lookup set.
func (c *Config) VideoExtensionSet() map[string]bool {
	return util.ExtensionSet(c.VideoExtensions)
}

// ImageExtensionSet returns the configured image extensions as a lookup set.
func (c *Config) ImageExtensionSet() map[string]bool {
	return util.ExtensionSet(c.ImageExtensions)
}
