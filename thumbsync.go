// Package thumbsync restores capture dates on chat-export video thumbnails.
//
// Messaging exports keep each video's preview image in a "thumbnails"
// directory next to the videos, but strip the preview's metadata. thumbsync
// finds the video each thumbnail was taken from by comparing it with the
// first frame of every candidate video, then copies the video's capture date
// onto the thumbnail with exiftool.
//
// Basic usage:
//
//	m, err := thumbsync.New(
//	    thumbsync.WithStrategy(thumbsync.StrategyBest),
//	    thumbsync.WithRename(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := m.Match(ctx, "/exports/messages", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("matched %d of %d thumbnails\n", len(result.Matched), result.Total)
package thumbsync

import (
	"context"

	"github.com/five82/thumbsync/internal/config"
	"github.com/five82/thumbsync/internal/processing"
	"github.com/five82/thumbsync/internal/reporter"
)

// Re-export strategy types
type Strategy = config.Strategy

const (
	StrategyFirst = config.StrategyFirst
	StrategyBest  = config.StrategyBest
)

// ParseStrategy converts a strategy name ("first" or "best") to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	return config.ParseStrategy(s)
}

// Reporter receives progress and result events.
type Reporter = reporter.Reporter

// Matcher is the main entry point.
type Matcher struct {
	config *config.Config
}

// Binding is a thumbnail bound to the video it was cut from.
type Binding struct {
	Thumbnail  string
	Path       string // thumbnail path after an optional rename
	Video      string
	Similarity float64
	Date       string
	SourceTag  string
}

// Unmatched is a thumbnail for which no video cleared the threshold.
type Unmatched struct {
	Thumbnail      string
	BestSimilarity float64
	BestCandidate  string
}

// Failure is a per-thumbnail or per-file error.
type Failure struct {
	Path string
	Err  error
}

// Result summarizes a match run.
type Result struct {
	RunID     string
	Total     int
	Matched   []Binding
	Unmatched []Unmatched
	Failures  []Failure
}

// ManifestResult summarizes a manifest run.
type ManifestResult struct {
	RunID    string
	Media    int
	Tagged   int
	NotFound []string
	Failures []Failure
}

// Option configures the matcher.
type Option func(*config.Config)

// New creates a Matcher with the given options.
func New(opts ...Option) (*Matcher, error) {
	cfg := config.NewConfig(".")

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Matcher{config: cfg}, nil
}

// WithThreshold sets the acceptance threshold. A candidate matches when
// 1 - similarity is below it.
func WithThreshold(t float64) Option {
	return func(c *config.Config) {
		c.Threshold = t
	}
}

// WithRatioTolerance sets the maximum aspect ratio difference between a
// thumbnail and a candidate frame.
func WithRatioTolerance(t float64) Option {
	return func(c *config.Config) {
		c.RatioTolerance = t
	}
}

// WithStrategy selects first-acceptable or best-scoring assignment.
func WithStrategy(s Strategy) Option {
	return func(c *config.Config) {
		c.Strategy = s
	}
}

// WithWorkers sets how many candidates are scored concurrently.
func WithWorkers(n int) Option {
	return func(c *config.Config) {
		c.Workers = n
	}
}

// WithBackup keeps exiftool's _original copy of every modified file.
func WithBackup(enable bool) Option {
	return func(c *config.Config) {
		c.Backup = enable
	}
}

// WithRename renames matched thumbnails after their video.
func WithRename(enable bool) Option {
	return func(c *config.Config) {
		c.Rename = enable
	}
}

// WithFailFast stops at the first per-item failure.
func WithFailFast(enable bool) Option {
	return func(c *config.Config) {
		c.FailFast = enable
	}
}

// WithDebugDir writes a side-by-side image for every scored pair to dir.
func WithDebugDir(dir string) Option {
	return func(c *config.Config) {
		c.DebugDir = dir
	}
}

// WithTools overrides the exiftool, ffmpeg and ffprobe executables. Empty
// values keep the defaults.
func WithTools(exiftool, ffmpeg, ffprobe string) Option {
	return func(c *config.Config) {
		if exiftool != "" {
			c.ExifToolPath = exiftool
		}
		if ffmpeg != "" {
			c.FFmpegPath = ffmpeg
		}
		if ffprobe != "" {
			c.FFprobePath = ffprobe
		}
	}
}

// WithMetricsFile writes Prometheus textfile metrics to path after a run.
func WithMetricsFile(path string) Option {
	return func(c *config.Config) {
		c.MetricsFile = path
	}
}

// Match binds every thumbnail under root to its source video and copies the
// video's capture date onto it. A nil reporter discards progress.
func (m *Matcher) Match(ctx context.Context, root string, rep Reporter) (*Result, error) {
	cfg := *m.config
	cfg.InputDir = root

	session, err := processing.Open(&cfg, "", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close() }()

	summary, err := processing.Run(ctx, &cfg, session.Deps, rep)
	if summary == nil {
		return nil, err
	}
	return newResult(summary), err
}

// TagFromManifests writes the dates recorded in the export's JSON
// manifests to the media files under root.
func (m *Matcher) TagFromManifests(ctx context.Context, root string, rep Reporter) (*ManifestResult, error) {
	cfg := *m.config
	cfg.InputDir = root

	session, err := processing.Open(&cfg, "", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close() }()

	summary, err := processing.RunManifest(ctx, &cfg, session.Deps, rep)
	if summary == nil {
		return nil, err
	}
	return &ManifestResult{
		RunID:    summary.RunID,
		Media:    summary.Media,
		Tagged:   summary.Tagged,
		NotFound: summary.NotFound,
		Failures: convertFailures(summary.Failures),
	}, err
}

func newResult(s *processing.Summary) *Result {
	res := &Result{RunID: s.RunID, Total: s.Total, Failures: convertFailures(s.Failures)}
	for _, b := range s.Matched {
		res.Matched = append(res.Matched, Binding{
			Thumbnail:  b.Transfer.Thumbnail,
			Path:       b.Transfer.Path,
			Video:      b.Outcome.Video,
			Similarity: b.Outcome.Similarity,
			Date:       b.Transfer.Value,
			SourceTag:  b.Transfer.Source,
		})
	}
	for _, u := range s.Unmatched {
		res.Unmatched = append(res.Unmatched, Unmatched{
			Thumbnail:      u.Thumbnail,
			BestSimilarity: u.BestSimilarity,
			BestCandidate:  u.BestCandidate,
		})
	}
	return res
}

func convertFailures(in []processing.Failure) []Failure {
	out := make([]Failure, len(in))
	for i, f := range in {
		out[i] = Failure{Path: f.Path, Err: f.Err}
	}
	return out
}
