// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// HardwareSummary contains host information.
type HardwareSummary struct {
	Hostname string
	Platform string // GOOS/GOARCH
	Cores    int
}

// RunStartInfo describes a match run before the first thumbnail.
type RunStartInfo struct {
	RunID           string
	Root            string
	TotalThumbnails int
	Threshold       float64
	RatioTolerance  float64
	Strategy        string
	Workers         int
	Backup          bool
	Rename          bool
	DebugDir        string
}

// ThumbnailProgress reports the thumbnail about to be matched.
type ThumbnailProgress struct {
	Current   int // 1-based
	Total     int
	Thumbnail string
}

// MatchResult describes a bound thumbnail and the metadata written to it.
type MatchResult struct {
	Thumbnail  string
	Video      string
	Similarity float64
	Value      string   // capture date written
	Source     string   // video tag the date came from
	Tags       []string // thumbnail tags written
	RenamedTo  string   // new path when renamed, else empty
}

// UnmatchResult describes a thumbnail left without a video.
type UnmatchResult struct {
	Thumbnail      string
	BestSimilarity float64
	BestCandidate  string // empty reports as "none"
	Considered     int
	Undecodable    int
	RatioRejected  int
	Consumed       int
}

// FailureItem is a per-item failure kept for the end-of-run report.
type FailureItem struct {
	Path    string
	Kind    string
	Message string
}

// RunSummary contains match run completion information.
type RunSummary struct {
	RunID     string
	Root      string
	Total     int
	Matched   int
	Renamed   int
	Unmatched []UnmatchResult
	Failures  []FailureItem
	Duration  time.Duration
	Aborted   bool
}

// ManifestStartInfo describes a manifest run.
type ManifestStartInfo struct {
	RunID          string
	Root           string
	TotalManifests int
	Backup         bool
}

// ManifestProgress reports one manifest file about to be applied.
type ManifestProgress struct {
	Current  int // 1-based
	Total    int
	Manifest string
	Photos   int
	Videos   int
	GIFs     int
}

// Media result statuses.
const (
	MediaTagged   = "tagged"
	MediaNotFound = "not_found"
	MediaFailed   = "failed"
)

// MediaResult is the outcome of tagging one manifest entry.
type MediaResult struct {
	Path      string
	Kind      string
	Timestamp string
	Status    string
	Message   string
}

// ManifestSummary contains manifest run completion information.
type ManifestSummary struct {
	RunID     string
	Root      string
	Manifests int
	Media     int
	Tagged    int
	NotFound  []string
	Failures  []FailureItem
	Duration  time.Duration
	Aborted   bool
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}
