package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONReporter outputs NDJSON events, one object per line. Every event
// carries "type", "timestamp" and, once a run has started, "run_id".
type JSONReporter struct {
	writer io.Writer
	mu     sync.Mutex
	runID  string
}

// NewEventFileReporter appends NDJSON events to path, creating it and its
// directory as needed. The returned closer closes the file.
func NewEventFileReporter(path string) (*JSONReporter, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create event file directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event file %s: %w", path, err)
	}
	return NewJSONReporterWithWriter(f), f, nil
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{writer: w}
}

func (r *JSONReporter) timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) setRun(id string) {
	r.mu.Lock()
	r.runID = id
	r.mu.Unlock()
}

func (r *JSONReporter) write(event map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event["timestamp"] = r.timestamp()
	if r.runID != "" {
		event["run_id"] = r.runID
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func failureList(items []FailureItem) []map[string]string {
	out := make([]map[string]string, len(items))
	for i, f := range items {
		out[i] = map[string]string{"path": f.Path, "kind": f.Kind, "message": f.Message}
	}
	return out
}

func (r *JSONReporter) Hardware(summary HardwareSummary) {
	r.write(map[string]interface{}{
		"type":     "hardware",
		"hostname": summary.Hostname,
		"platform": summary.Platform,
		"cores":    summary.Cores,
	})
}

func (r *JSONReporter) RunStarted(info RunStartInfo) {
	r.setRun(info.RunID)
	r.write(map[string]interface{}{
		"type":             "run_started",
		"root":             info.Root,
		"total_thumbnails": info.TotalThumbnails,
		"threshold":        info.Threshold,
		"ratio_tolerance":  info.RatioTolerance,
		"strategy":         info.Strategy,
		"workers":          info.Workers,
		"backup":           info.Backup,
		"rename":           info.Rename,
		"debug_dir":        info.DebugDir,
	})
}

func (r *JSONReporter) ThumbnailProgress(progress ThumbnailProgress) {
	r.write(map[string]interface{}{
		"type":      "thumbnail_progress",
		"current":   progress.Current,
		"total":     progress.Total,
		"thumbnail": progress.Thumbnail,
	})
}

func (r *JSONReporter) Matched(result MatchResult) {
	r.write(map[string]interface{}{
		"type":       "matched",
		"thumbnail":  result.Thumbnail,
		"video":      result.Video,
		"similarity": result.Similarity,
		"value":      result.Value,
		"source_tag": result.Source,
		"tags":       result.Tags,
		"renamed_to": result.RenamedTo,
	})
}

func (r *JSONReporter) Unmatched(result UnmatchResult) {
	candidate := result.BestCandidate
	if candidate == "" {
		candidate = "none"
	}
	r.write(map[string]interface{}{
		"type":            "unmatched",
		"thumbnail":       result.Thumbnail,
		"best_similarity": result.BestSimilarity,
		"best_candidate":  candidate,
		"considered":      result.Considered,
		"undecodable":     result.Undecodable,
		"ratio_rejected":  result.RatioRejected,
		"consumed":        result.Consumed,
	})
}

func (r *JSONReporter) RunComplete(summary RunSummary) {
	unmatched := make([]string, len(summary.Unmatched))
	for i, u := range summary.Unmatched {
		unmatched[i] = u.Thumbnail
	}
	r.write(map[string]interface{}{
		"type":             "run_complete",
		"root":             summary.Root,
		"total":            summary.Total,
		"matched":          summary.Matched,
		"renamed":          summary.Renamed,
		"unmatched":        unmatched,
		"failures":         failureList(summary.Failures),
		"duration_seconds": summary.Duration.Seconds(),
		"aborted":          summary.Aborted,
	})
}

func (r *JSONReporter) ManifestStarted(info ManifestStartInfo) {
	r.setRun(info.RunID)
	r.write(map[string]interface{}{
		"type":            "manifest_started",
		"root":            info.Root,
		"total_manifests": info.TotalManifests,
		"backup":          info.Backup,
	})
}

func (r *JSONReporter) ManifestProgress(progress ManifestProgress) {
	r.write(map[string]interface{}{
		"type":     "manifest_progress",
		"current":  progress.Current,
		"total":    progress.Total,
		"manifest": progress.Manifest,
		"photos":   progress.Photos,
		"videos":   progress.Videos,
		"gifs":     progress.GIFs,
	})
}

func (r *JSONReporter) MediaResult(result MediaResult) {
	event := map[string]interface{}{
		"type":   "media_result",
		"path":   result.Path,
		"kind":   result.Kind,
		"status": result.Status,
		"date":   result.Timestamp,
	}
	if result.Message != "" {
		event["message"] = result.Message
	}
	r.write(event)
}

func (r *JSONReporter) ManifestComplete(summary ManifestSummary) {
	notFound := summary.NotFound
	if notFound == nil {
		notFound = []string{}
	}
	r.write(map[string]interface{}{
		"type":             "manifest_complete",
		"root":             summary.Root,
		"manifests":        summary.Manifests,
		"media":            summary.Media,
		"tagged":           summary.Tagged,
		"not_found":        notFound,
		"failures":         failureList(summary.Failures),
		"duration_seconds": summary.Duration.Seconds(),
		"aborted":          summary.Aborted,
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]interface{}{
		"type":    "warning",
		"message": message,
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]interface{}{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
	})
}

func (r *JSONReporter) OperationComplete(message string) {
	r.write(map[string]interface{}{
		"type":    "operation_complete",
		"message": message,
	})
}

func (r *JSONReporter) Verbose(message string) {
	r.write(map[string]interface{}{
		"type":    "verbose",
		"message": message,
	})
}
