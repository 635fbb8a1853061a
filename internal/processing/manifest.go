package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/five82/thumbsync/internal/config"
	thserrors "github.com/five82/thumbsync/internal/errors"
	"github.com/five82/thumbsync/internal/exiftool"
	"github.com/five82/thumbsync/internal/manifest"
	"github.com/five82/thumbsync/internal/reporter"
	"github.com/five82/thumbsync/internal/util"
)

// ManifestSummary is the result of a manifest run.
type ManifestSummary struct {
	RunID     string
	Root      string
	Manifests int
	Media     int
	Tagged    int
	NotFound  []string
	Failures  []Failure
	Duration  time.Duration
	Aborted   bool
}

// Incomplete reports whether any media was left untagged.
func (s *ManifestSummary) Incomplete() bool {
	return len(s.NotFound) > 0 || len(s.Failures) > 0
}

// RunManifest writes the dates recorded in every messaging manifest under
// cfg.InputDir to the referenced media files. Missing files are collected
// in NotFound; the failure policy matches Run.
func RunManifest(ctx context.Context, cfg *config.Config, deps Deps, rep reporter.Reporter) (*ManifestSummary, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	log := deps.Log
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	start := time.Now()

	if err := CheckRoot(cfg.InputDir); err != nil {
		return nil, err
	}

	files, err := manifest.FindManifests(cfg.InputDir)
	if err != nil {
		return nil, err
	}
	log.Info("Found %d JSON file(s) under %s", len(files), cfg.InputDir)
	if len(files) == 0 {
		warnEmpty(thserrors.NewNoFilesFoundError("manifests", cfg.InputDir), rep, log)
	}

	summary := &ManifestSummary{RunID: deps.RunID, Root: cfg.InputDir, Manifests: len(files)}
	rep.ManifestStarted(reporter.ManifestStartInfo{
		RunID:          deps.RunID,
		Root:           cfg.InputDir,
		TotalManifests: len(files),
		Backup:         cfg.Backup,
	})

	mode := exiftool.Overwrite
	if cfg.Backup {
		mode = exiftool.Backup
	}

	finish := func() {
		summary.Duration = time.Since(start)
		deps.Metrics.Finish("manifest", summary.Duration)
		if err := deps.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			rep.Warning(fmt.Sprintf("Could not write metrics file: %v", err))
			log.Warn("metrics textfile: %v", err)
		}
		rep.ManifestComplete(manifestReport(summary))
		log.Info("Manifest run finished: %d/%d tagged, %d not found, %d failed in %s",
			summary.Tagged, summary.Media, len(summary.NotFound), len(summary.Failures),
			util.FormatDuration(summary.Duration.Seconds()))
	}
	// fail records a per-item failure and reports whether the run must stop.
	fail := func(path string, err error) bool {
		summary.Failures = append(summary.Failures, Failure{Path: path, Err: err})
		deps.Metrics.Failure(kindLabel(err))
		log.Error("%s: %v", path, err)
		return cfg.FailFast
	}
	cancelled := func() (*ManifestSummary, error) {
		summary.Aborted = true
		finish()
		return summary, thserrors.NewCancelledError()
	}

	for i, file := range files {
		if ctx.Err() != nil {
			return cancelled()
		}

		media, err := manifest.Load(file, loc)
		if err != nil {
			if fail(file, err) {
				summary.Aborted = true
				finish()
				return summary, err
			}
			continue
		}

		counts := map[manifest.Kind]int{}
		for _, m := range media {
			counts[m.Kind]++
		}
		rep.ManifestProgress(reporter.ManifestProgress{
			Current:  i + 1,
			Total:    len(files),
			Manifest: file,
			Photos:   counts[manifest.KindPhoto],
			Videos:   counts[manifest.KindVideo],
			GIFs:     counts[manifest.KindGIF],
		})

		for _, m := range media {
			if ctx.Err() != nil {
				return cancelled()
			}
			summary.Media++

			path, ok := manifest.ResolvePath(cfg.InputDir, m.URI)
			if !ok {
				summary.NotFound = append(summary.NotFound, path)
				deps.Metrics.Media(string(m.Kind), reporter.MediaNotFound)
				log.Warn("not found: %s", path)
				rep.MediaResult(reporter.MediaResult{Path: path, Kind: string(m.Kind), Timestamp: m.Timestamp, Status: reporter.MediaNotFound})
				continue
			}

			tags, extra := manifest.Tags(m)
			if err := deps.Tool.WriteTags(ctx, path, tags, mode, extra...); err != nil {
				if ctx.Err() != nil || thserrors.IsCancelled(err) {
					return cancelled()
				}
				deps.Metrics.Media(string(m.Kind), reporter.MediaFailed)
				rep.MediaResult(reporter.MediaResult{
					Path:      path,
					Kind:      string(m.Kind),
					Timestamp: m.Timestamp,
					Status:    reporter.MediaFailed,
					Message:   err.Error(),
				})
				if fail(path, err) {
					summary.Aborted = true
					finish()
					return summary, err
				}
				continue
			}

			summary.Tagged++
			deps.Metrics.Media(string(m.Kind), reporter.MediaTagged)
			log.Debug("%s %s <- %s", m.Kind, path, m.Timestamp)
			rep.MediaResult(reporter.MediaResult{Path: path, Kind: string(m.Kind), Timestamp: m.Timestamp, Status: reporter.MediaTagged})
		}
	}

	finish()
	return summary, nil
}

func manifestReport(s *ManifestSummary) reporter.ManifestSummary {
	return reporter.ManifestSummary{
		RunID:     s.RunID,
		Root:      s.Root,
		Manifests: s.Manifests,
		Media:     s.Media,
		Tagged:    s.Tagged,
		NotFound:  append([]string(nil), s.NotFound...),
		Failures:  failureItems(s.Failures),
		Duration:  s.Duration,
		Aborted:   s.Aborted,
	}
}
