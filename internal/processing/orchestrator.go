// Package processing drives a whole run: it walks the root, feeds each
// thumbnail through the match engine and the metadata transfer, and reports
// progress and results.
package processing

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/five82/thumbsync/internal/config"
	"github.com/five82/thumbsync/internal/discovery"
	thserrors "github.com/five82/thumbsync/internal/errors"
	"github.com/five82/thumbsync/internal/frame"
	"github.com/five82/thumbsync/internal/logging"
	"github.com/five82/thumbsync/internal/match"
	"github.com/five82/thumbsync/internal/metrics"
	"github.com/five82/thumbsync/internal/reporter"
	"github.com/five82/thumbsync/internal/similarity"
	"github.com/five82/thumbsync/internal/transfer"
	"github.com/five82/thumbsync/internal/util"
)

// Deps are the collaborators of a run. Decoder and Scorer are only needed
// by Run. Metrics and Log may be nil.
type Deps struct {
	Decoder frame.Decoder
	Scorer  similarity.Scorer
	Tool    transfer.MetadataTool
	Metrics *metrics.Recorder
	Log     *logging.FileLogger
	RunID   string
	// Location renders manifest timestamps. Nil means time.Local.
	Location *time.Location
}

// Failure is a per-item error that did not stop the run.
type Failure struct {
	Path string
	Err  error
}

// Binding is a matched thumbnail and what was written to it.
type Binding struct {
	Outcome  match.Outcome
	Transfer transfer.Result
}

// Summary is the result of a match run.
type Summary struct {
	RunID     string
	Root      string
	Total     int
	Matched   []Binding
	Unmatched []match.Outcome
	Failures  []Failure
	Duration  time.Duration
	Aborted   bool
}

// Renamed counts the bound thumbnails that were renamed.
func (s *Summary) Renamed() int {
	n := 0
	for _, b := range s.Matched {
		if b.Transfer.Renamed {
			n++
		}
	}
	return n
}

// CheckRoot verifies that root exists and is a directory.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return thserrors.NewPathError(fmt.Sprintf("directory does not exist: %s", root))
		}
		return thserrors.NewPathError(fmt.Sprintf("cannot access %s: %v", root, err))
	}
	if !info.IsDir() {
		return thserrors.NewPathError(fmt.Sprintf("not a directory: %s", root))
	}
	return nil
}

// Run matches every thumbnail under cfg.InputDir. Per-item failures are
// collected in the summary unless cfg.FailFast is set, in which case the
// first one aborts the run and is returned. Cancellation is checked between
// thumbnails and returns a KindCancelled error.
func Run(ctx context.Context, cfg *config.Config, deps Deps, rep reporter.Reporter) (*Summary, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	log := deps.Log
	start := time.Now()

	if err := CheckRoot(cfg.InputDir); err != nil {
		return nil, err
	}

	sysInfo := util.GetSystemInfo()
	rep.Hardware(reporter.HardwareSummary{
		Hostname: sysInfo.Hostname,
		Platform: sysInfo.OS + "/" + sysInfo.Arch,
		Cores:    sysInfo.NumCPU,
	})

	enum := discovery.NewEnumerator(cfg.InputDir, cfg.ImageExtensionSet())
	var thumbs []discovery.Thumbnail
	for thumb, err := range enum.Thumbnails() {
		if err != nil {
			rep.Warning(err.Error())
			log.Warn("%v", err)
			continue
		}
		thumbs = append(thumbs, thumb)
	}
	discovery.LogThumbnails(thumbs, log)
	if len(thumbs) == 0 {
		warnEmpty(thserrors.NewNoFilesFoundError("thumbnails", cfg.InputDir), rep, log)
	}

	summary := &Summary{RunID: deps.RunID, Root: cfg.InputDir, Total: len(thumbs)}

	rep.RunStarted(reporter.RunStartInfo{
		RunID:           deps.RunID,
		Root:            cfg.InputDir,
		TotalThumbnails: len(thumbs),
		Threshold:       cfg.Threshold,
		RatioTolerance:  cfg.RatioTolerance,
		Strategy:        cfg.Strategy.String(),
		Workers:         cfg.Workers,
		Backup:          cfg.Backup,
		Rename:          cfg.Rename,
		DebugDir:        cfg.DebugDir,
	})

	opts := match.Options{
		Threshold:      cfg.Threshold,
		RatioTolerance: cfg.RatioTolerance,
		Strategy:       cfg.Strategy,
		Workers:        cfg.Workers,
	}
	if cfg.DebugDir != "" {
		dw, err := similarity.NewDebugWriter(cfg.DebugDir)
		if err != nil {
			return nil, thserrors.NewIOError("cannot create debug directory", err)
		}
		opts.Observer = debugObserver(dw, rep, log)
	}

	engine := match.NewEngine(deps.Decoder, deps.Scorer, opts)
	tr := transfer.New(deps.Tool, transfer.Options{
		Backup:       cfg.Backup,
		Rename:       cfg.Rename,
		RenameSuffix: cfg.RenameSuffix,
	})
	videoExts := cfg.VideoExtensionSet()

	finish := func() {
		summary.Duration = time.Since(start)
		deps.Metrics.Finish("match", summary.Duration)
		if err := deps.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			rep.Warning(fmt.Sprintf("Could not write metrics file: %v", err))
			log.Warn("metrics textfile: %v", err)
		}
		rep.RunComplete(runReport(summary))
		log.Info("Run finished: %d matched, %d unmatched, %d failed in %s",
			len(summary.Matched), len(summary.Unmatched), len(summary.Failures),
			util.FormatDuration(summary.Duration.Seconds()))
	}

	for i, thumb := range thumbs {
		if ctx.Err() != nil {
			summary.Aborted = true
			finish()
			return summary, thserrors.NewCancelledError()
		}

		rep.ThumbnailProgress(reporter.ThumbnailProgress{Current: i + 1, Total: len(thumbs), Thumbnail: thumb.Path})
		log.Debug("Matching %s", thumb.Path)

		err := processThumbnail(ctx, engine, tr, thumb, videoExts, summary, deps, rep)
		if err == nil {
			continue
		}
		if ctx.Err() != nil || thserrors.IsCancelled(err) {
			summary.Aborted = true
			finish()
			return summary, thserrors.NewCancelledError()
		}

		summary.Failures = append(summary.Failures, Failure{Path: thumb.Path, Err: err})
		deps.Metrics.Failure(kindLabel(err))
		log.Error("%s: %v", thumb.Path, err)
		if cfg.FailFast {
			summary.Aborted = true
			finish()
			return summary, err
		}
	}

	finish()
	return summary, nil
}

func processThumbnail(
	ctx context.Context,
	engine *match.Engine,
	tr *transfer.Transferer,
	thumb discovery.Thumbnail,
	videoExts map[string]bool,
	summary *Summary,
	deps Deps,
	rep reporter.Reporter,
) error {
	candidates, err := discovery.CandidateVideos(thumb.VideoDir, videoExts)
	if err != nil {
		return thserrors.NewIOError("cannot list candidate videos", err)
	}

	outcome, err := engine.Match(ctx, thumb, candidates)
	if err != nil {
		return err
	}
	deps.Metrics.Candidates(outcome.Considered, outcome.Undecodable, outcome.RatioRejected, outcome.Consumed)
	deps.Log.Debug("  %d candidate(s): %d decoded, %d undecodable, %d aspect mismatch, %d consumed",
		len(candidates), outcome.Considered, outcome.Undecodable, outcome.RatioRejected, outcome.Consumed)

	if !outcome.Matched() {
		summary.Unmatched = append(summary.Unmatched, outcome)
		deps.Metrics.Unmatched()
		deps.Log.Info("%s => None (best %s)", thumb.Path, util.FormatSimilarity(outcome.BestSimilarity))
		rep.Unmatched(unmatchReport(outcome))
		return nil
	}

	res, err := tr.Apply(ctx, thumb.Path, outcome.Video)
	if err != nil {
		return err
	}
	summary.Matched = append(summary.Matched, Binding{Outcome: outcome, Transfer: res})
	deps.Metrics.Matched(outcome.Similarity)
	deps.Log.Info("%s => %s (%s, %s from %s)", thumb.Path, outcome.Video,
		util.FormatSimilarity(outcome.Similarity), res.Value, res.Source)

	renamedTo := ""
	if res.Renamed {
		renamedTo = res.Path
	}
	rep.Matched(reporter.MatchResult{
		Thumbnail:  thumb.Path,
		Video:      outcome.Video,
		Similarity: outcome.Similarity,
		Value:      res.Value,
		Source:     res.Source,
		Tags:       res.Tags,
		RenamedTo:  renamedTo,
	})
	return nil
}

// warnEmpty reports a root with nothing to do. Such a run still completes.
func warnEmpty(err *thserrors.CoreError, rep reporter.Reporter, log *logging.FileLogger) {
	rep.Warning(err.Message)
	log.Warn("%v", err)
}

func debugObserver(dw *similarity.DebugWriter, rep reporter.Reporter, log *logging.FileLogger) match.Observer {
	return func(thumb discovery.Thumbnail, score match.Score, thumbImg, frameImg image.Image) {
		path, err := dw.Write(thumb.Path, score.Candidate, thumbImg, frameImg, score.Similarity)
		if err != nil {
			rep.Warning(err.Error())
			log.Warn("%v", err)
			return
		}
		rep.Verbose(fmt.Sprintf("debug image %s", path))
	}
}

func unmatchReport(o match.Outcome) reporter.UnmatchResult {
	return reporter.UnmatchResult{
		Thumbnail:      o.Thumbnail,
		BestSimilarity: o.BestSimilarity,
		BestCandidate:  o.BestCandidate,
		Considered:     o.Considered,
		Undecodable:    o.Undecodable,
		RatioRejected:  o.RatioRejected,
		Consumed:       o.Consumed,
	}
}

func runReport(s *Summary) reporter.RunSummary {
	unmatched := make([]reporter.UnmatchResult, len(s.Unmatched))
	for i, o := range s.Unmatched {
		unmatched[i] = unmatchReport(o)
	}
	return reporter.RunSummary{
		RunID:     s.RunID,
		Root:      s.Root,
		Total:     s.Total,
		Matched:   len(s.Matched),
		Renamed:   s.Renamed(),
		Unmatched: unmatched,
		Failures:  failureItems(s.Failures),
		Duration:  s.Duration,
		Aborted:   s.Aborted,
	}
}

func failureItems(failures []Failure) []reporter.FailureItem {
	items := make([]reporter.FailureItem, len(failures))
	for i, f := range failures {
		items[i] = reporter.FailureItem{Path: f.Path, Kind: kindName(f.Err), Message: f.Err.Error()}
	}
	return items
}

// kindName returns the human readable error category of err.
func kindName(err error) string {
	var coreErr *thserrors.CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind.String()
	}
	if errors.Is(err, frame.ErrNoFrame) {
		return thserrors.KindDecode.String()
	}
	return "Error"
}

// kindLabel returns a metrics label for err.
func kindLabel(err error) string {
	var coreErr *thserrors.CoreError
	if !errors.As(err, &coreErr) {
		return "other"
	}
	switch coreErr.Kind {
	case thserrors.KindIO:
		return "io"
	case thserrors.KindCommand:
		return "command"
	case thserrors.KindDecode:
		return "decode"
	case thserrors.KindMetadata:
		return "metadata"
	case thserrors.KindJSONParse:
		return "json"
	case thserrors.KindPath:
		return "path"
	default:
		return "other"
	}
}
