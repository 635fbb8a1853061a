package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/five82/thumbsync/internal/util"
)

// Path components shown for thumbnails and videos in result lines.
const (
	thumbComponents = 4
	videoComponents = 2
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu          sync.Mutex
	out         io.Writer
	errOut      io.Writer
	interactive bool
	verbose     bool
	progress    *progressbar.ProgressBar
	cyan        *color.Color
	green       *color.Color
	yellow      *color.Color
	red         *color.Color
	magenta     *color.Color
	bold        *color.Color
	faint       *color.Color
}

// NewTerminalReporter creates a terminal reporter on stdout/stderr. Colour
// and the progress bar are only used when stderr is a terminal.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	return NewTerminalReporterWithWriters(os.Stdout, os.Stderr, isTerminal(os.Stderr), verbose)
}

// NewTerminalReporterWithWriters creates a terminal reporter with custom
// writers.
func NewTerminalReporterWithWriters(out, errOut io.Writer, interactive, verbose bool) *TerminalReporter {
	r := &TerminalReporter{
		out:         out,
		errOut:      errOut,
		interactive: interactive,
		verbose:     verbose,
		cyan:        color.New(color.FgCyan, color.Bold),
		green:       color.New(color.FgGreen),
		yellow:      color.New(color.FgYellow, color.Bold),
		red:         color.New(color.FgRed, color.Bold),
		magenta:     color.New(color.FgMagenta),
		bold:        color.New(color.Bold),
		faint:       color.New(color.Faint),
	}
	if !interactive {
		for _, c := range []*color.Color{r.cyan, r.green, r.yellow, r.red, r.magenta, r.bold, r.faint} {
			c.DisableColor()
		}
	}
	return r
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (r *TerminalReporter) startProgress(total int, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
	}
	if !r.interactive || total <= 0 {
		r.progress = nil
		return
	}
	r.progress = progressbar.NewOptions(
		total,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(r.errOut),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      label + " [",
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) setProgress(done int, desc string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress == nil {
		return
	}
	_ = r.progress.Set(done)
	r.progress.Describe(desc)
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
}

// println writes a line to out without tearing the progress bar.
func (r *TerminalReporter) println(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Clear()
	}
	_, _ = fmt.Fprintf(r.out, format+"\n", args...)
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) section(title string) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, title)
}

func (r *TerminalReporter) Hardware(summary HardwareSummary) {
	r.section("HOST")
	r.printLabel(10, "Hostname:", summary.Hostname)
	r.printLabel(10, "Platform:", summary.Platform)
	r.printLabel(10, "Cores:", strconv.Itoa(summary.Cores))
}

func (r *TerminalReporter) RunStarted(info RunStartInfo) {
	r.section("MATCH")
	const w = 11
	r.printLabel(w, "Root:", info.Root)
	r.printLabel(w, "Thumbnails:", strconv.Itoa(info.TotalThumbnails))
	r.printLabel(w, "Threshold:", fmt.Sprintf("%g (aspect %g)", info.Threshold, info.RatioTolerance))
	r.printLabel(w, "Strategy:", fmt.Sprintf("%s, %d worker(s)", info.Strategy, info.Workers))
	mode := "overwrite"
	if info.Backup {
		mode = "keep _original backups"
	}
	if info.Rename {
		mode += ", rename after video"
	}
	r.printLabel(w, "Writes:", mode)
	if info.DebugDir != "" {
		r.printLabel(w, "Debug:", info.DebugDir)
	}
	if r.verbose {
		r.printLabel(w, "Run:", info.RunID)
	}
	_, _ = fmt.Fprintln(r.out)
	r.startProgress(info.TotalThumbnails, "Matching")
}

func (r *TerminalReporter) ThumbnailProgress(progress ThumbnailProgress) {
	r.setProgress(progress.Current-1, filepath.Base(progress.Thumbnail))
}

func (r *TerminalReporter) Matched(result MatchResult) {
	line := fmt.Sprintf("%s => %s",
		util.ShortPath(result.Thumbnail, thumbComponents),
		r.green.Sprint(util.ShortPath(result.Video, videoComponents)))
	if r.verbose {
		line += r.faint.Sprintf(" (%s, %s from %s)",
			util.FormatSimilarity(result.Similarity), result.Value, result.Source)
	}
	r.println("%s", line)
	if result.RenamedTo != "" {
		r.println("  %s %s", r.magenta.Sprint("›"), filepath.Base(result.RenamedTo))
	}
}

func (r *TerminalReporter) Unmatched(result UnmatchResult) {
	r.println("%s => %s %s",
		util.ShortPath(result.Thumbnail, thumbComponents),
		r.yellow.Sprint("None"),
		r.faint.Sprintf("(best %s, %s)", util.FormatSimilarity(result.BestSimilarity), closest(result.BestCandidate)))
}

func closest(candidate string) string {
	if candidate == "" {
		return "none"
	}
	return filepath.Base(candidate)
}

func (r *TerminalReporter) RunComplete(summary RunSummary) {
	r.finishProgress()

	r.section("SUMMARY")
	unmatched := len(summary.Unmatched)
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.bold.Sprintf("%d of %d thumbnails matched", summary.Matched, summary.Total))
	_, _ = fmt.Fprintf(r.out, "  Unmatched: %s, failed: %s",
		r.yellow.Sprint(unmatched), r.red.Sprint(len(summary.Failures)))
	if summary.Renamed > 0 {
		_, _ = fmt.Fprintf(r.out, ", renamed: %d", summary.Renamed)
	}
	_, _ = fmt.Fprintf(r.out, "\n  Time: %s\n", util.FormatDuration(summary.Duration.Seconds()))

	if unmatched > 0 {
		rows := make([][]string, 0, unmatched)
		for _, u := range summary.Unmatched {
			rows = append(rows, []string{
				util.ShortPath(u.Thumbnail, thumbComponents),
				util.FormatSimilarity(u.BestSimilarity),
				closest(u.BestCandidate),
				strconv.Itoa(u.Considered),
				strconv.Itoa(u.Undecodable),
			})
		}
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintln(r.out, renderTable(
			[]string{"Thumbnail", "Best", "Closest", "Decoded", "Undecodable"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight}))
	}

	r.printFailures(summary.Failures)

	if summary.Aborted {
		_, _ = fmt.Fprintf(r.out, "\n  %s\n", r.red.Sprint("Run aborted before all thumbnails were processed"))
	}
}

func (r *TerminalReporter) printFailures(failures []FailureItem) {
	if len(failures) == 0 {
		return
	}
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{util.ShortPath(f.Path, thumbComponents), f.Kind, f.Message})
	}
	_, _ = fmt.Fprintln(r.out)
	_, _ = fmt.Fprintln(r.out, renderTable([]string{"File", "Kind", "Error"}, rows, nil))
}

func (r *TerminalReporter) ManifestStarted(info ManifestStartInfo) {
	r.section("MANIFESTS")
	r.printLabel(10, "Root:", info.Root)
	r.printLabel(10, "Manifests:", strconv.Itoa(info.TotalManifests))
	if info.Backup {
		r.printLabel(10, "Writes:", "keep _original backups")
	}
	_, _ = fmt.Fprintln(r.out)
	r.startProgress(info.TotalManifests, "Tagging")
}

func (r *TerminalReporter) ManifestProgress(progress ManifestProgress) {
	width := len(strconv.Itoa(progress.Total))
	short := util.ShortPath(progress.Manifest, 2)
	if progress.Photos+progress.Videos+progress.GIFs == 0 {
		if r.verbose {
			r.println("file %0*d/%d - %s: %s", width, progress.Current, progress.Total, short, r.faint.Sprint("No media"))
		}
	} else {
		r.println("file %0*d/%d - %s: %d photos, %d videos, %d gifs",
			width, progress.Current, progress.Total, short, progress.Photos, progress.Videos, progress.GIFs)
	}
	r.setProgress(progress.Current-1, short)
}

func (r *TerminalReporter) MediaResult(result MediaResult) {
	switch result.Status {
	case MediaNotFound:
		r.println("  %s %s", r.yellow.Sprint("not found"), result.Path)
	case MediaFailed:
		r.println("  %s %s: %s", r.red.Sprint("exiftool error"), result.Path, result.Message)
	default:
		if r.verbose {
			r.println("  %s %s (%s)", r.magenta.Sprint("›"), util.ShortPath(result.Path, thumbComponents), result.Timestamp)
		}
	}
}

func (r *TerminalReporter) ManifestComplete(summary ManifestSummary) {
	r.finishProgress()

	r.section("SUMMARY")
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.bold.Sprintf("%d of %d media tagged from %d manifest(s)", summary.Tagged, summary.Media, summary.Manifests))
	_, _ = fmt.Fprintf(r.out, "  Not found: %s, failed: %s\n",
		r.yellow.Sprint(len(summary.NotFound)), r.red.Sprint(len(summary.Failures)))
	_, _ = fmt.Fprintf(r.out, "  Time: %s\n", util.FormatDuration(summary.Duration.Seconds()))

	if len(summary.NotFound) > 0 {
		_, _ = fmt.Fprintln(r.out)
		_, _ = r.yellow.Fprintln(r.out, "The following files were not found:")
		for _, p := range summary.NotFound {
			_, _ = fmt.Fprintf(r.out, "  %s\n", p)
		}
	}
	r.printFailures(summary.Failures)

	if summary.Aborted {
		_, _ = fmt.Fprintf(r.out, "\n  %s\n", r.red.Sprint("Run aborted before all manifests were processed"))
	}
}

func (r *TerminalReporter) Warning(message string) {
	r.println("%s", r.yellow.Sprintf("WARN: %s", message))
}

func (r *TerminalReporter) Error(err ReporterError) {
	r.mu.Lock()
	if r.progress != nil {
		_ = r.progress.Clear()
	}
	r.mu.Unlock()

	_, _ = fmt.Fprintln(r.errOut)
	_, _ = r.red.Fprintf(r.errOut, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(r.errOut, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) OperationComplete(message string) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = fmt.Fprintf(r.out, "%s %s\n", color.New(color.FgGreen, color.Bold).Sprint("✓"), r.bold.Sprint(message))
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	r.println("%s", r.faint.Sprint(message))
}
