// Package transfer copies the capture date of a matched video onto its
// thumbnail and optionally renames the thumbnail after the video.
package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	thserrors "github.com/five82/thumbsync/internal/errors"
	"github.com/five82/thumbsync/internal/exiftool"
	"github.com/five82/thumbsync/internal/util"
)

// MetadataTool reads and writes file tags.
type MetadataTool interface {
	ReadTags(ctx context.Context, path string) (map[string]string, error)
	WriteTags(ctx context.Context, path string, tags map[string]string, mode exiftool.WriteMode, extra ...string) error
}

// SourceTags lists the video tags tried, in order, for the authoritative
// capture date. FileCreateDate is missing on filesystems without a birth
// time, hence the fallbacks.
var SourceTags = []string{
	"FileCreateDate",
	"CreateDate",
	"MediaCreateDate",
	"TrackCreateDate",
	"FileModifyDate",
}

// AlwaysWrite are written even when the thumbnail does not carry them yet.
var AlwaysWrite = []string{"CreateDate", "DateTimeOriginal", "XMP:CreateDate"}

// readOnly date tags exiftool reports but cannot write.
var readOnly = map[string]bool{
	"FileAccessDate":      true,
	"FileInodeChangeDate": true,
}

// Options controls a Transferer.
type Options struct {
	Backup       bool
	Rename       bool
	RenameSuffix string
}

// Result describes what Apply did to one thumbnail.
type Result struct {
	Thumbnail string   // original thumbnail path
	Path      string   // thumbnail path after an optional rename
	Video     string
	Value     string   // date written to every target tag
	Source    string   // video tag the value came from
	Tags      []string // target tags in write order
	Renamed   bool
}

// Transferer applies video dates to thumbnails.
type Transferer struct {
	tool MetadataTool
	opts Options
}

// New creates a Transferer.
func New(tool MetadataTool, opts Options) *Transferer {
	if opts.RenameSuffix == "" {
		opts.RenameSuffix = "_thumb"
	}
	return &Transferer{tool: tool, opts: opts}
}

// Apply reads both tag sets, writes the video's capture date to every date
// tag of the thumbnail and renames the thumbnail when configured. Applying
// the same pair twice writes the same value again.
func (t *Transferer) Apply(ctx context.Context, thumbPath, videoPath string) (Result, error) {
	res := Result{Thumbnail: thumbPath, Path: thumbPath, Video: videoPath}

	videoTags, err := t.tool.ReadTags(ctx, videoPath)
	if err != nil {
		return res, err
	}
	thumbTags, err := t.tool.ReadTags(ctx, thumbPath)
	if err != nil {
		return res, err
	}

	value, source, ok := AuthoritativeDate(videoTags)
	if !ok {
		return res, thserrors.NewMetadataError(
			fmt.Sprintf("no capture date on %s (tried %s)", filepath.Base(videoPath), strings.Join(SourceTags, ", ")), nil)
	}
	res.Value, res.Source = value, source

	targets := TargetTags(thumbTags)
	res.Tags = targets

	writes := make(map[string]string, len(targets))
	for _, tag := range targets {
		writes[tag] = value
	}

	mode := exiftool.Overwrite
	if t.opts.Backup {
		mode = exiftool.Backup
	}
	if err := t.tool.WriteTags(ctx, thumbPath, writes, mode); err != nil {
		return res, err
	}

	if t.opts.Rename {
		newPath, renamed, err := RenameAfterVideo(thumbPath, videoPath, t.opts.RenameSuffix)
		if err != nil {
			return res, err
		}
		res.Path, res.Renamed = newPath, renamed
	}

	return res, nil
}

// AuthoritativeDate picks the first non-empty tag of SourceTags.
func AuthoritativeDate(videoTags map[string]string) (value, source string, ok bool) {
	for _, tag := range SourceTags {
		if v := strings.TrimSpace(videoTags[tag]); v != "" && !isZeroDate(v) {
			return v, tag, true
		}
	}
	return "", "", false
}

// isZeroDate reports QuickTime's unset date.
func isZeroDate(v string) bool {
	return strings.HasPrefix(v, "0000:00:00")
}

// TargetTags returns the thumbnail date tags to overwrite, sorted: every
// writable tag whose name contains "Date" plus AlwaysWrite.
func TargetTags(thumbTags map[string]string) []string {
	set := make(map[string]bool)
	for name := range thumbTags {
		if strings.Contains(name, "Date") && !readOnly[name] {
			set[name] = true
		}
	}
	for _, name := range AlwaysWrite {
		set[name] = true
	}

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RenamedPath returns <video-stem><suffix><thumb-ext> in the thumbnail's
// directory.
func RenamedPath(thumbPath, videoPath, suffix string) string {
	name := util.GetFileStem(videoPath) + suffix + filepath.Ext(thumbPath)
	return filepath.Join(filepath.Dir(thumbPath), name)
}

// RenameAfterVideo renames the thumbnail to RenamedPath. An existing file
// at the destination is an error; a thumbnail already carrying the name is
// left alone.
func RenameAfterVideo(thumbPath, videoPath, suffix string) (string, bool, error) {
	dest := RenamedPath(thumbPath, videoPath, suffix)
	if dest == thumbPath {
		return thumbPath, false, nil
	}
	if _, err := os.Lstat(dest); err == nil {
		return thumbPath, false, thserrors.NewIOError(
			fmt.Sprintf("cannot rename %s: %s already exists", filepath.Base(thumbPath), filepath.Base(dest)), nil)
	}
	if err := os.Rename(thumbPath, dest); err != nil {
		return thumbPath, false, thserrors.NewIOError("rename failed", err)
	}
	return dest, true, nil
}
