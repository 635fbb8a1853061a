// Package discovery locates thumbnails and the sibling videos they may
// belong to.
//
// A thumbnail is any image file directly inside a directory literally named
// "thumbnails". Its candidate videos are the video files in the directory
// that contains that "thumbnails" directory:
//
//	chat_123/videos/clip.mp4
//	chat_123/videos/thumbnails/clip_thumb.jpg
package discovery

import (
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/five82/thumbsync/internal/config"
	"github.com/five82/thumbsync/internal/util"
)

// DiscoveryLogger defines the interface for discovery logging.
type DiscoveryLogger interface {
	Info(format string, args ...any)
	Debug(format string, args ...any)
}

// Thumbnail is a discovered thumbnail image.
type Thumbnail struct {
	Path     string // absolute path of the image
	Dir      string // the "thumbnails" directory
	VideoDir string // directory holding the candidate videos
}

// Enumerator walks a root directory for thumbnails. It holds no state
// between walks, so Thumbnails can be ranged over any number of times.
type Enumerator struct {
	root      string
	imageExts map[string]bool
}

// NewEnumerator creates an enumerator for root using the given image
// extension set.
func NewEnumerator(root string, imageExts map[string]bool) *Enumerator {
	return &Enumerator{root: root, imageExts: imageExts}
}

// Root returns the directory being enumerated.
func (e *Enumerator) Root() string {
	return e.root
}

// Thumbnails lazily yields thumbnails in lexical walk order. The order is
// stable for an unchanged filesystem. Unreadable subdirectories are yielded
// as errors and skipped; an unreadable root ends the sequence.
func (e *Enumerator) Thumbnails() iter.Seq2[Thumbnail, error] {
	return func(yield func(Thumbnail, error) bool) {
		root, err := filepath.Abs(e.root)
		if err != nil {
			yield(Thumbnail{}, fmt.Errorf("invalid root %s: %w", e.root, err))
			return
		}

		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					yield(Thumbnail{}, fmt.Errorf("cannot read directory %s: %w", path, err))
					return filepath.SkipAll
				}
				if !yield(Thumbnail{}, fmt.Errorf("cannot read %s: %w", path, err)) {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || util.IsHidden(d.Name()) {
				return nil
			}
			if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
				return nil
			}

			dir := filepath.Dir(path)
			if filepath.Base(dir) != config.ThumbnailDirName {
				return nil
			}
			if !util.HasExtension(path, e.imageExts) {
				return nil
			}

			thumb := Thumbnail{
				Path:     path,
				Dir:      dir,
				VideoDir: filepath.Dir(dir),
			}
			if !yield(thumb, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// Collect materializes the thumbnail sequence. It stops at the first error.
func (e *Enumerator) Collect() ([]Thumbnail, error) {
	var thumbs []Thumbnail
	for thumb, err := range e.Thumbnails() {
		if err != nil {
			return nil, err
		}
		thumbs = append(thumbs, thumb)
	}
	return thumbs, nil
}

// CandidateVideos returns the video files directly inside videoDir, sorted
// alphabetically by filename. An empty result is not an error.
func CandidateVideos(videoDir string, videoExts map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(videoDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", videoDir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Skip hidden files
		if util.IsHidden(name) {
			continue
		}

		if util.HasExtension(name, videoExts) {
			files = append(files, filepath.Join(videoDir, name))
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		a := strings.ToLower(filepath.Base(files[i]))
		b := strings.ToLower(filepath.Base(files[j]))
		if a == b {
			return files[i] < files[j]
		}
		return a < b
	})

	return files, nil
}

// LogThumbnails logs the first 5 discovered thumbnails plus a count.
func LogThumbnails(thumbs []Thumbnail, logger DiscoveryLogger) {
	if logger == nil {
		return
	}
	if len(thumbs) == 0 {
		logger.Info("No thumbnails found")
		return
	}

	logger.Info("Found %d thumbnail(s)", len(thumbs))

	maxToLog := min(5, len(thumbs))
	for i := range maxToLog {
		logger.Debug("  %s", util.ShortPath(thumbs[i].Path, 4))
	}

	if len(thumbs) > 5 {
		logger.Debug("  ... and %d more", len(thumbs)-5)
	}
}
