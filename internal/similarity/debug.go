package similarity

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"sync/atomic"

	"github.com/disintegration/imaging"

	"github.com/five82/thumbsync/internal/util"
)

const debugGap = 10

// DebugWriter saves a side-by-side image of each compared pair: the
// thumbnail on the left and the resized video frame on the right.
type DebugWriter struct {
	dir string
	seq atomic.Int64
}

// NewDebugWriter creates dir if needed and returns a writer into it.
func NewDebugWriter(dir string) (*DebugWriter, error) {
	if err := util.EnsureDirectory(dir); err != nil {
		return nil, fmt.Errorf("failed to create debug directory: %w", err)
	}
	return &DebugWriter{dir: dir}, nil
}

// Dir returns the output directory.
func (d *DebugWriter) Dir() string {
	return d.dir
}

// Composite builds the side-by-side comparison image.
func Composite(thumb, frame image.Image) *image.NRGBA {
	tb := thumb.Bounds()
	w, h := tb.Dx(), tb.Dy()
	resized := FitTo(frame, w, h)

	canvas := imaging.New(w*2+debugGap, h, color.NRGBA{0, 0, 0, 255})
	canvas = imaging.Paste(canvas, thumb, image.Pt(0, 0))
	canvas = imaging.Paste(canvas, resized, image.Pt(w+debugGap, 0))
	return canvas
}

// Write saves the comparison and returns its path. The name carries a
// sequence number, both file stems and the similarity percentage.
func (d *DebugWriter) Write(thumbPath, videoPath string, thumb, frame image.Image, sim float64) (string, error) {
	n := d.seq.Add(1)
	name := fmt.Sprintf("%05d_%s__%s_%.0f.png",
		n, util.GetFileStem(thumbPath), util.GetFileStem(videoPath), sim*100)
	path := filepath.Join(d.dir, name)
	if err := imaging.Save(Composite(thumb, frame), path); err != nil {
		return "", fmt.Errorf("failed to write debug image: %w", err)
	}
	return path, nil
}
