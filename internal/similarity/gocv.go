//go:build gocv

package similarity

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GoCVScorer scores with OpenCV's matchTemplate in TM_CCOEFF_NORMED mode.
type GoCVScorer struct{}

// NewGoCVScorer creates an OpenCV-backed scorer.
func NewGoCVScorer() *GoCVScorer {
	return &GoCVScorer{}
}

// Similarity implements Scorer.
func (s *GoCVScorer) Similarity(thumb, frame image.Image) (float64, error) {
	tb := thumb.Bounds()
	if tb.Dx() == 0 || tb.Dy() == 0 {
		return 0, ErrEmptyImage
	}

	tm, err := gocv.ImageToMatRGB(thumb)
	if err != nil {
		return 0, fmt.Errorf("thumbnail to mat: %w", err)
	}
	defer tm.Close()

	fm, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return 0, fmt.Errorf("frame to mat: %w", err)
	}
	defer fm.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(fm, &resized, image.Pt(tb.Dx(), tb.Dy()), 0, 0, gocv.InterpolationLinear)

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(tm, resized, &result, gocv.TmCcoeffNormed, mask)

	if result.Empty() {
		return 0, fmt.Errorf("matchTemplate returned no result")
	}
	return float64(result.GetFloatAt(0, 0)), nil
}
