// Package similarity implements the aspect-ratio gate and the normalized
// cross-correlation scorer used to compare a thumbnail with a video frame.
package similarity

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ErrEmptyImage is returned when either input has no pixels.
var ErrEmptyImage = errors.New("empty image")

// Scorer computes how alike two images are. Similarity is in [-1, 1],
// higher means more alike.
type Scorer interface {
	Similarity(thumb, frame image.Image) (float64, error)
}

// AspectRatio returns width/height of img, or 0 when it has no height.
func AspectRatio(img image.Image) float64 {
	b := img.Bounds()
	if b.Dy() == 0 {
		return 0
	}
	return float64(b.Dx()) / float64(b.Dy())
}

// SameAspect reports whether two images' aspect ratios differ by strictly
// less than tolerance.
func SameAspect(a, b image.Image, tolerance float64) bool {
	return math.Abs(AspectRatio(a)-AspectRatio(b)) < tolerance
}

// Difference converts a similarity into the distance compared against the
// match threshold.
func Difference(similarity float64) float64 {
	return 1 - similarity
}

// Accept reports whether a similarity is close enough to count as a match.
func Accept(similarity, threshold float64) bool {
	return Difference(similarity) < threshold
}

// CorrelationScorer scores with the normalized correlation coefficient
// (OpenCV's TM_CCOEFF_NORMED for equally sized inputs). The frame is first
// resized to the thumbnail's exact dimensions.
type CorrelationScorer struct{}

// NewCorrelationScorer creates the default pure-Go scorer.
func NewCorrelationScorer() *CorrelationScorer {
	return &CorrelationScorer{}
}

// Similarity implements Scorer.
func (s *CorrelationScorer) Similarity(thumb, frame image.Image) (float64, error) {
	tb := thumb.Bounds()
	if tb.Dx() == 0 || tb.Dy() == 0 || frame.Bounds().Dx() == 0 || frame.Bounds().Dy() == 0 {
		return 0, ErrEmptyImage
	}

	t := imaging.Clone(thumb)
	f := FitTo(frame, tb.Dx(), tb.Dy())
	return correlation(t, f), nil
}

// FitTo resizes img to exactly w x h with bilinear interpolation.
func FitTo(img image.Image, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, w, h, imaging.Linear)
}

// correlation computes the coefficient over the RGB channels of two
// equally sized images. Channel means are removed independently and the
// sums are pooled across channels.
func correlation(a, b *image.NRGBA) float64 {
	w, h := a.Rect.Dx(), a.Rect.Dy()
	n := float64(w * h)

	var sumA, sumB [3]float64
	for y := range h {
		ra := a.Pix[y*a.Stride : y*a.Stride+w*4]
		rb := b.Pix[y*b.Stride : y*b.Stride+w*4]
		for x := 0; x < w*4; x += 4 {
			for c := range 3 {
				sumA[c] += float64(ra[x+c])
				sumB[c] += float64(rb[x+c])
			}
		}
	}

	var meanA, meanB [3]float64
	for c := range 3 {
		meanA[c] = sumA[c] / n
		meanB[c] = sumB[c] / n
	}

	var cross, varA, varB float64
	for y := range h {
		ra := a.Pix[y*a.Stride : y*a.Stride+w*4]
		rb := b.Pix[y*b.Stride : y*b.Stride+w*4]
		for x := 0; x < w*4; x += 4 {
			for c := range 3 {
				da := float64(ra[x+c]) - meanA[c]
				db := float64(rb[x+c]) - meanB[c]
				cross += da * db
				varA += da * da
				varB += db * db
			}
		}
	}

	denom := math.Sqrt(varA * varB)
	if denom < 1e-9 {
		// At least one image is flat. Two identical flat images still match.
		if varA < 1e-9 && varB < 1e-9 && meanA == meanB {
			return 1
		}
		return 0
	}

	r := cross / denom
	return max(-1, min(1, r))
}
