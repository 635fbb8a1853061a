//go:build gocv

package frame

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	thserrors "github.com/five82/thumbsync/internal/errors"
)

// GoCVDecoder reads images and first frames through OpenCV.
type GoCVDecoder struct{}

// NewGoCVDecoder creates an OpenCV-backed decoder.
func NewGoCVDecoder() *GoCVDecoder {
	return &GoCVDecoder{}
}

// DecodeImage implements Decoder.
func (d *GoCVDecoder) DecodeImage(path string) (image.Image, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, thserrors.NewDecodeError(path, fmt.Errorf("opencv could not read image"))
	}
	out, err := img.ToImage()
	if err != nil {
		return nil, thserrors.NewDecodeError(path, err)
	}
	return out, nil
}

// FirstFrame implements Decoder.
func (d *GoCVDecoder) FirstFrame(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, thserrors.NewCancelledError()
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoFrame, path, err)
	}
	defer vc.Close()

	mat := gocv.NewMat()
	defer mat.Close()
	if ok := vc.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrNoFrame, path)
	}

	out, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoFrame, path, err)
	}
	return out, nil
}
