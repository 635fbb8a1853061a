// Package frame decodes thumbnail images and the first frame of candidate
// videos into image.Image values.
package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP thumbnails with image.Decode

	thserrors "github.com/five82/thumbsync/internal/errors"
	"github.com/five82/thumbsync/internal/ffmpeg"
	"github.com/five82/thumbsync/internal/ffprobe"
	"github.com/five82/thumbsync/internal/logging"
)

// ErrNoFrame is wrapped by every FirstFrame failure. Callers treat such a
// candidate as undecodable and skip it.
var ErrNoFrame = errors.New("no decodable frame")

// Decoder turns files into images.
type Decoder interface {
	// DecodeImage decodes a still image, applying EXIF orientation.
	DecodeImage(path string) (image.Image, error)
	// FirstFrame decodes the first video frame of path.
	FirstFrame(ctx context.Context, path string) (image.Image, error)
}

// Prober is implemented by decoders that can report a video's frame size
// without decoding it. The matcher uses it to reject candidates on aspect
// ratio before paying for a decode. An empty rectangle means unknown.
type Prober interface {
	DisplaySize(ctx context.Context, path string) (image.Rectangle, error)
}

// FFmpegDecoder decodes video frames with ffmpeg and probes their size with
// ffprobe.
type FFmpegDecoder struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpegDecoder creates a decoder using the given tool paths. Empty paths
// resolve through PATH.
func NewFFmpegDecoder(ffmpegPath, ffprobePath string) *FFmpegDecoder {
	return &FFmpegDecoder{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// DecodeImage implements Decoder.
func (d *FFmpegDecoder) DecodeImage(path string) (image.Image, error) {
	return DecodeImage(path)
}

// DisplaySize implements Prober. Rotation metadata is applied the same way
// ffmpeg applies it to extracted frames.
func (d *FFmpegDecoder) DisplaySize(ctx context.Context, path string) (image.Rectangle, error) {
	props, err := ffprobe.GetVideoProperties(ctx, d.FFprobePath, path)
	if err != nil {
		if thserrors.IsCancelled(err) {
			return image.Rectangle{}, err
		}
		return image.Rectangle{}, fmt.Errorf("%w: %s: %v", ErrNoFrame, path, err)
	}
	w, h := props.DisplaySize()
	logging.Debug("probed candidate", "video", path, "codec", props.CodecName,
		"width", w, "height", h, "rotation", props.Rotation, "cover_art", props.AttachedPic)
	return image.Rect(0, 0, int(w), int(h)), nil
}

// FirstFrame implements Decoder.
func (d *FFmpegDecoder) FirstFrame(ctx context.Context, path string) (image.Image, error) {
	res, err := ffmpeg.ExtractFrame(ctx, d.FFmpegPath, ffmpeg.FrameParams{Input: path})
	if err != nil {
		if thserrors.IsCancelled(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrNoFrame, path, err)
	}

	img, err := imaging.Decode(bytes.NewReader(res.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoFrame, path, err)
	}
	return img, nil
}

// DecodeImage opens a still image and rotates it according to its EXIF
// orientation tag.
func DecodeImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, thserrors.NewDecodeError(path, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, thserrors.NewDecodeError(path, fmt.Errorf("empty image"))
	}
	return img, nil
}
