//go:build !gocv

package processing

import (
	"github.com/five82/thumbsync/internal/config"
	"github.com/five82/thumbsync/internal/frame"
	"github.com/five82/thumbsync/internal/similarity"
)

// BackendName identifies the frame and scoring backend compiled in.
const BackendName = "ffmpeg"

func newBackend(cfg *config.Config) (frame.Decoder, similarity.Scorer) {
	return frame.NewFFmpegDecoder(cfg.FFmpegPath, cfg.FFprobePath), similarity.NewCorrelationScorer()
}
