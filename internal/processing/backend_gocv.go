//go:build gocv

package processing

import (
	"github.com/five82/thumbsync/internal/config"
	"github.com/five82/thumbsync/internal/frame"
	"github.com/five82/thumbsync/internal/similarity"
)

// BackendName identifies the frame and scoring backend compiled in.
const BackendName = "opencv"

func newBackend(*config.Config) (frame.Decoder, similarity.Scorer) {
	return frame.NewGoCVDecoder(), similarity.NewGoCVScorer()
}
