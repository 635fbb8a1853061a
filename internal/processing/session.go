package processing

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/five82/thumbsync/internal/config"
	"github.com/five82/thumbsync/internal/exiftool"
	"github.com/five82/thumbsync/internal/frame"
	"github.com/five82/thumbsync/internal/logging"
	"github.com/five82/thumbsync/internal/metrics"
	"github.com/five82/thumbsync/internal/runlock"
)

// Session owns the external resources of one run: the run lock on the
// root, the persistent exiftool process and the metrics recorder.
type Session struct {
	Deps
	lock *runlock.Lock
	exif *exiftool.Client
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open locks cfg.InputDir and starts the collaborators a run needs. An
// empty runID gets a generated one. Close must be called when done.
func Open(cfg *config.Config, runID string, log *logging.FileLogger) (*Session, error) {
	if runID == "" {
		runID = NewRunID()
	}
	if err := CheckRoot(cfg.InputDir); err != nil {
		return nil, err
	}

	lock, err := runlock.Acquire(os.TempDir(), cfg.InputDir)
	if err != nil {
		return nil, err
	}
	log.Debug("Run lock: %s", lock.Path())

	exif, err := exiftool.Start(cfg.ExifToolPath)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}
	log.Debug("Started %s", exif.Binary())

	decoder, scorer := newBackend(cfg)

	var rec *metrics.Recorder
	if cfg.MetricsFile != "" {
		rec = metrics.New()
	}

	return &Session{
		Deps: Deps{
			Decoder: frame.NewCachedDecoder(decoder, frame.DefaultCacheBytes),
			Scorer:  scorer,
			Tool:    exif,
			Metrics: rec,
			Log:     log,
			RunID:   runID,
		},
		lock: lock,
		exif: exif,
	}, nil
}

// Close stops exiftool and releases the run lock.
func (s *Session) Close() error {
	var errs []error
	if s.exif != nil {
		if err := s.exif.Close(); err != nil {
			errs = append(errs, fmt.Errorf("stop exiftool: %w", err))
		}
	}
	if err := s.lock.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release run lock: %w", err))
	}
	return errors.Join(errs...)
}
