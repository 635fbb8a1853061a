package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file and default values.
const (
	EnvExifTool  = "THUMBSYNC_EXIFTOOL"
	EnvFFmpeg    = "THUMBSYNC_FFMPEG"
	EnvFFprobe   = "THUMBSYNC_FFPROBE"
	EnvThreshold = "THUMBSYNC_THRESHOLD"
)

// LoadDotEnv loads a .env file into the process environment if one exists.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment overrides onto the config. lookup is
// normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvExifTool); ok && v != "" {
		c.ExifToolPath = v
	}
	if v, ok := lookup(EnvFFmpeg); ok && v != "" {
		c.FFmpegPath = v
	}
	if v, ok := lookup(EnvFFprobe); ok && v != "" {
		c.FFprobePath = v
	}
	if v, ok := lookup(EnvThreshold); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidThreshold, EnvThreshold, v)
		}
		c.Threshold = f
	}
	return nil
}
