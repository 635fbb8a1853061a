package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Match is the [match] section of the configuration file.
type Match struct {
	Threshold       *float64 `toml:"threshold"`
	RatioTolerance  *float64 `toml:"ratio_tolerance"`
	Strategy        string   `toml:"strategy"`
	Workers         *int     `toml:"workers"`
	VideoExtensions []string `toml:"video_extensions"`
	ImageExtensions []string `toml:"image_extensions"`
	RenameSuffix    string   `toml:"rename_suffix"`
}

// Tools is the [tools] section of the configuration file.
type Tools struct {
	ExifTool string `toml:"exiftool"`
	FFmpeg   string `toml:"ffmpeg"`
	FFprobe  string `toml:"ffprobe"`
}

// Output is the [output] section of the configuration file.
type Output struct {
	LogDir      string `toml:"log_dir"`
	MetricsFile string `toml:"metrics_file"`
	EventsFile  string `toml:"events_file"`
}

// File mirrors the on-disk TOML configuration. Pointer fields distinguish
// "unset" from zero so a file never overrides a default with a zero value.
type File struct {
	Match  Match  `toml:"match"`
	Tools  Tools  `toml:"tools"`
	Output Output `toml:"output"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/thumbsync/config.toml")
}

// LoadFile parses the configuration file at path. An empty path selects the
// default location. A missing file is not an error; the returned bool
// reports whether a file was read.
func LoadFile(path string) (*File, string, bool, error) {
	resolved := path
	if resolved == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, "", false, err
		}
		resolved = p
	} else {
		p, err := expandPath(resolved)
		if err != nil {
			return nil, "", false, err
		}
		resolved = p
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &File{}, resolved, false, nil
		}
		return nil, "", false, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var f File
	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&f); err != nil {
		return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	return &f, resolved, true, nil
}

// ApplyFile overlays values set in f onto the config.
func (c *Config) ApplyFile(f *File) error {
	if f == nil {
		return nil
	}
	if f.Match.Threshold != nil {
		c.Threshold = *f.Match.Threshold
	}
	if f.Match.RatioTolerance != nil {
		c.RatioTolerance = *f.Match.RatioTolerance
	}
	if f.Match.Strategy != "" {
		s, err := ParseStrategy(f.Match.Strategy)
		if err != nil {
			return err
		}
		c.Strategy = s
	}
	if f.Match.Workers != nil {
		c.Workers = *f.Match.Workers
	}
	if len(f.Match.VideoExtensions) > 0 {
		c.VideoExtensions = f.Match.VideoExtensions
	}
	if len(f.Match.ImageExtensions) > 0 {
		c.ImageExtensions = f.Match.ImageExtensions
	}
	if f.Match.RenameSuffix != "" {
		c.RenameSuffix = f.Match.RenameSuffix
	}
	if f.Tools.ExifTool != "" {
		c.ExifToolPath = f.Tools.ExifTool
	}
	if f.Tools.FFmpeg != "" {
		c.FFmpegPath = f.Tools.FFmpeg
	}
	if f.Tools.FFprobe != "" {
		c.FFprobePath = f.Tools.FFprobe
	}
	if f.Output.LogDir != "" {
		dir, err := expandPath(f.Output.LogDir)
		if err != nil {
			return err
		}
		c.LogDir = dir
	}
	if f.Output.MetricsFile != "" {
		p, err := expandPath(f.Output.MetricsFile)
		if err != nil {
			return err
		}
		c.MetricsFile = p
	}
	if f.Output.EventsFile != "" {
		p, err := expandPath(f.Output.EventsFile)
		if err != nil {
			return err
		}
		c.EventsFile = p
	}
	return nil
}

func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
