package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	thserrors "github.com/five82/thumbsync/internal/errors"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/input")

	if cfg.InputDir != "/input" {
		t.Errorf("expected InputDir=/input, got %s", cfg.InputDir)
	}

	// Check defaults
	if cfg.Threshold != DefaultThreshold {
		t.Errorf("expected Threshold=%g, got %g", DefaultThreshold, cfg.Threshold)
	}
	if cfg.RatioTolerance != DefaultRatioTolerance {
		t.Errorf("expected RatioTolerance=%g, got %g", DefaultRatioTolerance, cfg.RatioTolerance)
	}
	if cfg.Strategy != StrategyFirst {
		t.Errorf("expected Strategy=first, got %s", cfg.Strategy)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("expected Workers=%d, got %d", DefaultWorkers, cfg.Workers)
	}
	if !cfg.VideoExtensionSet()[".mp4"] {
		t.Error("expected .mp4 in default video extensions")
	}
	if !cfg.ImageExtensionSet()[".jpg"] {
		t.Error("expected .jpg in default image extensions")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name         string
		modify       func(*Config)
		wantErr      bool
		wantSentinel error
	}{
		{
			name:    "default config is valid",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:         "zero threshold is invalid",
			modify:       func(c *Config) { c.Threshold = 0 },
			wantErr:      true,
			wantSentinel: ErrInvalidThreshold,
		},
		{
			name:         "threshold above 2 is invalid",
			modify:       func(c *Config) { c.Threshold = 2.5 },
			wantErr:      true,
			wantSentinel: ErrInvalidThreshold,
		},
		{
			name:    "threshold 0.05 is valid",
			modify:  func(c *Config) { c.Threshold = 0.05 },
			wantErr: false,
		},
		{
			name:         "negative ratio tolerance is invalid",
			modify:       func(c *Config) { c.RatioTolerance = -0.1 },
			wantErr:      true,
			wantSentinel: ErrInvalidRatioTolerance,
		},
		{
			name:         "unknown strategy is invalid",
			modify:       func(c *Config) { c.Strategy = "random" },
			wantErr:      true,
			wantSentinel: ErrInvalidStrategy,
		},
		{
			name:         "zero workers is invalid",
			modify:       func(c *Config) { c.Workers = 0 },
			wantErr:      true,
			wantSentinel: ErrInvalidWorkers,
		},
		{
			name:         "empty video extensions is invalid",
			modify:       func(c *Config) { c.VideoExtensions = nil },
			wantErr:      true,
			wantSentinel: ErrNoExtensions,
		},
		{
			name: "rename suffix with separator is invalid",
			modify: func(c *Config) {
				c.Rename = true
				c.RenameSuffix = "/thumb"
			},
			wantErr:      true,
			wantSentinel: ErrInvalidRenameSuffix,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/input")
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantSentinel != nil && !errors.Is(err, tt.wantSentinel) {
				t.Errorf("Validate() error = %v, want sentinel %v", err, tt.wantSentinel)
			}
			if err != nil && !thserrors.IsKind(err, thserrors.KindConfig) {
				t.Errorf("Validate() error kind = %v, want Configuration error", err)
			}
		})
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input        string
		want         Strategy
		wantErr      bool
		wantSentinel error
	}{
		{"first", StrategyFirst, false, nil},
		{"FIRST", StrategyFirst, false, nil},
		{" best ", StrategyBest, false, nil},
		{"invalid", "", true, ErrInvalidStrategy},
		{"", "", true, ErrInvalidStrategy},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStrategy(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseStrategy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if tt.wantSentinel != nil && !errors.Is(err, tt.wantSentinel) {
				t.Errorf("ParseStrategy(%q) error = %v, want sentinel %v", tt.input, err, tt.wantSentinel)
			}
			if got != tt.want {
				t.Errorf("ParseStrategy(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	f, path, exists, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if exists {
		t.Error("expected exists=false")
	}
	if f == nil || path == "" {
		t.Error("expected empty file and resolved path")
	}
}

func TestLoadFileAndApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[match]
threshold = 0.05
ratio_tolerance = 0.02
strategy = "best"
workers = 4
video_extensions = [".mp4", ".mov"]

[tools]
exiftool = "/opt/exiftool/exiftool"

[output]
metrics_file = "` + filepath.ToSlash(filepath.Join(dir, "metrics.prom")) + `"
events_file = "` + filepath.ToSlash(filepath.Join(dir, "events.ndjson")) + `"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	f, _, exists, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}

	cfg := NewConfig("/input")
	if err := cfg.ApplyFile(f); err != nil {
		t.Fatalf("ApplyFile() error = %v", err)
	}
	if cfg.Threshold != 0.05 {
		t.Errorf("Threshold = %g, want 0.05", cfg.Threshold)
	}
	if cfg.RatioTolerance != 0.02 {
		t.Errorf("RatioTolerance = %g, want 0.02", cfg.RatioTolerance)
	}
	if cfg.Strategy != StrategyBest {
		t.Errorf("Strategy = %s, want best", cfg.Strategy)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if !cfg.VideoExtensionSet()[".mov"] {
		t.Error("expected .mov in video extensions")
	}
	if cfg.ExifToolPath != "/opt/exiftool/exiftool" {
		t.Errorf("ExifToolPath = %s", cfg.ExifToolPath)
	}
	if cfg.EventsFile != filepath.Join(dir, "events.ndjson") {
		t.Errorf("EventsFile = %s", cfg.EventsFile)
	}
	// Unset keys keep their defaults.
	if cfg.FFmpegPath != DefaultFFmpegPath {
		t.Errorf("FFmpegPath = %s, want default", cfg.FFmpegPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[match]\nthreshhold = 0.1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := LoadFile(path); err == nil {
		t.Error("expected error for misspelled key")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvExifTool:  "/usr/local/bin/exiftool",
		EnvThreshold: "0.03",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := NewConfig("/input")
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.ExifToolPath != "/usr/local/bin/exiftool" {
		t.Errorf("ExifToolPath = %s", cfg.ExifToolPath)
	}
	if cfg.Threshold != 0.03 {
		t.Errorf("Threshold = %g, want 0.03", cfg.Threshold)
	}

	env[EnvThreshold] = "abc"
	if err := cfg.ApplyEnv(lookup); !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("ApplyEnv() error = %v, want ErrInvalidThreshold", err)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("LoadDotEnv() error = %v, want nil for missing file", err)
	}
}
