package thumbsync

import (
	"errors"
	"testing"

	"github.com/five82/thumbsync/internal/config"
	"github.com/five82/thumbsync/internal/processing"
)

func TestNewAppliesOptions(t *testing.T) {
	m, err := New(
		WithThreshold(0.05),
		WithRatioTolerance(0.02),
		WithStrategy(StrategyBest),
		WithWorkers(4),
		WithBackup(true),
		WithRename(true),
		WithFailFast(true),
		WithTools("/opt/exiftool", "", "/opt/ffprobe"),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	c := m.config
	if c.Threshold != 0.05 || c.RatioTolerance != 0.02 {
		t.Errorf("threshold=%g ratio=%g", c.Threshold, c.RatioTolerance)
	}
	if c.Strategy != StrategyBest || c.Workers != 4 {
		t.Errorf("strategy=%s workers=%d", c.Strategy, c.Workers)
	}
	if !c.Backup || !c.Rename || !c.FailFast {
		t.Errorf("backup=%v rename=%v failFast=%v", c.Backup, c.Rename, c.FailFast)
	}
	if c.ExifToolPath != "/opt/exiftool" || c.FFmpegPath != config.DefaultFFmpegPath || c.FFprobePath != "/opt/ffprobe" {
		t.Errorf("tools = %s, %s, %s", c.ExifToolPath, c.FFmpegPath, c.FFprobePath)
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"zero threshold", WithThreshold(0), config.ErrInvalidThreshold},
		{"negative ratio tolerance", WithRatioTolerance(-1), config.ErrInvalidRatioTolerance},
		{"unknown strategy", WithStrategy("closest"), config.ErrInvalidStrategy},
		{"zero workers", WithWorkers(0), config.ErrInvalidWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			if !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseStrategy(t *testing.T) {
	for _, tt := range []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"first", StrategyFirst, false},
		{"best", StrategyBest, false},
		{"", "", true},
		{"greedy", "", true},
	} {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewResult(t *testing.T) {
	s := &processing.Summary{RunID: "r", Total: 3}
	s.Failures = []processing.Failure{{Path: "/x.jpg", Err: errors.New("boom")}}

	res := newResult(s)
	if res.RunID != "r" || res.Total != 3 || len(res.Failures) != 1 || res.Failures[0].Path != "/x.jpg" {
		t.Errorf("newResult() = %+v", res)
	}
}
