package logging

import (
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestSetupWritesLogFile(t *testing.T) {
	dir := t.TempDir()

	l, err := Setup(dir, "match", "run-123", true, false)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	l.Debug("scored %d candidates", 3)
	l.Warn("skipped %s", "x.mp4")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(l.FilePath())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	for _, want := range []string{"run-123", "[DEBUG] scored 3 candidates", "[WARN] skipped x.mp4"} {
		if !strings.Contains(content, want) {
			t.Errorf("log missing %q:\n%s", want, content)
		}
	}
	if !strings.Contains(l.FilePath(), "thumbsync_match_run_") {
		t.Errorf("unexpected log file name %s", l.FilePath())
	}
}

func TestSetupNoLog(t *testing.T) {
	l, err := Setup(t.TempDir(), "match", "run", false, true)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if l != nil {
		t.Fatal("expected nil logger when noLog is set")
	}
	// Methods on a nil logger are no-ops.
	l.Info("ignored")
	if l.FilePath() != "" {
		t.Error("expected empty path for nil logger")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() on nil logger = %v", err)
	}
}

func TestDebugSuppressedWithoutVerbose(t *testing.T) {
	l, err := Setup(t.TempDir(), "manifest", "run", false, false)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	l.Debug("hidden")
	_ = l.Close()

	data, _ := os.ReadFile(l.FilePath())
	if strings.Contains(string(data), "hidden") {
		t.Error("debug line written without verbose")
	}
}

func TestGlobalDebugCarriesRunID(t *testing.T) {
	prev := Global()
	t.Cleanup(func() { SetGlobal(prev) })

	var buf strings.Builder
	var level slog.Level = LevelDebug
	SetGlobal(New(Config{Level: level, Output: &buf, Enabled: true}).WithRun("run-7"))

	Debug("candidate scored", "video", "a.mp4")

	out := buf.String()
	for _, want := range []string{"level=DEBUG", "candidate scored", "video=a.mp4", "run_id=run-7"} {
		if !strings.Contains(out, want) {
			t.Errorf("global log missing %q: %s", want, out)
		}
	}
}

func TestGlobalInfoLevelDropsDebug(t *testing.T) {
	prev := Global()
	t.Cleanup(func() { SetGlobal(prev) })

	var buf strings.Builder
	SetGlobal(New(Config{Level: LevelInfo, Output: &buf, Enabled: true}))

	Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record written at info level: %s", buf.String())
	}
}
