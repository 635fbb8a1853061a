package exiftool

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	thserrors "github.com/five82/thumbsync/internal/errors"
)

// startFake launches the stay_open stand-in from testdata.
func startFake(t *testing.T) *Client {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures need a POSIX shell")
	}
	bin, err := filepath.Abs(filepath.Join("testdata", "fake_exiftool.sh"))
	if err != nil {
		t.Fatal(err)
	}
	c, err := Start(bin)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return c
}

func TestClientRoundTrips(t *testing.T) {
	c := startFake(t)
	ctx := context.Background()

	tags, err := c.ReadTags(ctx, "/videos/a.mp4")
	if err != nil {
		t.Fatalf("ReadTags() error = %v", err)
	}
	if tags["CreateDate"] != "2021:03:04 17:22:05" || tags["ImageWidth"] != "640" {
		t.Errorf("tags = %v", tags)
	}
	if tags["SourceFile"] != "/videos/a.mp4" {
		t.Errorf("SourceFile = %q", tags["SourceFile"])
	}

	err = c.WriteTags(ctx, "/videos/thumbnails/a.jpg", map[string]string{"CreateDate": "2021:03:04 17:22:05"}, Overwrite)
	if err != nil {
		t.Fatalf("WriteTags() error = %v", err)
	}

	// A third command proves the markers stayed in step.
	tags, err = c.ReadTags(ctx, "/videos/b.mp4")
	if err != nil {
		t.Fatalf("ReadTags() error = %v", err)
	}
	if tags["SourceFile"] != "/videos/b.mp4" {
		t.Errorf("SourceFile = %q, want the third command's file", tags["SourceFile"])
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := c.Execute(ctx, "-ver"); !thserrors.IsKind(err, thserrors.KindOperationFailed) {
		t.Errorf("Execute() after Close = %v, want operation failed", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestClientWriteRefused(t *testing.T) {
	c := startFake(t)
	defer c.Close()
	ctx := context.Background()

	err := c.WriteTags(ctx, "/videos/thumbnails/locked.jpg", map[string]string{"CreateDate": "x"}, Backup)
	if !thserrors.IsKind(err, thserrors.KindMetadata) {
		t.Fatalf("WriteTags() error = %v, want metadata error", err)
	}

	// The failure is per file; the process keeps serving.
	if err := c.WriteTags(ctx, "/videos/thumbnails/ok.jpg", map[string]string{"CreateDate": "x"}, Backup); err != nil {
		t.Errorf("WriteTags() after a refusal = %v", err)
	}
}

func TestClientDrainsLargeStderr(t *testing.T) {
	c := startFake(t)
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := c.WriteTags(ctx, "/videos/thumbnails/noisy.jpg", map[string]string{"CreateDate": "x"}, Overwrite)
	if err != nil {
		t.Fatalf("WriteTags() error = %v, want warnings to be ignored", err)
	}

	resp, err := c.Execute(ctx, "-json", "/videos/noisy.mp4")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(resp.Stderr) < 64*1024 {
		t.Errorf("stderr = %d bytes, want the full warning stream", len(resp.Stderr))
	}
}

func TestClientCancelKillsProcess(t *testing.T) {
	c := startFake(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.ReadTags(ctx, "/videos/slow.mp4")
	if !thserrors.IsCancelled(err) {
		t.Fatalf("ReadTags() error = %v, want cancellation", err)
	}

	if _, err := c.ReadTags(context.Background(), "/videos/a.mp4"); !thserrors.IsKind(err, thserrors.KindOperationFailed) {
		t.Errorf("ReadTags() after kill = %v, want operation failed", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() after kill = %v", err)
	}
}

func TestClientRejectsNewlineArgument(t *testing.T) {
	c := startFake(t)
	defer c.Close()

	_, err := c.Execute(context.Background(), "-json", "bad\nname.jpg")
	if !thserrors.IsKind(err, thserrors.KindMetadata) {
		t.Errorf("Execute() error = %v, want metadata error", err)
	}
}

func TestClientCancelledBeforeWrite(t *testing.T) {
	c := startFake(t)
	defer c.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Execute(ctx, "-ver"); !thserrors.IsCancelled(err) {
		t.Errorf("Execute() error = %v, want cancellation", err)
	}
	// Nothing was sent, so the client is still usable.
	if _, err := c.ReadTags(context.Background(), "/videos/a.mp4"); err != nil {
		t.Errorf("ReadTags() error = %v", err)
	}
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start("/nonexistent/exiftool")
	if !thserrors.IsKind(err, thserrors.KindCommand) {
		t.Errorf("Start() error = %v, want command error", err)
	}
}
