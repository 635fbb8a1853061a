package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	thserrors "github.com/five82/thumbsync/internal/errors"
	"github.com/five82/thumbsync/internal/logging"
)

// ErrEmptyOutput is returned when ffmpeg exits cleanly but writes no frame.
var ErrEmptyOutput = errors.New("ffmpeg produced no frame")

// Result contains the result of an FFmpeg frame extraction.
type Result struct {
	Data   []byte
	Stderr string
}

// ExtractFrame runs ffmpeg and returns the encoded image it writes to stdout.
// binary is the ffmpeg executable; empty means "ffmpeg" on PATH.
func ExtractFrame(ctx context.Context, binary string, params FrameParams) (Result, error) {
	if binary == "" {
		binary = "ffmpeg"
	}
	args := BuildFrameCommand(params)
	logging.Debug("extracting frame", "command", FormatCommand(binary, args))

	cmd := exec.CommandContext(ctx, binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Data: stdout.Bytes(), Stderr: strings.TrimSpace(stderr.String())}

	if err != nil {
		// Check for context cancellation
		if ctx.Err() != nil {
			return res, thserrors.NewCancelledError()
		}
		// Check for specific error types
		if strings.Contains(res.Stderr, "matches no streams") || strings.Contains(res.Stderr, "No streams found") {
			return res, fmt.Errorf("no video stream in %s: %w", params.Input, ErrEmptyOutput)
		}
		return res, thserrors.WrapExecError("ffmpeg", err, lastLine(res.Stderr))
	}

	if len(res.Data) == 0 {
		return res, ErrEmptyOutput
	}

	return res, nil
}

// lastLine keeps only the final line of ffmpeg's stderr, which carries the
// actual failure reason.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
