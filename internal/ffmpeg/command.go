// Package ffmpeg provides FFmpeg command building and execution.
package ffmpeg

import (
	"fmt"
	"strings"
)

// FrameParams describes a single-frame extraction.
type FrameParams struct {
	Input string
}

// BuildFrameCommand returns the ffmpeg arguments that write the first
// decoded frame of params.Input to stdout as a PNG.
func BuildFrameCommand(params FrameParams) []string {
	return []string{
		"-hide_banner", "-nostdin", "-v", "error",
		"-i", params.Input,
		"-map", "0:v:0",
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}
}

// FormatCommand renders an argument list for log output.
func FormatCommand(binary string, args []string) string {
	var b strings.Builder
	b.WriteString(binary)
	for _, a := range args {
		b.WriteString(" ")
		b.WriteString(fmt.Sprintf("%q", a))
	}
	return b.String()
}
