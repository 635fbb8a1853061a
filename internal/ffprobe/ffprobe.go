// Package ffprobe provides functions for extracting media information using ffprobe.
package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	thserrors "github.com/five82/thumbsync/internal/errors"
)

// ErrNoVideoStream is returned when a container holds no decodable video stream.
var ErrNoVideoStream = errors.New("no video stream found")

// VideoProperties contains video stream properties.
type VideoProperties struct {
	Width       int64 // coded width
	Height      int64 // coded height
	Rotation    int   // display rotation in degrees: 0, 90, 180 or 270
	CodecName   string
	AttachedPic bool // cover art rather than a real video track
}

// DisplaySize returns the frame size after rotation, which is what ffmpeg
// hands out when it extracts a frame.
func (p *VideoProperties) DisplaySize() (width, height int64) {
	if p.Rotation == 90 || p.Rotation == 270 {
		return p.Height, p.Width
	}
	return p.Width, p.Height
}

// StreamDisposition contains the disposition flags thumbsync cares about.
type StreamDisposition struct {
	Default     int `json:"default"`
	AttachedPic int `json:"attached_pic"`
}

// ffprobeOutput represents the JSON output from ffprobe.
type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType   string            `json:"codec_type"`
	CodecName   string            `json:"codec_name"`
	Width       int64             `json:"width"`
	Height      int64             `json:"height"`
	Disposition StreamDisposition `json:"disposition"`
	Tags        map[string]string `json:"tags"`
	SideData    []ffprobeSideData `json:"side_data_list"`
}

type ffprobeSideData struct {
	SideDataType string  `json:"side_data_type"`
	Rotation     float64 `json:"rotation"`
}

// rotation reads the display matrix, falling back to the legacy rotate tag
// written by older muxers.
func (s *ffprobeStream) rotation() int {
	for _, sd := range s.SideData {
		if sd.SideDataType == "Display Matrix" {
			return normalizeRotation(int(sd.Rotation))
		}
	}
	if v, ok := s.Tags["rotate"]; ok {
		if deg, err := strconv.Atoi(v); err == nil {
			return normalizeRotation(deg)
		}
	}
	return 0
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// runFFprobe executes ffprobe and returns the parsed output.
func runFFprobe(ctx context.Context, binary, inputPath string) (*ffprobeOutput, error) {
	if binary == "" {
		binary = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "v",
		inputPath,
	)

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, thserrors.NewCancelledError()
		}
		return nil, thserrors.WrapExecError("ffprobe", err, "")
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput decodes ffprobe's JSON document.
func parseFFprobeOutput(data []byte) (*ffprobeOutput, error) {
	var result ffprobeOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, thserrors.NewJSONParseError("failed to parse ffprobe output", err)
	}
	return &result, nil
}

// GetVideoProperties probes inputPath and returns its first video stream.
// binary is the ffprobe executable; empty means "ffprobe" on PATH.
func GetVideoProperties(ctx context.Context, binary, inputPath string) (*VideoProperties, error) {
	probe, err := runFFprobe(ctx, binary, inputPath)
	if err != nil {
		return nil, err
	}
	props, err := extractVideoProperties(probe)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inputPath, err)
	}
	return props, nil
}

// extractVideoProperties picks the first real video stream. Attached
// pictures (embedded cover art) are only used when nothing else exists.
func extractVideoProperties(probe *ffprobeOutput) (*VideoProperties, error) {
	var videoStream, coverArt *ffprobeStream
	for i := range probe.Streams {
		s := &probe.Streams[i]
		if s.CodecType != "video" {
			continue
		}
		if s.Disposition.AttachedPic != 0 {
			if coverArt == nil {
				coverArt = s
			}
			continue
		}
		videoStream = s
		break
	}
	if videoStream == nil {
		videoStream = coverArt
	}
	if videoStream == nil {
		return nil, ErrNoVideoStream
	}

	if videoStream.Width <= 0 || videoStream.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", videoStream.Width, videoStream.Height)
	}

	return &VideoProperties{
		Width:       videoStream.Width,
		Height:      videoStream.Height,
		Rotation:    videoStream.rotation(),
		CodecName:   videoStream.CodecName,
		AttachedPic: videoStream.Disposition.AttachedPic != 0,
	}, nil
}
