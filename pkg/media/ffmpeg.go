// Package media cuts audio windows out of recordings with ffmpeg.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrInvalidWindow is returned for a window with end <= start or start < 0.
var ErrInvalidWindow = errors.New("invalid audio window")

// Clipper extracts [start, end) seconds of an audio file.
type Clipper interface {
	Clip(ctx context.Context, audioPath string, start, end float64) ([]byte, error)
}

// FFmpeg shells out to the ffmpeg binary and returns 16 kHz mono WAV.
type FFmpeg struct {
	binary     string
	sampleRate int
}

// NewFFmpeg creates a clipper using binary ("ffmpeg" when empty).
func NewFFmpeg(binary string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{binary: binary, sampleRate: 16000}
}

// Args returns the ffmpeg arguments for a clip written to stdout.
func (f *FFmpeg) Args(audioPath string, start, end float64) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", audioPath,
		"-ac", "1",
		"-ar", strconv.Itoa(f.sampleRate),
		"-f", "wav",
		"pipe:1",
	}
}

// Clip implements Clipper.
func (f *FFmpeg) Clip(ctx context.Context, audioPath string, start, end float64) ([]byte, error) {
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: [%.3f, %.3f)", ErrInvalidWindow, start, end)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file not available: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.binary, f.Args(audioPath, start, end)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no audio for [%.3f, %.3f)", start, end)
	}
	return stdout.Bytes(), nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
