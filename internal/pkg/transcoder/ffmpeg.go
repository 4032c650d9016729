package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// FFMpeg extracts the audio track of a video container as mono 16 kHz PCM16 WAV
type FFMpeg struct {
	cmd     string
	timeout time.Duration
}

// NewFFMpeg creates transcoder instance, cmd is the ffmpeg binary path
func NewFFMpeg(cmd string) (*FFMpeg, error) {
	if cmd == "" {
		return nil, fmt.Errorf("no ffmpeg cmd")
	}
	return &FFMpeg{cmd: cmd, timeout: time.Minute * 5}, nil
}

// ExtractAudio transcodes inputPath to <inputPath-without-ext>.wav and returns the path
func (f *FFMpeg) ExtractAudio(ctx context.Context, inputPath string) (string, error) {
	if inputPath == "" {
		return "", fmt.Errorf("no input path")
	}
	outPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".wav"
	ctxInt, cf := context.WithTimeout(ctx, f.timeout)
	defer cf()
	cmd := exec.CommandContext(ctxInt, f.cmd, "-i", inputPath, "-vn",
		"-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1", "-y", outPath)
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf
	goapp.Log.Info().Str("input", inputPath).Str("output", outPath).Msg("extracting audio")
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("can't extract audio (%s): %w", lastLine(errBuf.String()), err)
	}
	return outPath, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
