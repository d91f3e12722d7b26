package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// DecodeError reports a failed or timed-out ffmpeg run, carrying the
// captured diagnostic output.
type DecodeError struct {
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *DecodeError) Error() string {
	if e.TimedOut {
		return "audio extraction timed out"
	}
	return fmt.Sprintf("ffmpeg failed: %v: %s", e.Err, e.Stderr)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Extractor converts input media into mono 16kHz signed 16-bit PCM WAV
// files using the resolved ffmpeg binary.
type Extractor struct {
	tools   *Toolset
	tempDir string
	timeout time.Duration
}

// NewExtractor creates an Extractor. tempDir may be empty to use the
// system default; timeout bounds each ffmpeg run.
func NewExtractor(tools *Toolset, tempDir string, timeout time.Duration) *Extractor {
	return &Extractor{tools: tools, tempDir: tempDir, timeout: timeout}
}

// Extract decodes the input into a fresh temporary WAV file and returns its
// path together with a cleanup function that removes it. The cleanup
// function is safe to call on every exit path.
func (e *Extractor) Extract(ctx context.Context, inputPath string) (string, func(), error) {
	ffmpeg, err := e.tools.FFmpeg()
	if err != nil {
		return "", nil, err
	}

	dir, err := os.MkdirTemp(e.tempDir, "scribe_media_")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	outputPath := filepath.Join(dir, "audio.wav")

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, ffmpeg, extractArgs(inputPath, outputPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cleanup()
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", nil, &DecodeError{TimedOut: true, Err: runCtx.Err(), Stderr: stderr.String()}
		}
		return "", nil, &DecodeError{Err: err, Stderr: stderr.String()}
	}

	return outputPath, cleanup, nil
}

// extractArgs builds the ffmpeg argument list for the canonical conversion:
// strip video, PCM signed 16-bit little-endian, 16kHz, mono, overwrite.
func extractArgs(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outputPath,
	}
}
