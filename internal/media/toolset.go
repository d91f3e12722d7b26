// Package media locates the external ffmpeg toolset and converts arbitrary
// input files into the canonical mono 16kHz PCM stream the engine expects.
package media

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// ErrToolUnavailable reports a missing ffmpeg installation with remediation
// instructions suitable for direct display to the user.
var ErrToolUnavailable = fmt.Errorf("ffmpeg not found\n\n" +
	"To enable video support, either:\n" +
	"  1. place the ffmpeg and ffprobe executables next to this application, or\n" +
	"  2. install ffmpeg and add it to your system PATH, then restart")

// Toolset holds resolved paths to the ffmpeg executables. Discovery order:
// bundled ffmpeg/ directory beside the application, executables adjacent to
// the application binary, then the system search path. The first hit is
// cached for the process lifetime.
type Toolset struct {
	appDir   string
	override struct {
		ffmpeg  string
		ffprobe string
	}
	lookPath func(string) (string, error)

	mu      sync.Mutex
	ffmpeg  string
	ffprobe string
	probed  bool
}

// NewToolset creates a Toolset rooted at appDir. Non-empty override paths
// from configuration win over discovery.
func NewToolset(appDir, ffmpegOverride, ffprobeOverride string) *Toolset {
	t := &Toolset{appDir: appDir, lookPath: exec.LookPath}
	t.override.ffmpeg = ffmpegOverride
	t.override.ffprobe = ffprobeOverride
	return t
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

// Available reports whether both ffmpeg and ffprobe were found.
func (t *Toolset) Available() bool {
	ffmpeg, ffprobe := t.find()
	return ffmpeg != "" && ffprobe != ""
}

// FFmpeg returns the resolved ffmpeg path, or ErrToolUnavailable.
func (t *Toolset) FFmpeg() (string, error) {
	ffmpeg, _ := t.find()
	if ffmpeg == "" {
		return "", ErrToolUnavailable
	}
	return ffmpeg, nil
}

// FFprobe returns the resolved ffprobe path, or ErrToolUnavailable.
func (t *Toolset) FFprobe() (string, error) {
	_, ffprobe := t.find()
	if ffprobe == "" {
		return "", ErrToolUnavailable
	}
	return ffprobe, nil
}

func (t *Toolset) find() (string, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.probed {
		return t.ffmpeg, t.ffprobe
	}
	t.ffmpeg, t.ffprobe = t.discover()
	t.probed = true
	return t.ffmpeg, t.ffprobe
}

func (t *Toolset) discover() (string, string) {
	if t.override.ffmpeg != "" && t.override.ffprobe != "" {
		if isExecutableFile(t.override.ffmpeg) && isExecutableFile(t.override.ffprobe) {
			return t.override.ffmpeg, t.override.ffprobe
		}
	}

	suffix := exeSuffix()

	// Bundled copy inside an ffmpeg/ directory beside the application.
	bundledDir := filepath.Join(t.appDir, "ffmpeg")
	ffmpeg := filepath.Join(bundledDir, "ffmpeg"+suffix)
	ffprobe := filepath.Join(bundledDir, "ffprobe"+suffix)
	if isExecutableFile(ffmpeg) && isExecutableFile(ffprobe) {
		return ffmpeg, ffprobe
	}

	// Portable copy adjacent to the application binary.
	ffmpeg = filepath.Join(t.appDir, "ffmpeg"+suffix)
	ffprobe = filepath.Join(t.appDir, "ffprobe"+suffix)
	if isExecutableFile(ffmpeg) && isExecutableFile(ffprobe) {
		return ffmpeg, ffprobe
	}

	// System search path.
	ffmpegPath, err1 := t.lookPath("ffmpeg" + suffix)
	ffprobePath, err2 := t.lookPath("ffprobe" + suffix)
	if err1 == nil && err2 == nil {
		return ffmpegPath, ffprobePath
	}

	return "", ""
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return strings.HasSuffix(strings.ToLower(path), ".exe")
	}
	return info.Mode()&0o111 != 0
}
