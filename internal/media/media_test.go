package media

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want Kind
	}{
		{"talk.mp3", KindAudio},
		{"TALK.WAV", KindAudio},
		{"clip.flac", KindAudio},
		{"movie.mp4", KindVideo},
		{"movie.MKV", KindVideo},
		{"doc.pdf", KindUnsupported},
		{"noext", KindUnsupported},
	}
	for _, tc := range cases {
		if got := Classify(tc.path); got != tc.want {
			t.Fatalf("Classify(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestSupportedExtensionsCount(t *testing.T) {
	exts := SupportedExtensions()
	if len(exts) != 14 {
		t.Fatalf("expected 14 supported extensions, got %d: %v", len(exts), exts)
	}
}

func writeFakeTool(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestToolsetDiscoveryOrder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake executables need .exe on windows")
	}
	appDir := t.TempDir()

	// Nothing present and no PATH hit.
	ts := NewToolset(appDir, "", "")
	ts.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	if ts.Available() {
		t.Fatal("expected unavailable toolset")
	}

	// Bundled copy wins over everything else.
	bundled := filepath.Join(appDir, "ffmpeg")
	if err := os.MkdirAll(bundled, 0o755); err != nil {
		t.Fatal(err)
	}
	bundledFFmpeg := writeFakeTool(t, bundled, "ffmpeg")
	writeFakeTool(t, bundled, "ffprobe")

	ts = NewToolset(appDir, "", "")
	ts.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	got, err := ts.FFmpeg()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != bundledFFmpeg {
		t.Fatalf("expected bundled ffmpeg %q, got %q", bundledFFmpeg, got)
	}
}

func TestToolsetAdjacentDiscovery(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake executables need .exe on windows")
	}
	appDir := t.TempDir()
	adjacent := writeFakeTool(t, appDir, "ffmpeg")
	writeFakeTool(t, appDir, "ffprobe")

	ts := NewToolset(appDir, "", "")
	ts.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	got, err := ts.FFmpeg()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != adjacent {
		t.Fatalf("expected adjacent ffmpeg %q, got %q", adjacent, got)
	}
}

func TestToolsetPathFallbackAndCaching(t *testing.T) {
	appDir := t.TempDir()
	calls := 0
	ts := NewToolset(appDir, "", "")
	ts.lookPath = func(name string) (string, error) {
		calls++
		return "/usr/bin/" + name, nil
	}

	if !ts.Available() {
		t.Fatal("expected available toolset via PATH")
	}
	ts.Available()
	if calls != 2 {
		t.Fatalf("expected discovery to run once (2 lookups), got %d lookups", calls)
	}
}

func TestToolsetMissingReturnsRemediation(t *testing.T) {
	ts := NewToolset(t.TempDir(), "", "")
	ts.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	_, err := ts.FFmpeg()
	if !errors.Is(err, ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "PATH") {
		t.Fatalf("expected remediation instructions, got %q", err.Error())
	}
}

func TestExtractArgs(t *testing.T) {
	args := extractArgs("in.mp4", "out.wav")
	want := []string{"-i", "in.mp4", "-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1", "-y", "out.wav"}
	if len(args) != len(want) {
		t.Fatalf("args length = %d, want %d", len(args), len(want))
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestExtractWithoutToolFails(t *testing.T) {
	ts := NewToolset(t.TempDir(), "", "")
	ts.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	ex := NewExtractor(ts, "", time.Second)

	_, _, err := ex.Extract(t.Context(), "movie.mp4")
	if !errors.Is(err, ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}
}
