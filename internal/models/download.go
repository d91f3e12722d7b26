package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

const ggmlBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// ggmlURL maps a catalog size to the upstream ggml weights file.
func ggmlURL(size string) string {
	return fmt.Sprintf("%s/ggml-%s.bin", ggmlBaseURL, size)
}

// EnsureGGML downloads ggml weights for the native engine when they are not
// cached, writing to a temp file first and renaming so a partial download
// never looks like a valid model.
func (p *Provisioner) EnsureGGML(ctx context.Context, size string, progress Progress) (string, error) {
	if err := Validate(size); err != nil {
		return "", err
	}

	destPath := p.GGMLPath(size)
	if p.HasGGML(size) {
		progress.report(1.0, fmt.Sprintf("Model %s already downloaded", size))
		return destPath, nil
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("create models dir: %w", err)
	}

	progress.report(0.1, fmt.Sprintf("Downloading %s model... (first run only)", size))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ggmlURL(size), nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download model: HTTP %d", resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	pw := &progressWriter{writer: f, total: resp.ContentLength, size: size, progress: progress}
	_, err = io.Copy(pw, resp.Body)
	closeErr := f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("write model file: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close model file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("move model file: %w", err)
	}

	progress.report(1.0, fmt.Sprintf("Model %s downloaded", size))
	return destPath, nil
}

// progressWriter forwards writes while reporting fractional download
// progress, scaled into the 0.1..0.9 band between the resolve and
// completion milestones.
type progressWriter struct {
	writer   io.Writer
	total    int64
	written  int64
	size     string
	progress Progress
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		frac := 0.1 + 0.8*float64(pw.written)/float64(pw.total)
		pw.progress.report(frac, fmt.Sprintf("Downloading %s: %.1f MB / %.1f MB",
			pw.size,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024)))
	}
	return n, err
}
