// Package engine wraps pluggable speech-recognition backends behind a
// single resident-model adapter. The actual acoustic modeling is delegated
// entirely to the backend; this package only applies hardware-derived
// settings and collects timed segments.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/scribelabs/scribe-core/internal/hardware"
	"github.com/scribelabs/scribe-core/internal/models"
)

// Segment is one timed span of recognized speech. Offsets are seconds from
// the start of the audio. The backend guarantees start <= end and
// monotonically increasing, non-overlapping segments; they are not
// re-validated here.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the immutable output of one transcription run.
type Result struct {
	Text     string
	Segments []Segment
	Language string
	Elapsed  time.Duration
}

// Request describes one transcription run. Language is a two-letter code,
// or empty for auto-detection. Translate forces English output.
type Request struct {
	AudioPath string
	Language  string
	Translate bool
}

// Task returns the engine task name for the request.
func (r Request) Task() string {
	if r.Translate {
		return "translate"
	}
	return "transcribe"
}

// Backend runs recognition for a loaded model.
type Backend interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
	Close() error
}

// Factory constructs a backend for a model source on a device profile. The
// progress sink may be nil; factories that download weights report
// milestones through it.
type Factory func(ctx context.Context, source models.Source, profile hardware.Profile, progress models.Progress) (Backend, error)

// ModelLoadError is fatal unless the GPU-to-CPU fallback applies.
type ModelLoadError struct {
	Size string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %q: %v", e.Size, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// joinSegments assembles the plain transcript from segment texts.
func joinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
