package engine

import "context"

// mockBackend yields fixed segments, for tests and mode=mock runs.
type mockBackend struct {
	segments []Segment
	language string
}

// NewMockBackend returns a backend producing the given segments. With no
// segments it yields a small deterministic script.
func NewMockBackend(segments []Segment, language string) Backend {
	if len(segments) == 0 {
		segments = []Segment{
			{Start: 0, End: 2.5, Text: " Hello from the mock engine."},
			{Start: 2.5, End: 5.0, Text: " This transcript is deterministic."},
		}
	}
	if language == "" {
		language = "en"
	}
	return &mockBackend{segments: segments, language: language}
}

func (b *mockBackend) Transcribe(_ context.Context, _ Request) (Result, error) {
	segments := append([]Segment(nil), b.segments...)
	return Result{
		Text:     joinSegments(segments),
		Segments: segments,
		Language: b.language,
	}, nil
}

func (b *mockBackend) Close() error { return nil }
