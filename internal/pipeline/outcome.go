package pipeline

import (
	"time"

	"github.com/scribelabs/scribe-core/internal/subtitle"
)

// ErrorKind classifies why a job did not complete.
type ErrorKind string

const (
	KindUnsupportedFormat    ErrorKind = "unsupported_format"
	KindMediaToolUnavailable ErrorKind = "media_tool_unavailable"
	KindDecodeFailed         ErrorKind = "decode_failed"
	KindModelLoadFailed      ErrorKind = "model_load_failed"
	KindInferenceFailed      ErrorKind = "inference_failed"
	KindOutputFailed         ErrorKind = "output_failed"
	KindInternal             ErrorKind = "internal_error"
)

// Request describes one transcription job.
type Request struct {
	Path      string `json:"path"`
	ModelSize string `json:"model_size"`
	Language  string `json:"language"`
	Translate bool   `json:"translate"`
}

// Outcome is the structured result of a job. Every request gets an Outcome;
// failures carry a Kind and a human-readable Status instead of an error.
type Outcome struct {
	JobID      string           `json:"job_id"`
	OK         bool             `json:"ok"`
	Kind       ErrorKind        `json:"kind,omitempty"`
	Status     string           `json:"status"`
	Transcript string           `json:"transcript,omitempty"`
	SRT        string           `json:"srt,omitempty"`
	VTT        string           `json:"vtt,omitempty"`
	Files      subtitle.Outputs `json:"files,omitempty"`
	Language   string           `json:"language,omitempty"`
	Segments   int              `json:"segments"`
	Elapsed    time.Duration    `json:"elapsed_ns"`
}
