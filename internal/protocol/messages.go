// Package protocol defines the bus message shapes and subject layout shared
// by the pipeline and any subscribers observing job lifecycles.
package protocol

import "time"

// JobProgress reports an intermediate stage of a transcription job.
type JobProgress struct {
	JobID     string    `json:"job_id"`
	Stage     string    `json:"stage"`
	Fraction  float64   `json:"fraction"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// JobResult is the terminal message for a job, published exactly once.
type JobResult struct {
	JobID     string    `json:"job_id"`
	OK        bool      `json:"ok"`
	Status    string    `json:"status"`
	Kind      string    `json:"kind,omitempty"`
	Language  string    `json:"language,omitempty"`
	Segments  int       `json:"segments"`
	ElapsedMS int64     `json:"elapsed_ms"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectJobProgressPrefix = "job.progress"
	SubjectJobResultPrefix   = "job.result"
)

// ProgressSubject returns the per-job progress subject.
func ProgressSubject(jobID string) string {
	return SubjectJobProgressPrefix + "." + jobID
}

// ResultSubject returns the per-job result subject.
func ResultSubject(jobID string) string {
	return SubjectJobResultPrefix + "." + jobID
}
