package jobstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/scribelabs/scribe-core/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	ctx := context.Background()
	cfg := config.JobStoreConfig{RetentionMode: "ephemeral"}
	js, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = js.Close() })
	if err := js.Ensure(); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if err := js.RecordJob(ctx, Job{JobID: "x", Status: "completed"}); err != nil {
		t.Fatalf("record on ephemeral store should be a no-op: %v", err)
	}
}

func TestRecordAndQuery(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.JobStoreConfig{Path: filepath.Join(tmp, "jobs.db"), RetentionMode: "session"}
	js, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { _ = js.Close() })

	jobID := "job-123"
	if err := js.RecordJob(context.Background(), Job{JobID: jobID, Source: "talk.mp4", Status: "running"}); err != nil {
		t.Fatalf("record job: %v", err)
	}
	if err := js.AppendEvent(context.Background(), Event{JobID: jobID, Stage: "extract", Fraction: 0.2, Message: "Extracting audio..."}); err != nil {
		t.Fatalf("append event: %v", err)
	}
	if err := js.RecordJob(context.Background(), Job{JobID: jobID, Source: "talk.mp4", Status: "completed", Language: "en", Segments: 4}); err != nil {
		t.Fatalf("update job: %v", err)
	}

	events, err := js.ListJobEvents(context.Background(), jobID, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Message != "Extracting audio..." {
		t.Fatalf("unexpected message: %s", events[0].Message)
	}

	jobs, err := js.ListJobs(context.Background(), 10)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected upsert to keep a single row, got %d", len(jobs))
	}
	if jobs[0].Status != "completed" || jobs[0].Language != "en" || jobs[0].Segments != 4 {
		t.Fatalf("unexpected job row: %+v", jobs[0])
	}
}

func TestPruneByDaysAndMaxJobs(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.JobStoreConfig{Path: filepath.Join(tmp, "jobs.db"), RetentionMode: "persistent", RetentionDays: 1, MaxJobs: 1}
	js, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { _ = js.Close() })

	js.clock = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := js.RecordJob(context.Background(), Job{JobID: "old-job", Status: "completed"}); err != nil {
		t.Fatalf("record job: %v", err)
	}
	if err := js.AppendEvent(context.Background(), Event{JobID: "old-job", Stage: "done"}); err != nil {
		t.Fatalf("append event: %v", err)
	}

	js.clock = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := js.RecordJob(context.Background(), Job{JobID: "new-job", Status: "completed"}); err != nil {
		t.Fatalf("record job: %v", err)
	}
	if err := js.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	events, err := js.ListJobEvents(context.Background(), "old-job", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected old job events pruned")
	}
	jobs, err := js.ListJobs(context.Background(), 10)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].JobID != "new-job" {
		t.Fatalf("expected only new-job to survive, got %+v", jobs)
	}
}
