package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scribelabs/scribe-core/internal/config"
	"github.com/scribelabs/scribe-core/internal/engine"
	"github.com/scribelabs/scribe-core/internal/hardware"
	"github.com/scribelabs/scribe-core/internal/jobstore"
	"github.com/scribelabs/scribe-core/internal/media"
	"github.com/scribelabs/scribe-core/internal/models"
	"github.com/scribelabs/scribe-core/internal/pipeline"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakePipeline struct {
	outcome pipeline.Outcome
	lastReq pipeline.Request
}

func (f *fakePipeline) Transcribe(_ context.Context, req pipeline.Request) pipeline.Outcome {
	f.lastReq = req
	return f.outcome
}

func newTestRuntime(t *testing.T) (*Runtime, *fakePipeline) {
	t.Helper()
	tmp := t.TempDir()

	probe := hardware.NewProbe()
	probe.Apply(hardware.CPUProfile())

	store, err := jobstore.Open(context.Background(), config.JobStoreConfig{
		Path:          filepath.Join(tmp, "jobs.db"),
		RetentionMode: "session",
	}, newLogger())
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	cfg.Paths.ModelsDir = filepath.Join(tmp, "models")
	cfg.Paths.OutputsDir = filepath.Join(tmp, "Outputs")
	cfg.Paths.TempDir = tmp

	fake := &fakePipeline{}
	provisioner := models.NewProvisioner(cfg.Paths.ModelsDir)
	rt := &Runtime{
		cfg:         cfg,
		logger:      newLogger(),
		probe:       probe,
		tools:       media.NewToolset(tmp, "", ""),
		provisioner: provisioner,
		adapter:     engine.NewAdapter(nil, probe, newLogger()),
		pipeline:    fake,
		store:       store,
	}
	return rt, fake
}

func TestHandleIndex(t *testing.T) {
	rt, _ := newTestRuntime(t)
	srv := httptest.NewServer(rt.routes(nil))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Scribe") {
		t.Fatal("expected UI page")
	}
}

func TestHandleTranscribe(t *testing.T) {
	rt, fake := newTestRuntime(t)
	fake.outcome = pipeline.Outcome{JobID: "abc", OK: true, Status: "done", Transcript: "hello", Segments: 1}
	srv := httptest.NewServer(rt.routes(nil))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "clip.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("riff")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := form.WriteField("model_size", "tiny"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := form.WriteField("translate", "true"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	resp, err := http.Post(srv.URL+"/api/transcribe", form.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var outcome pipeline.Outcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if !outcome.OK || outcome.Transcript != "hello" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	if filepath.Base(fake.lastReq.Path) != "clip.wav" {
		t.Fatalf("expected original filename preserved, got %q", fake.lastReq.Path)
	}
	if fake.lastReq.ModelSize != "tiny" || !fake.lastReq.Translate {
		t.Fatalf("unexpected pipeline request: %+v", fake.lastReq)
	}
}

func TestHandleTranscribeMissingFile(t *testing.T) {
	rt, _ := newTestRuntime(t)
	srv := httptest.NewServer(rt.routes(nil))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("model_size", "tiny"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	resp, err := http.Post(srv.URL+"/api/transcribe", form.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestHandleStatus(t *testing.T) {
	rt, _ := newTestRuntime(t)
	srv := httptest.NewServer(rt.routes(nil))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Device != hardware.DeviceCPU {
		t.Fatalf("device = %q", status.Device)
	}
	if status.HardwareLabel == "" || status.ModelsDir == "" {
		t.Fatalf("incomplete status: %+v", status)
	}
}

func TestHandleModels(t *testing.T) {
	rt, _ := newTestRuntime(t)
	srv := httptest.NewServer(rt.routes(nil))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/models")
	if err != nil {
		t.Fatalf("get models: %v", err)
	}
	defer resp.Body.Close()

	var catalog []modelResponse
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		t.Fatalf("decode models: %v", err)
	}
	if len(catalog) != 5 {
		t.Fatalf("expected 5 catalog entries, got %d", len(catalog))
	}
	for _, entry := range catalog {
		if entry.Downloaded {
			t.Fatalf("expected nothing downloaded in a fresh cache: %+v", entry)
		}
	}
}

func TestHandleJobEvents(t *testing.T) {
	rt, _ := newTestRuntime(t)
	if err := rt.store.RecordJob(context.Background(), jobstore.Job{JobID: "job-1", Status: "running"}); err != nil {
		t.Fatalf("record job: %v", err)
	}
	if err := rt.store.AppendEvent(context.Background(), jobstore.Event{JobID: "job-1", Stage: "extract", Fraction: 0.2, Message: "Extracting audio..."}); err != nil {
		t.Fatalf("append event: %v", err)
	}
	srv := httptest.NewServer(rt.routes(nil))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/jobs/job-1/events")
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	defer resp.Body.Close()

	var events []jobEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || events[0].Stage != "extract" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestReadyzBeforeStart(t *testing.T) {
	rt, _ := newTestRuntime(t)
	srv := httptest.NewServer(rt.routes(nil))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("get readyz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp2, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp2.StatusCode)
	}
}
