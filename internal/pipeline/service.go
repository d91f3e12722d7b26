// Package pipeline orchestrates a transcription job end to end: input
// validation, audio extraction, model provisioning, inference and output
// serialization. It is the error boundary of the system; nothing below it
// reaches the HTTP layer as a naked error or panic.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/scribelabs/scribe-core/internal/bus"
	"github.com/scribelabs/scribe-core/internal/config"
	"github.com/scribelabs/scribe-core/internal/engine"
	"github.com/scribelabs/scribe-core/internal/hardware"
	"github.com/scribelabs/scribe-core/internal/jobstore"
	"github.com/scribelabs/scribe-core/internal/media"
	"github.com/scribelabs/scribe-core/internal/models"
	"github.com/scribelabs/scribe-core/internal/protocol"
	"github.com/scribelabs/scribe-core/internal/subtitle"
)

// Deps bundles the collaborators a Service needs.
type Deps struct {
	Probe       *hardware.Probe
	Tools       *media.Toolset
	Extractor   *media.Extractor
	Provisioner *models.Provisioner
	Adapter     *engine.Adapter
	Writer      *subtitle.Writer
	Store       *jobstore.Store
	Bus         *bus.Client
	Logger      *slog.Logger
}

// Service runs transcription jobs one at a time. A single model is resident
// in memory, so requests are serialized with a mutex rather than raced.
type Service struct {
	cfg    config.EngineConfig
	deps   Deps
	logger *slog.Logger
	tracer trace.Tracer

	mu sync.Mutex

	jobCounter  metric.Int64Counter
	jobDuration metric.Float64Histogram
}

func NewService(cfg config.EngineConfig, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With(slog.String("component", "pipeline")),
		tracer: otel.Tracer("github.com/scribelabs/scribe-core/pipeline"),
	}
	if err := s.initMetrics(); err != nil {
		s.logger.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	return s
}

func (s *Service) initMetrics() error {
	meter := otel.Meter("github.com/scribelabs/scribe-core/pipeline")
	counter, err := meter.Int64Counter("scribe.jobs.total",
		metric.WithDescription("Completed transcription jobs by outcome"))
	if err != nil {
		return err
	}
	duration, err := meter.Float64Histogram("scribe.job.duration.seconds",
		metric.WithDescription("Wall-clock duration of transcription jobs"))
	if err != nil {
		return err
	}
	s.jobCounter = counter
	s.jobDuration = duration
	return nil
}

// Transcribe runs one job and always returns an Outcome. Concurrent calls
// block until the previous job releases the resident model.
func (s *Service) Transcribe(ctx context.Context, req Request) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobID := uuid.NewString()
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "pipeline.transcribe",
		trace.WithAttributes(attribute.String("job.id", jobID)))
	defer span.End()

	job := &jobRun{svc: s, ctx: ctx, span: span, id: jobID, source: req.Path, start: start}
	job.open()

	outcome := func() (outcome Outcome) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic during transcription",
					slog.String("job_id", jobID), slog.Any("panic", r))
				outcome = job.fail(KindInternal, fmt.Sprintf("Internal error: %v", r))
			}
		}()
		return s.run(ctx, req, job)
	}()

	outcome.Elapsed = time.Since(start)
	job.close(outcome)
	return outcome
}

func (s *Service) run(ctx context.Context, req Request, job *jobRun) Outcome {
	kind := media.Classify(req.Path)
	if kind == media.KindUnsupported {
		return job.fail(KindUnsupportedFormat, fmt.Sprintf(
			"Unsupported file format. Supported: %s", strings.Join(media.SupportedExtensions(), " ")))
	}
	job.progress("validate", 0.05, "Input accepted")

	profile := s.deps.Probe.Detect()
	job.progress("hardware", 0.08, profile.Label)

	audioPath := req.Path
	if kind == media.KindVideo {
		if !s.deps.Tools.Available() {
			return job.fail(KindMediaToolUnavailable, media.ErrToolUnavailable.Error())
		}
		job.progress("extract", 0.1, "Extracting audio from video...")
		extracted, cleanup, err := s.deps.Extractor.Extract(ctx, req.Path)
		if err != nil {
			var decodeErr *media.DecodeError
			if errors.As(err, &decodeErr) && decodeErr.TimedOut {
				return job.fail(KindDecodeFailed, "Audio extraction timed out; the file may be too large or corrupted")
			}
			if errors.Is(err, media.ErrToolUnavailable) {
				return job.fail(KindMediaToolUnavailable, media.ErrToolUnavailable.Error())
			}
			return job.fail(KindDecodeFailed, fmt.Sprintf("Audio extraction failed: %v", err))
		}
		defer cleanup()
		audioPath = extracted
		job.progress("extract", 0.2, "Audio extracted")
	}

	if strings.EqualFold(filepath.Ext(audioPath), ".wav") {
		if info, err := media.InspectWAV(audioPath); err == nil {
			job.progress("inspect", 0.22, fmt.Sprintf(
				"Audio: %.1fs, %d Hz, %d channel(s)", info.Duration.Seconds(), info.SampleRate, info.Channels))
		}
	}

	size := req.ModelSize
	if size == "" {
		size = s.cfg.DefaultModel
	}
	if err := models.Validate(size); err != nil {
		return job.fail(KindModelLoadFailed, err.Error())
	}

	onModel := func(fraction float64, message string) {
		job.progress("model", 0.2+fraction*0.5, message)
	}
	source, err := s.deps.Provisioner.Resolve(s.cfg.Mode, size, onModel)
	if err != nil {
		return job.fail(KindModelLoadFailed, fmt.Sprintf("Model %s unavailable: %v", size, err))
	}
	if err := s.deps.Adapter.Load(ctx, size, source, onModel); err != nil {
		var loadErr *engine.ModelLoadError
		if errors.As(err, &loadErr) {
			return job.fail(KindModelLoadFailed, fmt.Sprintf("Error loading model: %v", loadErr.Err))
		}
		return job.fail(KindModelLoadFailed, fmt.Sprintf("Error loading model: %v", err))
	}

	job.progress("transcribe", 0.75, "Transcribing... (this may take a while)")
	result, err := s.deps.Adapter.Transcribe(ctx, engine.Request{
		AudioPath: audioPath,
		Language:  req.Language,
		Translate: req.Translate,
	})
	if err != nil {
		return job.fail(KindInferenceFailed, fmt.Sprintf("Error during transcription: %v", err))
	}

	job.progress("write", 0.95, "Writing output files...")
	files, err := s.deps.Writer.Save(result, req.Path)
	if err != nil {
		return job.fail(KindOutputFailed, fmt.Sprintf("Error writing outputs: %v", err))
	}

	return Outcome{
		JobID:      job.id,
		OK:         true,
		Status:     fmt.Sprintf("Completed in %.1fs (model %s, %s)", time.Since(job.start).Seconds(), size, profile.Label),
		Transcript: result.Text,
		SRT:        subtitle.GenerateSRT(result.Segments),
		VTT:        subtitle.GenerateVTT(result.Segments),
		Files:      files,
		Language:   result.Language,
		Segments:   len(result.Segments),
	}
}

// jobRun carries the per-job bookkeeping: progress fan-out to the bus, the
// job store and the trace span.
type jobRun struct {
	svc    *Service
	ctx    context.Context
	span   trace.Span
	id     string
	source string
	start  time.Time
}

func (j *jobRun) open() {
	s := j.svc
	s.logger.Info("job started", slog.String("job_id", j.id), slog.String("source", j.source))
	if err := s.deps.Store.RecordJob(j.ctx, jobstore.Job{JobID: j.id, Source: j.source, Status: "running"}); err != nil {
		s.logger.Warn("failed to record job", slog.String("error", err.Error()))
	}
}

func (j *jobRun) progress(stage string, fraction float64, message string) {
	s := j.svc
	if fraction > 1 {
		fraction = 1
	}
	j.span.AddEvent(stage, trace.WithAttributes(
		attribute.Float64("fraction", fraction),
		attribute.String("message", message)))
	s.logger.Debug("job progress",
		slog.String("job_id", j.id), slog.String("stage", stage),
		slog.Float64("fraction", fraction), slog.String("message", message))

	if err := s.deps.Store.AppendEvent(j.ctx, jobstore.Event{
		JobID: j.id, Stage: stage, Fraction: fraction, Message: message,
	}); err != nil {
		s.logger.Warn("failed to record job event", slog.String("error", err.Error()))
	}
	if err := s.deps.Bus.PublishJSON(protocol.ProgressSubject(j.id), protocol.JobProgress{
		JobID: j.id, Stage: stage, Fraction: fraction, Message: message, Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to publish job progress", slog.String("error", err.Error()))
	}
}

func (j *jobRun) fail(kind ErrorKind, status string) Outcome {
	return Outcome{JobID: j.id, OK: false, Kind: kind, Status: status}
}

func (j *jobRun) close(outcome Outcome) {
	s := j.svc
	elapsed := outcome.Elapsed

	status := "completed"
	if !outcome.OK {
		status = "failed"
		j.span.SetStatus(codes.Error, string(outcome.Kind))
	} else {
		j.span.SetStatus(codes.Ok, "")
	}
	j.span.SetAttributes(
		attribute.Bool("job.ok", outcome.OK),
		attribute.Int("job.segments", outcome.Segments))

	if s.jobCounter != nil {
		s.jobCounter.Add(j.ctx, 1, metric.WithAttributes(
			attribute.String("status", status),
			attribute.String("kind", string(outcome.Kind))))
	}
	if s.jobDuration != nil {
		s.jobDuration.Record(j.ctx, elapsed.Seconds())
	}

	if err := s.deps.Store.RecordJob(j.ctx, jobstore.Job{
		JobID:     j.id,
		Source:    j.source,
		Status:    status,
		Kind:      string(outcome.Kind),
		Language:  outcome.Language,
		Segments:  outcome.Segments,
		ElapsedMS: elapsed.Milliseconds(),
		TXTPath:   outcome.Files.TXT,
		SRTPath:   outcome.Files.SRT,
		VTTPath:   outcome.Files.VTT,
	}); err != nil {
		s.logger.Warn("failed to record job result", slog.String("error", err.Error()))
	}
	if err := s.deps.Bus.PublishJSON(protocol.ResultSubject(j.id), protocol.JobResult{
		JobID:     j.id,
		OK:        outcome.OK,
		Status:    outcome.Status,
		Kind:      string(outcome.Kind),
		Language:  outcome.Language,
		Segments:  outcome.Segments,
		ElapsedMS: elapsed.Milliseconds(),
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to publish job result", slog.String("error", err.Error()))
	}

	s.logger.Info("job finished",
		slog.String("job_id", j.id), slog.String("status", status),
		slog.String("kind", string(outcome.Kind)),
		slog.Duration("elapsed", elapsed))
}
