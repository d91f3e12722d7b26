package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/scribelabs/scribe-core/internal/hardware"
	"github.com/scribelabs/scribe-core/internal/models"
)

// Adapter owns the single resident backend. At most one model is loaded per
// process; requesting a different size replaces it. The comparison is by
// size identifier only; a changed hardware profile does not force a reload
// of an already-resident model.
type Adapter struct {
	factory Factory
	probe   *hardware.Probe
	logger  *slog.Logger

	mu           sync.Mutex
	resident     Backend
	residentSize string
}

func NewAdapter(factory Factory, probe *hardware.Probe, logger *slog.Logger) *Adapter {
	return &Adapter{
		factory: factory,
		probe:   probe,
		logger:  logger.With(slog.String("component", "engine")),
	}
}

// Load makes the model for size resident. A matching resident model is
// reused without reloading. A GPU construction failure is retried once on
// CPU with int8 quantization, updating the shared hardware profile so the
// process continues degraded instead of failing the request.
func (a *Adapter) Load(ctx context.Context, size string, source models.Source, progress models.Progress) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.resident != nil && a.residentSize == size {
		if progress != nil {
			progress(1.0, fmt.Sprintf("Model %s already loaded", size))
		}
		return nil
	}

	if a.resident != nil {
		if err := a.resident.Close(); err != nil {
			a.logger.Warn("failed to close resident model", slog.String("error", err.Error()))
		}
		a.resident = nil
		a.residentSize = ""
	}

	profile := a.probe.Detect()
	if progress != nil {
		progress(0.2, fmt.Sprintf("Loading %s model...", size))
	}

	backend, err := a.factory(ctx, source, profile, progress)
	if err != nil && profile.Device == hardware.DeviceGPU {
		if progress != nil {
			progress(0.5, "GPU loading failed, falling back to CPU...")
		}
		a.logger.Warn("gpu model load failed, retrying on cpu",
			slog.String("model", size),
			slog.String("error", err.Error()))

		fallback := hardware.CPUProfile()
		fallback.Label = "CPU Mode (Fallback)"
		a.probe.Apply(fallback)

		backend, err = a.factory(ctx, source, fallback, progress)
	}
	if err != nil {
		return &ModelLoadError{Size: size, Err: err}
	}

	a.resident = backend
	a.residentSize = size
	if progress != nil {
		progress(1.0, fmt.Sprintf("Model %s loaded", size))
	}
	return nil
}

// Resident returns the size of the currently loaded model, or "".
func (a *Adapter) Resident() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.residentSize
}

// Transcribe runs recognition on the resident model, draining the backend's
// segment sequence eagerly and stamping total elapsed wall-clock time.
func (a *Adapter) Transcribe(ctx context.Context, req Request) (Result, error) {
	a.mu.Lock()
	backend := a.resident
	a.mu.Unlock()

	if backend == nil {
		return Result{}, fmt.Errorf("no model loaded")
	}

	start := time.Now()
	result, err := backend.Transcribe(ctx, req)
	if err != nil {
		return Result{}, err
	}
	result.Elapsed = time.Since(start)
	if result.Text == "" {
		result.Text = joinSegments(result.Segments)
	}
	return result, nil
}

// Close releases the resident backend, if any.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resident == nil {
		return nil
	}
	err := a.resident.Close()
	a.resident = nil
	a.residentSize = ""
	return err
}
