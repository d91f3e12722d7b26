// Package runtime wires configuration, telemetry, the message bus, the job
// store and the transcription pipeline behind a loopback HTTP server.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scribelabs/scribe-core/internal/bus"
	"github.com/scribelabs/scribe-core/internal/config"
	"github.com/scribelabs/scribe-core/internal/engine"
	"github.com/scribelabs/scribe-core/internal/hardware"
	"github.com/scribelabs/scribe-core/internal/jobstore"
	"github.com/scribelabs/scribe-core/internal/media"
	"github.com/scribelabs/scribe-core/internal/models"
	"github.com/scribelabs/scribe-core/internal/natsserver"
	"github.com/scribelabs/scribe-core/internal/pipeline"
	"github.com/scribelabs/scribe-core/internal/subtitle"
)

type Runtime struct {
	cfg     config.Config
	version string
	logger  *slog.Logger

	httpServer    *http.Server
	metricsServer *http.Server
	tracerClose   func(context.Context) error
	ready         atomic.Bool
	wg            sync.WaitGroup

	probe       *hardware.Probe
	tools       *media.Toolset
	provisioner *models.Provisioner
	adapter     *engine.Adapter
	pipeline    transcriber
	store       *jobstore.Store
	busClient   *bus.Client
}

func New(cfg config.Config, version string, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:     cfg,
		version: version,
		logger:  logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.version, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	if err := r.prepareDirectories(); err != nil {
		return err
	}

	r.probe = hardware.NewProbe()
	profile := r.probe.Detect()
	r.logger.Info("hardware detected",
		slog.String("device", profile.Device),
		slog.String("compute_type", profile.ComputeType),
		slog.String("label", profile.Label))

	r.tools = media.NewToolset(config.AppDir(), r.cfg.Media.FFmpegPath, r.cfg.Media.FFprobePath)
	if r.tools.Available() {
		ffmpeg, _ := r.tools.FFmpeg()
		r.logger.Info("ffmpeg available", slog.String("path", ffmpeg))
	} else {
		r.logger.Warn("ffmpeg not found; video inputs will be rejected")
	}

	natsServer, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded NATS server: %w", err)
	}
	defer natsServer.Shutdown()

	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		r.logger.Warn("bus unavailable; continuing without job events", slog.String("error", err.Error()))
	}
	r.busClient = busClient
	defer busClient.Close()

	store, err := jobstore.Open(ctx, r.cfg.JobStore, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open job store: %w", err)
	}
	r.store = store
	defer store.Close()

	r.provisioner = models.NewProvisioner(r.cfg.Paths.ModelsDir)
	r.adapter = engine.NewAdapter(engineFactory(r.cfg.Engine, r.provisioner), r.probe, r.logger)
	defer r.adapter.Close()

	timeout := time.Duration(r.cfg.Media.TimeoutSeconds) * time.Second
	r.pipeline = pipeline.NewService(r.cfg.Engine, pipeline.Deps{
		Probe:       r.probe,
		Tools:       r.tools,
		Extractor:   media.NewExtractor(r.tools, r.cfg.Paths.TempDir, timeout),
		Provisioner: r.provisioner,
		Adapter:     r.adapter,
		Writer:      subtitle.NewWriter(r.cfg.Paths.OutputsDir),
		Store:       store,
		Bus:         busClient,
		Logger:      r.logger,
	})

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r.routes(metricsHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	if metricsHandler != nil && r.cfg.Telemetry.PrometheusBind != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metricsHandler)
		r.metricsServer = &http.Server{
			Addr:              r.cfg.Telemetry.PrometheusBind,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				r.logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	r.ready.Store(true)
	url := fmt.Sprintf("http://%s", addr)
	r.logger.Info("runtime started",
		slog.String("url", url),
		slog.String("models_dir", r.cfg.Paths.ModelsDir),
		slog.String("outputs_dir", r.cfg.Paths.OutputsDir))

	if r.cfg.HTTP.OpenBrowser {
		go openBrowser(url, r.logger)
	}

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	if r.metricsServer != nil {
		if err := r.metricsServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("metrics shutdown error", slog.String("error", err.Error()))
		}
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) prepareDirectories() error {
	dirs := []string{r.cfg.Paths.ModelsDir, r.cfg.Paths.OutputsDir}
	if r.cfg.Paths.TempDir != "" {
		dirs = append(dirs, r.cfg.Paths.TempDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// engineFactory builds inference backends for the configured engine mode.
func engineFactory(cfg config.EngineConfig, provisioner *models.Provisioner) engine.Factory {
	switch cfg.Mode {
	case "mock":
		return func(context.Context, models.Source, hardware.Profile, models.Progress) (engine.Backend, error) {
			return engine.NewMockBackend(nil, ""), nil
		}
	case "native":
		return func(ctx context.Context, source models.Source, _ hardware.Profile, progress models.Progress) (engine.Backend, error) {
			path, err := provisioner.EnsureGGML(ctx, source.Ref, progress)
			if err != nil {
				return nil, err
			}
			return engine.NewNativeBackend(cfg, path)
		}
	default:
		return func(_ context.Context, source models.Source, profile hardware.Profile, _ models.Progress) (engine.Backend, error) {
			return engine.NewExecBackend(cfg, provisioner.Dir(), source, profile)
		}
	}
}
