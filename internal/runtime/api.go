package runtime

import (
	"context"
	"embed"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/scribelabs/scribe-core/internal/models"
	"github.com/scribelabs/scribe-core/internal/pipeline"
)

//go:embed web/index.html
var webFS embed.FS

// transcriber is the slice of the pipeline the HTTP layer needs.
type transcriber interface {
	Transcribe(ctx context.Context, req pipeline.Request) pipeline.Outcome
}

// maxUploadBytes caps in-memory multipart parsing; larger file parts spill
// to disk.
const maxUploadBytes = 32 << 20

func (r *Runtime) routes(metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", r.handleIndex)
	mux.HandleFunc("POST /api/transcribe", r.handleTranscribe)
	mux.HandleFunc("GET /api/status", r.handleStatus)
	mux.HandleFunc("GET /api/models", r.handleModels)
	mux.HandleFunc("GET /api/jobs/{id}/events", r.handleJobEvents)
	mux.HandleFunc("GET /healthz", r.handleHealth)
	mux.HandleFunc("GET /readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	return mux
}

func (r *Runtime) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		http.Error(w, "ui unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// handleTranscribe accepts a multipart upload, stages it under the temp
// directory with its original filename preserved and runs the pipeline.
// The staged copy is removed once the job finishes; outputs live in the
// outputs directory.
func (r *Runtime) handleTranscribe(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	stageDir, err := os.MkdirTemp(r.cfg.Paths.TempDir, "scribe_upload_")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	defer os.RemoveAll(stageDir)

	stagedPath := filepath.Join(stageDir, filepath.Base(header.Filename))
	dest, err := os.Create(stagedPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	if _, err := io.Copy(dest, file); err != nil {
		dest.Close()
		writeError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	if err := dest.Close(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}

	translate, _ := strconv.ParseBool(req.FormValue("translate"))
	outcome := r.pipeline.Transcribe(req.Context(), pipeline.Request{
		Path:      stagedPath,
		ModelSize: req.FormValue("model_size"),
		Language:  req.FormValue("language"),
		Translate: translate,
	})
	writeJSON(w, http.StatusOK, outcome)
}

type statusResponse struct {
	Runtime       string `json:"runtime"`
	Device        string `json:"device"`
	ComputeType   string `json:"compute_type"`
	HardwareLabel string `json:"hardware_label"`
	FFmpeg        bool   `json:"ffmpeg_available"`
	ResidentModel string `json:"resident_model,omitempty"`
	ModelsDir     string `json:"models_dir"`
	OutputsDir    string `json:"outputs_dir"`
}

func (r *Runtime) handleStatus(w http.ResponseWriter, _ *http.Request) {
	profile := r.probe.Detect()
	writeJSON(w, http.StatusOK, statusResponse{
		Runtime:       r.cfg.RuntimeName,
		Device:        profile.Device,
		ComputeType:   profile.ComputeType,
		HardwareLabel: profile.Label,
		FFmpeg:        r.tools.Available(),
		ResidentModel: r.adapter.Resident(),
		ModelsDir:     r.cfg.Paths.ModelsDir,
		OutputsDir:    r.cfg.Paths.OutputsDir,
	})
}

type modelResponse struct {
	models.Info
	Downloaded bool `json:"downloaded"`
}

func (r *Runtime) handleModels(w http.ResponseWriter, _ *http.Request) {
	catalog := models.Catalog()
	out := make([]modelResponse, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, modelResponse{
			Info:       info,
			Downloaded: r.provisioner.IsDownloaded(info.Size) || r.provisioner.HasGGML(info.Size),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type jobEventResponse struct {
	Stage     string  `json:"stage"`
	Fraction  float64 `json:"fraction"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
}

func (r *Runtime) handleJobEvents(w http.ResponseWriter, req *http.Request) {
	jobID := req.PathValue("id")
	events, err := r.store.ListJobEvents(req.Context(), jobID, 200)
	if err != nil {
		r.logger.Warn("failed to list job events", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list job events")
		return
	}
	out := make([]jobEventResponse, 0, len(events))
	for _, evt := range events {
		out = append(out, jobEventResponse{
			Stage:     evt.Stage,
			Fraction:  evt.Fraction,
			Message:   evt.Message,
			Timestamp: evt.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
