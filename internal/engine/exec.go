package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/scribelabs/scribe-core/internal/config"
	"github.com/scribelabs/scribe-core/internal/hardware"
	"github.com/scribelabs/scribe-core/internal/models"
)

// execBackend shells out to a configured recognition helper. The helper
// receives the model reference and device settings as flags and prints a
// single JSON document on stdout.
type execBackend struct {
	cmd          []string
	source       models.Source
	profile      hardware.Profile
	downloadRoot string
	beamSize     int
	vadSilenceMS int
}

type execPayload struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// NewExecBackend parses the configured command line and binds it to the
// model source and device profile. Construction does not verify the model;
// the helper loads (and downloads) it on first run.
func NewExecBackend(cfg config.EngineConfig, downloadRoot string, source models.Source, profile hardware.Profile) (Backend, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse engine command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("engine command is empty")
	}
	return &execBackend{
		cmd:          args,
		source:       source,
		profile:      profile,
		downloadRoot: downloadRoot,
		beamSize:     cfg.BeamSize,
		vadSilenceMS: cfg.VADMinSilenceMS,
	}, nil
}

func (b *execBackend) Transcribe(ctx context.Context, req Request) (Result, error) {
	base := b.cmd[0]
	args := append([]string{}, b.cmd[1:]...)
	args = append(args, b.buildArgs(req)...)

	cmd := exec.CommandContext(ctx, base, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("engine command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var payload execPayload
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		return Result{}, fmt.Errorf("decode engine response: %w", err)
	}

	segments := make([]Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		segments = append(segments, Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		text = joinSegments(segments)
	}
	return Result{Text: text, Segments: segments, Language: payload.Language}, nil
}

func (b *execBackend) buildArgs(req Request) []string {
	args := []string{
		"--audio", req.AudioPath,
		"--model", b.source.Ref,
		"--device", b.profile.Device,
		"--compute-type", b.profile.ComputeType,
		"--beam-size", strconv.Itoa(b.beamSize),
		"--vad-min-silence-ms", strconv.Itoa(b.vadSilenceMS),
		"--task", req.Task(),
	}
	if b.downloadRoot != "" {
		args = append(args, "--download-root", b.downloadRoot)
	}
	if req.Language != "" {
		args = append(args, "--language", req.Language)
	}
	return args
}

func (b *execBackend) Close() error { return nil }
