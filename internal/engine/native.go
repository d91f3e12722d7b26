package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/scribelabs/scribe-core/internal/config"
)

// nativeBackend runs recognition in-process through the whisper.cpp Go
// bindings. It expects mono 16kHz WAV input, which the media extractor
// already produces for anything else.
type nativeBackend struct {
	model    whisper.Model
	beamSize int
}

// NewNativeBackend loads ggml weights from modelPath. The caller must call
// Close when done.
func NewNativeBackend(cfg config.EngineConfig, modelPath string) (Backend, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %q: %w", modelPath, err)
	}
	return &nativeBackend{model: model, beamSize: cfg.BeamSize}, nil
}

func (b *nativeBackend) Transcribe(_ context.Context, req Request) (Result, error) {
	samples, err := decodeWAVSamples(req.AudioPath)
	if err != nil {
		return Result{}, err
	}

	wctx, err := b.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("create whisper context: %w", err)
	}

	language := req.Language
	if language == "" {
		language = "auto"
	}
	if err := wctx.SetLanguage(language); err != nil {
		return Result{}, fmt.Errorf("set language %q: %w", language, err)
	}
	wctx.SetTranslate(req.Translate)
	if b.beamSize > 0 {
		wctx.SetBeamSize(b.beamSize)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("process audio: %w", err)
	}

	var segments []Segment
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("next segment: %w", err)
		}
		segments = append(segments, Segment{
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
			Text:  seg.Text,
		})
	}

	detected := req.Language
	if detected == "" {
		detected = wctx.DetectedLanguage()
	}
	return Result{Text: joinSegments(segments), Segments: segments, Language: detected}, nil
}

func (b *nativeBackend) Close() error {
	if b.model != nil {
		return b.model.Close()
	}
	return nil
}

// decodeWAVSamples reads a WAV file into mono float32 samples.
func decodeWAVSamples(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	return downmix(buf), nil
}

// downmix converts a PCM buffer to mono float32 in [-1, 1], averaging
// channels when the source is not already mono.
func downmix(buf *audio.IntBuffer) []float32 {
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		channels = buf.Format.NumChannels
	}

	mono := make([]float32, 0, len(buf.Data)/channels)
	for i := 0; i+channels <= len(buf.Data); i += channels {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i+c]) / scale
		}
		mono = append(mono, sum/float32(channels))
	}
	return mono
}
