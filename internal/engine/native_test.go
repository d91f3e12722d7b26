package engine

import (
	"math"
	"testing"

	"github.com/go-audio/audio"
)

func TestDownmixMono(t *testing.T) {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 16000},
		SourceBitDepth: 16,
		Data:           []int{16384, -32768, 0},
	}
	samples := downmix(buf)
	want := []float32{0.5, -1, 0}
	if len(samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(samples), len(want))
	}
	for i := range want {
		if math.Abs(float64(samples[i]-want[i])) > 1e-6 {
			t.Fatalf("sample %d = %v, want %v", i, samples[i], want[i])
		}
	}
}

func TestDownmixStereoAverages(t *testing.T) {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 16000},
		SourceBitDepth: 16,
		Data:           []int{16384, -16384, 8192, 8192},
	}
	samples := downmix(buf)
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if math.Abs(float64(samples[0])) > 1e-6 {
		t.Fatalf("expected opposing channels to cancel, got %v", samples[0])
	}
	if math.Abs(float64(samples[1]-0.25)) > 1e-6 {
		t.Fatalf("samples[1] = %v, want 0.25", samples[1])
	}
}

func TestDownmixDefaultsBitDepth(t *testing.T) {
	buf := &audio.IntBuffer{Data: []int{32768}}
	samples := downmix(buf)
	if len(samples) != 1 || samples[0] != 1 {
		t.Fatalf("expected 16-bit default scaling, got %v", samples)
	}
}
