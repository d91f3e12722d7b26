package hardware

import (
	"context"
	"errors"
	"testing"
)

func TestDetectNoTool(t *testing.T) {
	p := NewProbe()
	p.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	profile := p.Detect()
	if profile.Device != DeviceCPU {
		t.Fatalf("expected cpu device, got %q", profile.Device)
	}
	if profile.ComputeType != ComputeInt8 {
		t.Fatalf("expected int8 compute, got %q", profile.ComputeType)
	}
	if profile.RecommendedModel != "small" {
		t.Fatalf("expected small recommendation, got %q", profile.RecommendedModel)
	}
}

func TestDetectGPU(t *testing.T) {
	p := NewProbe()
	p.lookPath = func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
	p.query = func(context.Context, string) (string, error) {
		return "NVIDIA GeForce RTX 3080, 10240 MiB\n", nil
	}

	profile := p.Detect()
	if profile.Device != DeviceGPU {
		t.Fatalf("expected cuda device, got %q", profile.Device)
	}
	if profile.ComputeType != ComputeFloat16 {
		t.Fatalf("expected float16 compute, got %q", profile.ComputeType)
	}
	if profile.RecommendedModel != "large-v3" {
		t.Fatalf("expected large-v3 recommendation, got %q", profile.RecommendedModel)
	}
	if profile.Label != "GPU Mode (NVIDIA GeForce RTX 3080, 10240 MiB)" {
		t.Fatalf("unexpected label: %q", profile.Label)
	}
}

func TestDetectQueryFailureFallsBack(t *testing.T) {
	p := NewProbe()
	p.lookPath = func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
	p.query = func(context.Context, string) (string, error) { return "", errors.New("driver error") }

	if profile := p.Detect(); profile.Device != DeviceCPU {
		t.Fatalf("expected cpu fallback, got %q", profile.Device)
	}
}

func TestDetectCachesUntilInvalidated(t *testing.T) {
	calls := 0
	p := NewProbe()
	p.lookPath = func(string) (string, error) {
		calls++
		return "", errors.New("not found")
	}

	p.Detect()
	p.Detect()
	if calls != 1 {
		t.Fatalf("expected a single probe, got %d", calls)
	}

	p.Invalidate()
	p.Detect()
	if calls != 2 {
		t.Fatalf("expected re-probe after invalidate, got %d", calls)
	}
}

func TestApplyOverridesCache(t *testing.T) {
	p := NewProbe()
	p.lookPath = func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
	p.query = func(context.Context, string) (string, error) { return "Fake GPU, 1 MiB", nil }

	if got := p.Detect(); got.Device != DeviceGPU {
		t.Fatalf("expected gpu, got %q", got.Device)
	}

	fallback := CPUProfile()
	fallback.Label = "CPU Mode (Fallback)"
	p.Apply(fallback)

	if got := p.Detect(); got.Device != DeviceCPU || got.Label != "CPU Mode (Fallback)" {
		t.Fatalf("expected applied fallback profile, got %+v", got)
	}
}
