// Package hardware decides which device and numeric precision the
// transcription engine should use. Detection runs once per process and is
// cached; Invalidate forces a re-probe.
package hardware

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	DeviceCPU = "cpu"
	DeviceGPU = "cuda"

	ComputeInt8    = "int8"
	ComputeFloat16 = "float16"
)

// Profile describes the selected device and derived engine settings.
type Profile struct {
	Device           string
	ComputeType      string
	Label            string
	RecommendedModel string
}

// CPUProfile is the fallback used whenever no eligible GPU is found.
func CPUProfile() Profile {
	return Profile{
		Device:           DeviceCPU,
		ComputeType:      ComputeInt8,
		Label:            "CPU Mode (INT8 Optimized)",
		RecommendedModel: "small",
	}
}

// Probe queries the nvidia-smi tool to find a usable GPU. Lookup and runner
// are injectable for tests.
type Probe struct {
	lookPath func(string) (string, error)
	query    func(ctx context.Context, bin string) (string, error)

	mu     sync.Mutex
	cached *Profile
}

func NewProbe() *Probe {
	return &Probe{
		lookPath: exec.LookPath,
		query:    runQuery,
	}
}

// Detect returns the cached profile, probing on first use. It never fails:
// any detection error means a CPU profile.
func (p *Probe) Detect() Profile {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil {
		return *p.cached
	}
	profile := p.detect()
	p.cached = &profile
	return profile
}

// Invalidate discards the cached profile so the next Detect re-probes.
func (p *Probe) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

// Apply replaces the cached profile. The engine adapter uses it after a
// GPU load failure so later requests stay on the CPU fallback.
func (p *Probe) Apply(profile Profile) {
	p.mu.Lock()
	p.cached = &profile
	p.mu.Unlock()
}

func (p *Probe) detect() Profile {
	bin, err := p.lookPath("nvidia-smi")
	if err != nil {
		return CPUProfile()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := p.query(ctx, bin)
	if err != nil {
		return CPUProfile()
	}

	line := firstLine(out)
	if line == "" {
		return CPUProfile()
	}

	name, memory := splitDeviceLine(line)
	label := "GPU Mode (" + name + ")"
	if memory != "" {
		label = "GPU Mode (" + name + ", " + memory + ")"
	}
	return Profile{
		Device:           DeviceGPU,
		ComputeType:      ComputeFloat16,
		Label:            label,
		RecommendedModel: "large-v3",
	}
}

func runQuery(ctx context.Context, bin string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, "--query-gpu=name,memory.total", "--format=csv,noheader")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitDeviceLine(line string) (name, memory string) {
	parts := strings.SplitN(line, ",", 2)
	name = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		memory = strings.TrimSpace(parts[1])
	}
	return name, memory
}
