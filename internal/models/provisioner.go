package models

import (
	"fmt"
	"os"
	"path/filepath"
)

// Progress receives coarse provisioning milestones in [0,1] with a
// human-readable message.
type Progress func(fraction float64, message string)

func (p Progress) report(fraction float64, message string) {
	if p != nil {
		p(fraction, message)
	}
}

// Source identifies where the engine should load a model from. When Local
// is false, Ref is the bare size identifier and the engine's underlying
// library downloads on demand.
type Source struct {
	Ref   string
	Local bool
}

// Provisioner maps model sizes to the on-disk cache.
type Provisioner struct {
	dir string
}

func NewProvisioner(modelsDir string) *Provisioner {
	return &Provisioner{dir: modelsDir}
}

// Dir returns the cache root.
func (p *Provisioner) Dir() string { return p.dir }

// CTranslatePath is the cache directory convention for converted
// faster-whisper style models.
func (p *Provisioner) CTranslatePath(size string) string {
	return filepath.Join(p.dir, "faster-whisper-"+size)
}

// GGMLPath is the cache file convention for ggml weights used by the
// native engine.
func (p *Provisioner) GGMLPath(size string) string {
	return filepath.Join(p.dir, "ggml-"+size+".bin")
}

// IsDownloaded reports whether a converted model is cached locally,
// indicated by a weights file or a config manifest.
func (p *Provisioner) IsDownloaded(size string) bool {
	dir := p.CTranslatePath(size)
	if _, err := os.Stat(dir); err != nil {
		return false
	}
	for _, marker := range []string{"model.bin", "config.json"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// HasGGML reports whether ggml weights for size are cached.
func (p *Provisioner) HasGGML(size string) bool {
	info, err := os.Stat(p.GGMLPath(size))
	return err == nil && info.Size() > 0
}

// Resolve decides where the engine should load the model from, using the
// cache convention of the given engine mode. A cached model resolves with
// no network access; otherwise the bare size identifier is returned and the
// engine (EnsureGGML for the native mode) downloads on demand. The two
// cache conventions never shadow each other: a converted directory left by
// the exec engine does not satisfy a native-mode request.
func (p *Provisioner) Resolve(mode, size string, progress Progress) (Source, error) {
	if err := Validate(size); err != nil {
		return Source{}, err
	}

	progress.report(0, fmt.Sprintf("Resolving model %s", size))

	if mode == "native" {
		if p.HasGGML(size) {
			progress.report(1.0, fmt.Sprintf("Model %s already downloaded", size))
			return Source{Ref: size, Local: true}, nil
		}
	} else if p.IsDownloaded(size) {
		progress.report(1.0, fmt.Sprintf("Model %s already downloaded", size))
		return Source{Ref: p.CTranslatePath(size), Local: true}, nil
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return Source{}, fmt.Errorf("create models dir: %w", err)
	}

	progress.report(0.1, fmt.Sprintf("Downloading %s model... (first run only)", size))
	return Source{Ref: size, Local: false}, nil
}
