package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scribelabs/scribe-core/internal/engine"
)

// Outputs holds the absolute paths of the three written files.
type Outputs struct {
	TXT string `json:"txt"`
	SRT string `json:"srt"`
	VTT string `json:"vtt"`
}

// Writer persists transcription results into the outputs directory.
type Writer struct {
	dir   string
	clock func() time.Time
}

func NewWriter(outputsDir string) *Writer {
	return &Writer{dir: outputsDir, clock: time.Now}
}

// Save writes the plain transcript, SRT and VTT files as siblings sharing a
// base name derived from the source filename's stem plus a second-precision
// timestamp. The destination directory is created if absent. Two runs for
// the same source within one second write to the same paths; no collision
// detection is performed.
func (w *Writer) Save(result engine.Result, sourceName string) (Outputs, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Outputs{}, fmt.Errorf("create outputs dir: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	suffix := w.clock().Format("20060102_150405")
	base := filepath.Join(w.dir, stem+"_"+suffix)

	outputs := Outputs{
		TXT: base + ".txt",
		SRT: base + ".srt",
		VTT: base + ".vtt",
	}

	if err := writeFile(outputs.TXT, result.Text); err != nil {
		return Outputs{}, err
	}
	if err := writeFile(outputs.SRT, GenerateSRT(result.Segments)); err != nil {
		return Outputs{}, err
	}
	if err := writeFile(outputs.VTT, GenerateVTT(result.Segments)); err != nil {
		return Outputs{}, err
	}
	return outputs, nil
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
