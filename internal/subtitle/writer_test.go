package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/scribelabs/scribe-core/internal/engine"
)

func TestWriterSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Outputs")
	w := NewWriter(dir)
	w.clock = func() time.Time { return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC) }

	result := engine.Result{
		Text:     "Hello world. Second line.",
		Segments: sampleSegments(),
	}
	outputs, err := w.Save(result, "/somewhere/interview.mp4")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	wantBase := filepath.Join(dir, "interview_20250314_150926")
	if outputs.TXT != wantBase+".txt" || outputs.SRT != wantBase+".srt" || outputs.VTT != wantBase+".vtt" {
		t.Fatalf("unexpected output paths: %+v", outputs)
	}

	txt, err := os.ReadFile(outputs.TXT)
	if err != nil {
		t.Fatalf("read txt: %v", err)
	}
	if string(txt) != result.Text {
		t.Fatalf("txt content = %q", txt)
	}

	srt, err := os.ReadFile(outputs.SRT)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	if !strings.HasPrefix(string(srt), "1\n00:00:0") {
		t.Fatalf("unexpected srt prefix: %q", srt)
	}

	vtt, err := os.ReadFile(outputs.VTT)
	if err != nil {
		t.Fatalf("read vtt: %v", err)
	}
	if !strings.HasPrefix(string(vtt), "WEBVTT\n") {
		t.Fatalf("unexpected vtt prefix: %q", vtt)
	}
}

func TestWriterCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "Outputs")
	w := NewWriter(dir)

	if _, err := w.Save(engine.Result{Text: "x"}, "a.wav"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected outputs dir created: %v", err)
	}
}
