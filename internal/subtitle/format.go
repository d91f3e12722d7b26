// Package subtitle converts timed segments into the three textual output
// representations (plain transcript, SRT, VTT) and persists them.
package subtitle

import (
	"fmt"
	"strings"

	"github.com/scribelabs/scribe-core/internal/engine"
)

// Timestamp decomposes non-negative seconds into zero-padded
// hours:minutes:seconds plus a millisecond remainder joined by sep.
// Milliseconds are truncated, not rounded. Negative or non-finite input is
// undefined behavior and is not validated.
func Timestamp(seconds float64, sep string) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	millis := int((seconds - float64(total)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", hours, minutes, secs, sep, millis)
}

// TimestampSRT renders the subtitle-exchange form HH:MM:SS,mmm.
func TimestampSRT(seconds float64) string { return Timestamp(seconds, ",") }

// TimestampVTT renders the web-caption form HH:MM:SS.mmm.
func TimestampVTT(seconds float64) string { return Timestamp(seconds, ".") }

// GenerateSRT builds SRT subtitle text: 1-based sequence-numbered blocks
// separated by one blank line.
func GenerateSRT(segments []engine.Segment) string {
	var b strings.Builder
	writeBlocks(&b, segments, TimestampSRT)
	return b.String()
}

// GenerateVTT builds WebVTT caption text: the WEBVTT header followed by the
// same block structure with period millisecond separators.
func GenerateVTT(segments []engine.Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	writeBlocks(&b, segments, TimestampVTT)
	return b.String()
}

func writeBlocks(b *strings.Builder, segments []engine.Segment, stamp func(float64) string) {
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "%d\n%s --> %s\n%s\n", i+1, stamp(seg.Start), stamp(seg.End), strings.TrimSpace(seg.Text))
	}
}
