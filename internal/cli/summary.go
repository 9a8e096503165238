package cli

import (
	"fmt"
	"strings"
	"time"
)

// RunStats is what the extract command reports when a batch ends.
type RunStats struct {
	ExtractionTypes   []string
	SavedFiles        []string
	RunID             string
	Duration          time.Duration
	Documents         int
	Usable            int
	Skipped           int
	ReadFailures      int
	Extractions       int
	AverageConfidence float64
	Interrupted       bool
}

// RenderRunSummary formats stats as a boxed summary.
func RenderRunSummary(stats RunStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  • Documents processed: %d\n", stats.Documents)
	fmt.Fprintf(&b, "  • With usable results: %d\n", stats.Usable)
	if stats.Skipped > 0 {
		fmt.Fprintf(&b, "  • %s\n", WarningStyle.Render(fmt.Sprintf("Without results: %d", stats.Skipped)))
	}
	if stats.ReadFailures > 0 {
		fmt.Fprintf(&b, "  • %s\n", ErrorStyle.Render(fmt.Sprintf("Unreadable files: %d", stats.ReadFailures)))
	}
	fmt.Fprintf(&b, "  • Extractions performed: %d\n", stats.Extractions)

	types := "none"
	if len(stats.ExtractionTypes) > 0 {
		types = strings.Join(stats.ExtractionTypes, ", ")
	}
	fmt.Fprintf(&b, "  • Extraction types found: %s\n", types)
	fmt.Fprintf(&b, "  • Overall average confidence: %.1f%%\n", stats.AverageConfidence*100)
	fmt.Fprintf(&b, "  • Time taken: %s", stats.Duration.Round(time.Millisecond))
	if stats.RunID != "" {
		fmt.Fprintf(&b, "\n  • Run: %s", SubtleStyle.Render(stats.RunID))
	}

	if len(stats.SavedFiles) > 0 {
		b.WriteString("\n\n" + DocumentIcon + " Saved:")
		for _, f := range stats.SavedFiles {
			fmt.Fprintf(&b, "\n  %s", SubtleStyle.Render(f))
		}
	}

	title := ChartIcon + " Extraction Complete"
	if stats.Interrupted {
		title = WarningIcon + " Extraction Interrupted"
	}
	return RenderBox(title, b.String())
}
