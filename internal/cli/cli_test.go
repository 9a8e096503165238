package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatHelpers(t *testing.T) {
	assert.Contains(t, FormatSuccess("done"), "done")
	assert.Contains(t, FormatSuccess("done"), SuccessIcon)
	assert.Contains(t, FormatError("bad"), ErrorIcon)
	assert.Contains(t, FormatWarning("careful"), "careful")
	assert.Contains(t, FormatInfo("fyi"), "fyi")
	assert.Contains(t, FormatTitle("Extractors"), "Extractors")
}

func TestRenderRunSummary(t *testing.T) {
	out := RenderRunSummary(RunStats{
		Documents:         3,
		Usable:            2,
		Skipped:           1,
		ReadFailures:      1,
		Extractions:       5,
		ExtractionTypes:   []string{"personalData", "tabularData"},
		AverageConfidence: 0.825,
		Duration:          1500 * time.Millisecond,
		RunID:             "run-1",
		SavedFiles:        []string{"out/a_txt_results.json"},
	})

	assert.Contains(t, out, "Extraction Complete")
	assert.Contains(t, out, "Documents processed: 3")
	assert.Contains(t, out, "Without results: 1")
	assert.Contains(t, out, "Unreadable files: 1")
	assert.Contains(t, out, "personalData, tabularData")
	assert.Contains(t, out, "82.5%")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "a_txt_results.json")

	interrupted := RenderRunSummary(RunStats{Interrupted: true})
	assert.Contains(t, interrupted, "Extraction Interrupted")
	assert.Contains(t, interrupted, "Extraction types found: none")
	assert.NotContains(t, interrupted, "Without results")
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 2, "Extracting")
	p.Advance()
	p.Advance()
	p.Finish()
	assert.Contains(t, buf.String(), "2/2")
}
