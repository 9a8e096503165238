// Package output writes extraction results and reports to an output directory.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-data-must-flow/internal/aggregate"
	"github.com/Veraticus/the-data-must-flow/internal/common"
	"github.com/Veraticus/the-data-must-flow/internal/model"
)

const timestampLayout = "20060102_150405"

// File names of batch-level reports.
const (
	SummaryFile       = "comprehensive_summary.json"
	aggregationPrefix = "personal_data_aggregation_"
	validationPrefix  = "validation_report_"
)

// Manager writes JSON and XLSX files into a single directory.
type Manager struct {
	logger *slog.Logger
	now    func() time.Time
	dir    string
}

// NewManager creates the output directory if needed.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &Manager{
		dir:    dir,
		logger: common.LoggerOrDefault(logger),
		now:    time.Now,
	}, nil
}

// Dir returns the output directory.
func (m *Manager) Dir() string { return m.dir }

// ResultName is the per-document output name: the stem and extension of the
// input joined with "_results.json", so a.pdf and a.txt do not collide.
func ResultName(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" || stem == "" {
		return base + "_results.json"
	}
	return fmt.Sprintf("%s_%s_results.json", stem, ext[1:])
}

// ResultNames assigns an output name to each input filename. A single
// document uses override when it is set. Names repeated within the batch get
// a numeric suffix.
func ResultNames(filenames []string, override string) []string {
	names := make([]string, len(filenames))
	if len(filenames) == 1 && override != "" {
		names[0] = override
		return names
	}

	used := make(map[string]int, len(filenames))
	for i, filename := range filenames {
		name := ResultName(filename)
		if n := used[name]; n > 0 {
			used[name] = n + 1
			name = strings.TrimSuffix(name, ".json") + "_" + strconv.Itoa(n+1) + ".json"
		} else {
			used[name] = 1
		}
		names[i] = name
	}
	return names
}

// SaveDocument writes one document's formatted results under name.
func (m *Manager) SaveDocument(doc *model.DocumentResult, name string, includeMetadata bool) (string, error) {
	path, err := m.writeJSON(name, FormatDocument(doc, includeMetadata, m.now()))
	if err != nil {
		return "", err
	}
	m.logger.Info("Results saved", "path", path)
	return path, nil
}

// SaveAggregation writes the cross-document aggregation.
func (m *Manager) SaveAggregation(report *aggregate.Report) (string, error) {
	path, err := m.writeJSON(m.timestamped(aggregationPrefix, ".json"), report)
	if err != nil {
		return "", err
	}
	m.logger.Info("Personal data aggregation saved", "path", path)
	return path, nil
}

// SaveSummary writes the comprehensive batch summary.
func (m *Manager) SaveSummary(summary *aggregate.BatchSummary) (string, error) {
	path, err := m.writeJSON(SummaryFile, summary)
	if err != nil {
		return "", err
	}
	m.logger.Info("Summary report saved", "path", path)
	return path, nil
}

// SaveValidation writes the batch validation report.
func (m *Manager) SaveValidation(report *aggregate.QualityReport) (string, error) {
	path, err := m.writeJSON(m.timestamped(validationPrefix, ".json"), report)
	if err != nil {
		return "", err
	}
	m.logger.Info("Validation report saved", "path", path)
	return path, nil
}

// timestamped returns prefix+timestamp+ext, adding a counter if a file with
// that name already exists.
func (m *Manager) timestamped(prefix, ext string) string {
	stamp := m.now().Format(timestampLayout)
	name := prefix + stamp + ext
	for i := 2; m.exists(name); i++ {
		name = fmt.Sprintf("%s%s_%d%s", prefix, stamp, i, ext)
	}
	return name
}

func (m *Manager) exists(name string) bool {
	_, err := os.Stat(filepath.Join(m.dir, name))
	return err == nil
}

func (m *Manager) writeJSON(name string, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}

	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		m.logger.Error("Failed to save output", "path", path, "error", err)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
