package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Veraticus/the-data-must-flow/internal/aggregate"
	"github.com/Veraticus/the-data-must-flow/internal/model"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the XLSX export.
const (
	ValuesSheet          = "Aggregated Values"
	InconsistenciesSheet = "Inconsistencies"
	DocumentsSheet       = "Documents"
)

// ExportXLSX writes the aggregation and per-document run outcomes as a
// workbook next to the JSON reports.
func (m *Manager) ExportXLSX(report *aggregate.Report, batch []*model.DocumentResult) (string, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			m.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", ValuesSheet); err != nil {
		return "", fmt.Errorf("rename sheet: %w", err)
	}
	for _, sheet := range []string{InconsistenciesSheet, DocumentsSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	if err := writeRows(f, ValuesSheet, valueRows(report)); err != nil {
		return "", err
	}
	if err := writeRows(f, InconsistenciesSheet, inconsistencyRows(report)); err != nil {
		return "", err
	}
	if err := writeRows(f, DocumentsSheet, documentRows(batch)); err != nil {
		return "", err
	}

	_ = f.SetColWidth(ValuesSheet, "A", "A", 24)
	_ = f.SetColWidth(ValuesSheet, "B", "B", 36)
	_ = f.SetColWidth(ValuesSheet, "E", "E", 60)
	_ = f.SetColWidth(DocumentsSheet, "A", "A", 36)

	name := m.timestamped(aggregationPrefix, ".xlsx")
	path := filepath.Join(m.dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("xlsx write: %w", err)
	}

	m.logger.Info("Aggregation workbook saved", "path", path, "fields", len(report.AggregatedPersonalData))
	return path, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func valueRows(report *aggregate.Report) [][]any {
	rows := [][]any{{"Field", "Value", "Occurrences", "Weighted Score", "Files", "Average Confidence"}}
	for _, field := range report.AggregatedPersonalData {
		for _, v := range field.Value {
			files := make([]string, len(v.Instances))
			var sum float64
			for i, inst := range v.Instances {
				files[i] = inst.File
				sum += inst.Confidence
			}
			rows = append(rows, []any{
				field.Key,
				v.Value,
				v.Occurrences,
				v.WeightedScore,
				strings.Join(files, ", "),
				sum / float64(len(v.Instances)),
			})
		}
	}
	return rows
}

func inconsistencyRows(report *aggregate.Report) [][]any {
	rows := [][]any{{"Field", "Distinct Values", "Sample Values"}}
	for _, inc := range report.Summary.InconsistenciesFound {
		rows = append(rows, []any{inc.Field, inc.ValueCount, strings.Join(inc.Values, " / ")})
	}
	return rows
}

func documentRows(batch []*model.DocumentResult) [][]any {
	rows := [][]any{{"File", "Extractors", "Succeeded", "Failed", "Processing Time (s)"}}
	for _, doc := range batch {
		rows = append(rows, []any{
			doc.Filename,
			len(doc.Metadata.ExtractorsRun),
			doc.Metadata.SuccessCount,
			doc.Metadata.ErrorCount,
			doc.Metadata.TotalProcessingTime,
		})
	}
	return rows
}
