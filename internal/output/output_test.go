package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/the-data-must-flow/internal/aggregate"
	"github.com/Veraticus/the-data-must-flow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "out"), nil)
	require.NoError(t, err)
	m.now = func() time.Time { return fixedNow }
	return m
}

func scenarioDoc() *model.DocumentResult {
	records := model.Records{
		model.FoundRecord("First name", "John", 0.9),
		model.FoundRecord("Last name", "Doe", 0.85),
	}
	for _, f := range []string{"Middle name", "Date of birth", "Social Security Number", "Phone number",
		"Email address", "Home address", "Employment status", "Annual income", "Employer name", "Job title"} {
		records = append(records, model.MissingRecord(f))
	}

	doc := &model.DocumentResult{
		Filename: "application.txt",
		Metadata: model.RunMetadata{Filename: "application.txt", SuccessCount: 2},
	}
	personal := model.NewResult(model.TypePersonalData, records, 0.875, nil)
	personal.ExtractedAt = fixedNow
	doc.Set(personal)
	doc.Set(model.NewResult(model.TypeTabularData, model.Tables{{
		DataType: "inventory", Headers: []string{"Item", "Qty"}, Data: [][]string{{"Bolt", "4"}},
		Confidence: 0.7, RowCount: 1, ColumnCount: 2, TableID: "table_1", Description: "Table 1",
	}}, 0.7, nil))
	return doc
}

func TestResultName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"application.pdf", "application_pdf_results.json"},
		{"application.txt", "application_txt_results.json"},
		{"archive.tar.gz", "archive.tar_gz_results.json"},
		{"README", "README_results.json"},
		{"dir/form.docx", "form_docx_results.json"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ResultName(tt.in))
		})
	}
}

func TestResultNames(t *testing.T) {
	assert.Equal(t, []string{"custom.json"}, ResultNames([]string{"a.txt"}, "custom.json"))
	assert.Equal(t,
		[]string{"a_txt_results.json", "a_pdf_results.json"},
		ResultNames([]string{"a.txt", "a.pdf"}, "custom.json"))
	assert.Equal(t,
		[]string{"a_txt_results.json", "a_txt_results_2.json"},
		ResultNames([]string{"x/a.txt", "y/a.txt"}, ""))
}

func TestFormatDocument_FiltersMissingFields(t *testing.T) {
	formatted := FormatDocument(scenarioDoc(), false, fixedNow)

	data, err := json.Marshal(formatted)
	require.NoError(t, err)

	var decoded struct {
		ExtractionSummary struct {
			ExtractionTypes     []string `json:"extraction_types"`
			TotalFilesProcessed int      `json:"total_files_processed"`
		} `json:"extraction_summary"`
		PersonalData       json.RawMessage   `json:"personalData"`
		TabularData        []model.Table     `json:"tabularData"`
		ExtractionMetadata model.RunMetadata `json:"extraction_metadata"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.JSONEq(t, `[{"firstName":"John","confidence":0.9},{"lastName":"Doe","confidence":0.85}]`, string(decoded.PersonalData))
	assert.Equal(t, []string{"personalData", "tabularData", "extraction_metadata"}, decoded.ExtractionSummary.ExtractionTypes)
	assert.Equal(t, 1, decoded.ExtractionSummary.TotalFilesProcessed)
	require.Len(t, decoded.TabularData, 1)
	assert.Equal(t, "table_1", decoded.TabularData[0].TableID)
	assert.Equal(t, "application.txt", decoded.ExtractionMetadata.Filename)

	assert.Equal(t, []string{"extraction_summary", "personalData", "tabularData", "extraction_metadata"}, formatted.Keys())
}

func TestFormatDocument_IncludeMetadataAndExtraTypes(t *testing.T) {
	doc := scenarioDoc()
	doc.Set(model.NewResult("signatures", model.Items{"J. Doe"}, 0.5, nil))

	formatted := FormatDocument(doc, true, fixedNow)
	assert.Equal(t,
		[]string{"extraction_summary", "personalData", "tabularData", "extraction_metadata", "signatures"},
		formatted.Keys())

	personal, ok := formatted.Get("personalData")
	require.True(t, ok)
	entries, ok := personal.([]object)
	require.True(t, ok)
	require.Len(t, entries, 2)
	at, ok := entries[0].Get("extracted_at")
	require.True(t, ok)
	assert.Equal(t, fixedNow, at)
}

func TestManager_SaveFiles(t *testing.T) {
	m := newTestManager(t)
	doc := scenarioDoc()
	batch := []*model.DocumentResult{doc}

	path, err := m.SaveDocument(doc, ResultName(doc.Filename), false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.Dir(), "application_txt_results.json"), path)
	assert.FileExists(t, path)

	report := aggregate.Aggregate(batch)
	first, err := m.SaveAggregation(report)
	require.NoError(t, err)
	assert.Equal(t, "personal_data_aggregation_20240309_143005.json", filepath.Base(first))

	second, err := m.SaveAggregation(report)
	require.NoError(t, err)
	assert.Equal(t, "personal_data_aggregation_20240309_143005_2.json", filepath.Base(second))

	raw, err := os.ReadFile(first)
	require.NoError(t, err)
	var decoded aggregate.Report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{"firstName", "lastName"}, decoded.AggregatedPersonalData.Keys())

	summaryPath, err := m.SaveSummary(aggregate.SummarizeBatch(batch))
	require.NoError(t, err)
	assert.Equal(t, SummaryFile, filepath.Base(summaryPath))

	validationPath, err := m.SaveValidation(aggregate.Quality(batch))
	require.NoError(t, err)
	assert.Equal(t, "validation_report_20240309_143005.json", filepath.Base(validationPath))
}

func TestManager_ExportXLSX(t *testing.T) {
	m := newTestManager(t)
	other := scenarioDoc()
	other.Filename = "second.txt"
	other.Personal()[0].Value = "Jon"
	batch := []*model.DocumentResult{scenarioDoc(), other}

	path, err := m.ExportXLSX(aggregate.Aggregate(batch), batch)
	require.NoError(t, err)
	assert.Equal(t, "personal_data_aggregation_20240309_143005.xlsx", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ValuesSheet, InconsistenciesSheet, DocumentsSheet}, f.GetSheetList())

	values, err := f.GetRows(ValuesSheet)
	require.NoError(t, err)
	require.Len(t, values, 4)
	assert.Equal(t, []string{"Field", "Value", "Occurrences", "Weighted Score", "Files", "Average Confidence"}, values[0])
	assert.Equal(t, "firstName", values[1][0])
	assert.Equal(t, "John", values[1][1])
	assert.Equal(t, "application.txt", values[1][4])
	assert.Equal(t, "Jon", values[2][1])
	assert.Equal(t, "lastName", values[3][0])
	assert.Equal(t, "application.txt, second.txt", values[3][4])

	inconsistencies, err := f.GetRows(InconsistenciesSheet)
	require.NoError(t, err)
	require.Len(t, inconsistencies, 2)
	assert.Equal(t, []string{"firstName", "2", "John / Jon"}, inconsistencies[1])

	docs, err := f.GetRows(DocumentsSheet)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "second.txt", docs[2][0])
}
