package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/the-data-must-flow/internal/llm"
	"github.com/Veraticus/the-data-must-flow/internal/model"
)

const (
	fallbackTableConfidence  = 0.5
	fallbackTableDescription = "Table detected via fallback parsing"
	unknownDataType          = "unknown"
)

// DataTypes is the closed vocabulary of table classifications.
var DataTypes = []string{
	"financial_data",
	"personal_info",
	"inventory",
	"schedule",
	"contact_list",
	"transaction_history",
	"asset_list",
	"liability_list",
	"income_statement",
	"expense_report",
	"employment_history",
	"education_history",
	"reference_list",
	unknownDataType,
}

var (
	tabularIndicators = []string{"|", "+-", "===", "---", "table", "column", "row", "header", "\t", "    "}
	alignedColumns    = regexp.MustCompile(`\w+\s{2,}\w+\s{2,}\w+`)
	spacedColumns     = regexp.MustCompile(`\w+\s{2,}\w+`)
	columnGap         = regexp.MustCompile(`\s{2,}`)
	separatorCell     = regexp.MustCompile(`^:?-+:?$`)
)

// TabularDataExtractor finds tables in a document and classifies their content.
type TabularDataExtractor struct {
	*Base
}

// NewTabularDataExtractor creates the tabular-data extractor.
func NewTabularDataExtractor(client llm.Client, logger *slog.Logger) *TabularDataExtractor {
	return &TabularDataExtractor{
		Base: NewBase(client, logger,
			"tabular_data_extractor",
			model.TypeTabularData,
			"Extracts tabular data and identifies data types within tables",
			20),
	}
}

// CanProcess looks for table markup, CSV-like lines, or column-aligned text.
func (e *TabularDataExtractor) CanProcess(text string) bool {
	lines := strings.Split(text, "\n")

	csvLike := 0
	for _, line := range head(lines, 20) {
		if strings.Contains(line, ",") {
			csvLike++
		}
	}

	aligned := 0
	for _, line := range head(lines, 30) {
		if alignedColumns.MatchString(line) {
			aligned++
		}
	}

	if csvLike >= 3 || aligned >= 3 {
		return true
	}
	for _, indicator := range tabularIndicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}
	return false
}

// Extract prompts the LLM for all tables in text. Tables without rows or
// columns are dropped.
func (e *TabularDataExtractor) Extract(ctx context.Context, text, filename string) (*model.ExtractionResult, error) {
	response, err := e.complete(ctx, e.buildPrompt(text))
	if err != nil {
		e.logger.Error("Failed to extract tabular data", "filename", filename, "error", err)
		return e.FailureResult(filename, err), nil
	}

	tables, mode, warnings := e.parseResponse(response)

	confidences := make([]float64, len(tables))
	dataPoints := 0
	for i, t := range tables {
		confidences[i] = t.Confidence
		dataPoints += t.RowCount
	}

	metadata := map[string]any{
		"tables_found":      len(tables),
		"total_data_points": dataPoints,
		"source_file":       filename,
		"parse_mode":        mode,
	}
	if len(warnings) > 0 {
		metadata["schema_warnings"] = warnings
	}

	return model.NewResult(e.Type(), tables, meanNonZero(confidences), metadata), nil
}

// FailureResult returns an empty table list with the error in metadata.
func (e *TabularDataExtractor) FailureResult(filename string, err error) *model.ExtractionResult {
	return model.NewResult(e.Type(), model.Tables{}, 0, failureMetadata(filename, err))
}

func (e *TabularDataExtractor) buildPrompt(text string) string {
	return fmt.Sprintf(`Please identify and extract all tabular data from the document below.
For each table or structured data area you find, provide:
1. The table data in a structured format
2. A dataType classification (e.g., "financial_data", "personal_info", "inventory", "schedule", "contact_list", "transaction_history", etc.)
3. Column headers if present
4. A confidence score (0.0 to 1.0) for the extraction accuracy

Document content:
---
%s
---

Please respond with a JSON array where each element represents a table with this structure:

[
  {
    "dataType": "financial_data",
    "headers": ["Date", "Description", "Amount"],
    "data": [
      ["2024-01-01", "Salary", "5000"],
      ["2024-01-02", "Rent", "-1200"]
    ],
    "confidence": 0.9,
    "description": "Monthly financial transactions"
  }
]

If no tabular data is found, return an empty array: []

Common dataType classifications include: %s.
`, text, strings.Join(DataTypes[:len(DataTypes)-1], ", "))
}

// parseResponse decodes the first [...] span as JSON, falling back to a scan
// for delimiter-separated lines.
func (e *TabularDataExtractor) parseResponse(response string) (model.Tables, string, []string) {
	response = llm.StripCodeFence(response)
	if span, ok := jsonSpan(response, '[', ']'); ok {
		items, err := decodeArray(span)
		if err == nil {
			return normalizeTables(items), parseModeJSON, schemaWarnings(e.Type(), span)
		}
		e.logger.Warn("Failed to parse JSON from LLM response, using fallback parsing", "error", err)
	}
	return fallbackTables(response), parseModeFallback, nil
}

// normalizeTables converts decoded candidates into tables. Table IDs and
// default descriptions use the 1-based candidate index.
func normalizeTables(items []any) model.Tables {
	tables := model.Tables{}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		headers := stringCells(obj["headers"])
		rows := tableRows(obj["data"], &headers)

		confidence, _ := parseConfidence(obj["confidence"])
		dataType, _ := stringify(obj["dataType"])
		description, _ := obj["description"].(string)
		if description == "" {
			description = fmt.Sprintf("Table %d", i+1)
		}

		t := model.Table{
			DataType:    NormalizeDataType(dataType),
			Headers:     headers,
			Data:        rows,
			Confidence:  clamp(confidence),
			Description: description,
			TableID:     fmt.Sprintf("table_%d", i+1),
			RowCount:    len(rows),
			ColumnCount: len(headers),
		}
		if t.RowCount > 0 && t.ColumnCount > 0 {
			tables = append(tables, t)
		}
	}
	return tables
}

// tableRows reads rows given as arrays or as objects keyed by header. When
// there are no headers, object keys (sorted) become the headers.
func tableRows(raw any, headers *[]string) [][]string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, r := range list {
		switch row := r.(type) {
		case []any:
			rows = append(rows, stringCells(row))
		case map[string]any:
			if len(*headers) == 0 {
				keys := make([]string, 0, len(row))
				for k := range row {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				*headers = keys
			}
			cells := make([]string, len(*headers))
			for i, h := range *headers {
				cells[i], _ = stringify(row[h])
			}
			rows = append(rows, cells)
		}
	}
	return rows
}

func stringCells(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return []string{}
	}
	cells := make([]string, len(list))
	for i, v := range list {
		cells[i], _ = stringify(v)
	}
	return cells
}

// NormalizeDataType maps a free-form classification onto DataTypes by exact
// match, then substring match in either direction.
func NormalizeDataType(dataType string) string {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(dataType)), " ", "_")
	if normalized == "" {
		return unknownDataType
	}

	for _, valid := range DataTypes {
		if normalized == valid {
			return valid
		}
	}
	for _, valid := range DataTypes {
		if valid == unknownDataType {
			continue
		}
		if strings.Contains(valid, normalized) || strings.Contains(normalized, valid) {
			return valid
		}
	}
	return unknownDataType
}

// fallbackTables groups contiguous delimiter-bearing lines into tables. The
// first line of a run is the header; a run is kept if it has at least one row.
func fallbackTables(response string) model.Tables {
	tables := model.Tables{}
	var current *model.Table

	flush := func() {
		if current != nil && len(current.Data) > 0 {
			current.RowCount = len(current.Data)
			current.ColumnCount = len(current.Headers)
			current.TableID = fmt.Sprintf("table_%d", len(tables)+1)
			tables = append(tables, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		columns, delimited := splitColumns(line)
		if !delimited {
			flush()
			continue
		}
		if len(columns) < 2 || isSeparatorRow(columns) {
			continue
		}

		if current == nil {
			current = &model.Table{
				DataType:    unknownDataType,
				Headers:     columns,
				Data:        [][]string{},
				Confidence:  fallbackTableConfidence,
				Description: fallbackTableDescription,
			}
			continue
		}
		current.Data = append(current.Data, columns)
	}
	flush()

	return tables
}

// splitColumns splits a line on "|", tab, or runs of two or more spaces, and
// reports whether the line uses any of those delimiters.
func splitColumns(line string) ([]string, bool) {
	switch {
	case strings.Contains(line, "|"):
		return nonEmpty(strings.Split(line, "|")), true
	case strings.Contains(line, "\t"):
		return nonEmpty(strings.Split(line, "\t")), true
	case spacedColumns.MatchString(line):
		return nonEmpty(columnGap.Split(line, -1)), true
	default:
		return nil, false
	}
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isSeparatorRow(columns []string) bool {
	for _, c := range columns {
		if !separatorCell.MatchString(c) {
			return false
		}
	}
	return true
}

func head(lines []string, n int) []string {
	if len(lines) < n {
		return lines
	}
	return lines[:n]
}
