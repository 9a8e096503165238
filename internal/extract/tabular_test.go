package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Veraticus/the-data-must-flow/internal/model"
	"github.com/Veraticus/the-data-must-flow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTabularDataExtractor_Extract(t *testing.T) {
	tests := []struct {
		name           string
		response       string
		wantMode       string
		want           model.Tables
		wantConfidence float64
	}{
		{
			name: "structured tables",
			response: `[
				{"dataType":"Financial Data","headers":["Date","Amount"],"data":[["2024-01-01",5000],["2024-01-02","-1200"]],"confidence":0.9,"description":"Ledger"},
				{"dataType":"Contact List","headers":["Name","Phone"],"data":[["Jane","555-5678"]],"confidence":0.8}
			]`,
			want: model.Tables{
				{
					DataType:    "financial_data",
					Headers:     []string{"Date", "Amount"},
					Data:        [][]string{{"2024-01-01", "5000"}, {"2024-01-02", "-1200"}},
					Confidence:  0.9,
					Description: "Ledger",
					TableID:     "table_1",
					RowCount:    2,
					ColumnCount: 2,
				},
				{
					DataType:    "contact_list",
					Headers:     []string{"Name", "Phone"},
					Data:        [][]string{{"Jane", "555-5678"}},
					Confidence:  0.8,
					Description: "Table 2",
					TableID:     "table_2",
					RowCount:    1,
					ColumnCount: 2,
				},
			},
			wantMode:       parseModeJSON,
			wantConfidence: 0.85,
		},
		{
			name: "empty tables are dropped",
			response: `[
				{"dataType":"inventory","headers":["Item"],"data":[],"confidence":0.9},
				{"dataType":"inventory","headers":[],"data":[["bolt"]],"confidence":0.9},
				"not a table",
				{"dataType":"something odd","headers":["Item","Qty"],"data":[{"Item":"Bolt","Qty":4}],"confidence":"70%"}
			]`,
			want: model.Tables{
				{
					DataType:    "unknown",
					Headers:     []string{"Item", "Qty"},
					Data:        [][]string{{"Bolt", "4"}},
					Confidence:  0.7,
					Description: "Table 4",
					TableID:     "table_4",
					RowCount:    1,
					ColumnCount: 2,
				},
			},
			wantMode:       parseModeJSON,
			wantConfidence: 0.7,
		},
		{
			name:     "non-finite confidence becomes zero",
			response: `[{"dataType":"inventory","headers":["Item","Qty"],"data":[["Bolt","4"]],"confidence":"nan"}]`,
			want: model.Tables{
				{
					DataType:    "inventory",
					Headers:     []string{"Item", "Qty"},
					Data:        [][]string{{"Bolt", "4"}},
					Confidence:  0,
					Description: "Table 1",
					TableID:     "table_1",
					RowCount:    1,
					ColumnCount: 2,
				},
			},
			wantMode:       parseModeJSON,
			wantConfidence: 0,
		},
		{
			name:           "empty array",
			response:       "No tables here: []",
			want:           model.Tables{},
			wantMode:       parseModeJSON,
			wantConfidence: 0,
		},
		{
			name: "markdown table falls back to line scan",
			response: "The document contains:\n" +
				"| Name | Balance |\n" +
				"|------|:-------:|\n" +
				"| Checking | 1200 |\n" +
				"| Savings | 5400 |\n" +
				"That is all.\n" +
				"Item  Qty\n" +
				"no rows follow\n",
			want: model.Tables{
				{
					DataType:    "unknown",
					Headers:     []string{"Name", "Balance"},
					Data:        [][]string{{"Checking", "1200"}, {"Savings", "5400"}},
					Confidence:  fallbackTableConfidence,
					Description: fallbackTableDescription,
					TableID:     "table_1",
					RowCount:    2,
					ColumnCount: 2,
				},
			},
			wantMode:       parseModeFallback,
			wantConfidence: fallbackTableConfidence,
		},
		{
			name:           "nothing tabular",
			response:       "I could not find any tables [sic.",
			want:           model.Tables{},
			wantMode:       parseModeFallback,
			wantConfidence: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testutil.NewMockLLM().On(tt.response, testutil.TabularPrompt)
			e := NewTabularDataExtractor(client, nil)

			result, err := e.Extract(context.Background(), "Item | Qty", "stock.txt")
			require.NoError(t, err)

			assert.Equal(t, model.TypeTabularData, result.ExtractorType)
			assert.Equal(t, tt.want, result.Tables())
			assert.InDelta(t, tt.wantConfidence, result.Confidence, 1e-9)
			assert.Equal(t, tt.wantMode, result.Metadata["parse_mode"])
			assert.Equal(t, len(tt.want), result.Metadata["tables_found"])

			for _, table := range result.Tables() {
				assert.Positive(t, table.RowCount)
				assert.Positive(t, table.ColumnCount)
			}

			_, err = json.Marshal(result)
			require.NoError(t, err)
		})
	}
}

func TestTabularDataExtractor_TotalDataPoints(t *testing.T) {
	response := `[{"dataType":"schedule","headers":["Day","Task"],"data":[["Mon","a"],["Tue","b"],["Wed","c"]],"confidence":0.6}]`
	e := NewTabularDataExtractor(testutil.NewMockLLM().On(response, testutil.TabularPrompt), nil)

	result, err := e.Extract(context.Background(), "table", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Metadata["total_data_points"])
}

func TestTabularDataExtractor_LLMFailure(t *testing.T) {
	client := testutil.NewMockLLM().OnError(errors.New("timeout"), testutil.TabularPrompt)
	e := NewTabularDataExtractor(client, nil)

	result, err := e.Extract(context.Background(), "a | b", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, result.DataLen())
	assert.Equal(t, 0.0, result.Confidence)
	assert.Contains(t, result.Error(), "timeout")
}

func TestTabularDataExtractor_CanProcess(t *testing.T) {
	e := NewTabularDataExtractor(nil, nil)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "pipe table", text: "a | b", want: true},
		{name: "csv lines", text: "a,b\nc,d\ne,f", want: true},
		{name: "aligned columns", text: "Alpha  Beta  Gamma", want: true},
		{name: "keyword", text: "see the table below", want: true},
		{name: "plain prose", text: "Dear applicant, thank you.", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.CanProcess(tt.text))
		})
	}
}

func TestNormalizeDataType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "financial_data", want: "financial_data"},
		{input: "Transaction History", want: "transaction_history"},
		{input: "monthly_expense_report_2024", want: "expense_report"},
		{input: "inventory", want: "inventory"},
		{input: "contacts", want: "unknown"},
		{input: "contact", want: "contact_list"},
		{input: "", want: "unknown"},
		{input: "weather", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDataType(tt.input))
		})
	}
}
