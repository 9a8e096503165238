// Package model defines the records and results passed between extractors,
// the pipeline and its outputs.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// NotFound is the wire value written for a field that was not extracted.
const NotFound = "Not found"

// Extractor type tags.
const (
	TypePersonalData = "personal_data"
	TypeTabularData  = "tabular_data"
)

// ExtractionRecord is one field's outcome from one extractor on one document.
// Found is false for fields the extractor could not locate; such records always
// carry zero confidence and serialize with the NotFound marker.
type ExtractionRecord struct {
	FieldName  string
	Value      string
	Found      bool
	Confidence float64
}

// FoundRecord builds a record for an extracted value.
func FoundRecord(field, value string, confidence float64) ExtractionRecord {
	return ExtractionRecord{
		FieldName:  field,
		Value:      value,
		Found:      true,
		Confidence: confidence,
	}
}

// MissingRecord builds a record for a field with no value.
func MissingRecord(field string) ExtractionRecord {
	return ExtractionRecord{FieldName: field}
}

// DisplayValue returns the value, or NotFound for missing fields.
func (r ExtractionRecord) DisplayValue() string {
	if !r.Found {
		return NotFound
	}
	return r.Value
}

type recordJSON struct {
	FieldName  string  `json:"field_name"`
	FieldValue string  `json:"field_value"`
	Confidence float64 `json:"confidence"`
}

// MarshalJSON writes the record with the NotFound marker for missing values.
func (r ExtractionRecord) MarshalJSON() ([]byte, error) {
	confidence := r.Confidence
	if !r.Found {
		confidence = 0
	}
	return json.Marshal(recordJSON{
		FieldName:  r.FieldName,
		FieldValue: r.DisplayValue(),
		Confidence: confidence,
	})
}

// UnmarshalJSON reads a record, mapping the NotFound marker back to Found=false.
func (r *ExtractionRecord) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.FieldValue == NotFound || raw.FieldValue == "" {
		*r = MissingRecord(raw.FieldName)
		return nil
	}
	*r = FoundRecord(raw.FieldName, raw.FieldValue, raw.Confidence)
	return nil
}

// Payload is the extractor-specific data carried by an ExtractionResult.
type Payload interface {
	Len() int
}

// Records is the personal-data payload.
type Records []ExtractionRecord

// Len returns the number of records.
func (r Records) Len() int { return len(r) }

// FoundCount returns how many records hold a value.
func (r Records) FoundCount() int {
	n := 0
	for _, rec := range r {
		if rec.Found {
			n++
		}
	}
	return n
}

// Tables is the tabular-data payload.
type Tables []Table

// Len returns the number of tables.
func (t Tables) Len() int { return len(t) }

// Items is the payload of extractors whose data has no dedicated type.
type Items []any

// Len returns the number of items.
func (i Items) Len() int { return len(i) }

// Table is one table found in a document.
type Table struct {
	DataType    string     `json:"dataType"`
	Headers     []string   `json:"headers"`
	Data        [][]string `json:"data"`
	Confidence  float64    `json:"confidence"`
	Description string     `json:"description,omitempty"`
	TableID     string     `json:"table_id,omitempty"`
	RowCount    int        `json:"row_count"`
	ColumnCount int        `json:"column_count"`
}

// ExtractionResult is the output of a single extractor run. It is not modified
// after the extractor returns it.
type ExtractionResult struct {
	ExtractedAt   time.Time
	Data          Payload
	Metadata      map[string]any
	ExtractorType string
	Confidence    float64
}

// NewResult wraps a payload, stamping the creation time.
func NewResult(extractorType string, data Payload, confidence float64, metadata map[string]any) *ExtractionResult {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &ExtractionResult{
		ExtractedAt:   time.Now(),
		Data:          data,
		Metadata:      metadata,
		ExtractorType: extractorType,
		Confidence:    confidence,
	}
}

// Error returns the failure message an extractor recorded, if any.
func (r *ExtractionResult) Error() string {
	if r == nil || r.Metadata == nil {
		return ""
	}
	if msg, ok := r.Metadata["error"].(string); ok {
		return msg
	}
	return ""
}

// Records returns the payload as personal-data records, or nil.
func (r *ExtractionResult) Records() Records {
	if r == nil {
		return nil
	}
	records, _ := r.Data.(Records)
	return records
}

// Tables returns the payload as tables, or nil.
func (r *ExtractionResult) Tables() Tables {
	if r == nil {
		return nil
	}
	tables, _ := r.Data.(Tables)
	return tables
}

// DataLen is the payload length, zero when there is no payload.
func (r *ExtractionResult) DataLen() int {
	if r == nil || r.Data == nil {
		return 0
	}
	return r.Data.Len()
}

type resultJSON struct {
	Data          json.RawMessage `json:"data"`
	Metadata      map[string]any  `json:"metadata"`
	ExtractorType string          `json:"extractor_type"`
	ExtractedAt   time.Time       `json:"extracted_at"`
	Confidence    float64         `json:"confidence"`
}

// MarshalJSON implements json.Marshaler.
func (r *ExtractionResult) MarshalJSON() ([]byte, error) {
	var data any = r.Data
	if r.Data == nil {
		data = []any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", r.ExtractorType, err)
	}
	return json.Marshal(resultJSON{
		Data:          raw,
		Metadata:      r.Metadata,
		ExtractorType: r.ExtractorType,
		ExtractedAt:   r.ExtractedAt,
		Confidence:    r.Confidence,
	})
}

// UnmarshalJSON implements json.Unmarshaler, picking the payload type from the
// extractor type.
func (r *ExtractionResult) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var payload Payload
	switch raw.ExtractorType {
	case TypePersonalData:
		var records Records
		if err := unmarshalPayload(raw.Data, &records); err != nil {
			return fmt.Errorf("failed to decode personal data: %w", err)
		}
		payload = records
	case TypeTabularData:
		var tables Tables
		if err := unmarshalPayload(raw.Data, &tables); err != nil {
			return fmt.Errorf("failed to decode tabular data: %w", err)
		}
		payload = tables
	default:
		var items Items
		if err := unmarshalPayload(raw.Data, &items); err != nil {
			var single any
			if err := json.Unmarshal(raw.Data, &single); err != nil {
				return fmt.Errorf("failed to decode %s data: %w", raw.ExtractorType, err)
			}
			items = Items{single}
		}
		payload = items
	}

	*r = ExtractionResult{
		ExtractedAt:   raw.ExtractedAt,
		Data:          payload,
		Metadata:      raw.Metadata,
		ExtractorType: raw.ExtractorType,
		Confidence:    raw.Confidence,
	}
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	return nil
}

func unmarshalPayload(data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	return json.Unmarshal(data, v)
}
