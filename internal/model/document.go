package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MetadataKey is the result-map key holding the run metadata.
const MetadataKey = "extraction_metadata"

// ResultKey maps an extractor type to its key in a document's result map.
func ResultKey(extractorType string) string {
	switch extractorType {
	case TypePersonalData:
		return "personalData"
	case TypeTabularData:
		return "tabularData"
	default:
		return extractorType
	}
}

// ExtractorRun records one extractor's execution against a document.
type ExtractorRun struct {
	Confidence     *float64 `json:"confidence,omitempty"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Error          string   `json:"error,omitempty"`
	ProcessingTime float64  `json:"processing_time"`
	Success        bool     `json:"success"`
}

// RunMetadata describes a pipeline run over one document.
type RunMetadata struct {
	ProcessedAt         time.Time      `json:"processed_at"`
	CompletedAt         time.Time      `json:"completed_at"`
	Filename            string         `json:"filename"`
	ExtractorsRun       []ExtractorRun `json:"extractors_run"`
	TotalProcessingTime float64        `json:"total_processing_time"`
	SuccessCount        int            `json:"success_count"`
	ErrorCount          int            `json:"error_count"`
}

// DocumentResult is the per-document result map: one entry per extractor type
// that ran, in run order, plus the run metadata.
type DocumentResult struct {
	Filename string
	Results  []*ExtractionResult
	Metadata RunMetadata
}

// Set stores a result under its type key, replacing an earlier result with the
// same key in place.
func (d *DocumentResult) Set(result *ExtractionResult) {
	key := ResultKey(result.ExtractorType)
	for i, existing := range d.Results {
		if ResultKey(existing.ExtractorType) == key {
			d.Results[i] = result
			return
		}
	}
	d.Results = append(d.Results, result)
}

// Get returns the result stored under a result-map key such as "personalData".
func (d *DocumentResult) Get(key string) (*ExtractionResult, bool) {
	for _, r := range d.Results {
		if ResultKey(r.ExtractorType) == key {
			return r, true
		}
	}
	return nil, false
}

// Personal returns the personal-data records, or nil if that extractor did not run.
func (d *DocumentResult) Personal() Records {
	r, ok := d.Get(ResultKey(TypePersonalData))
	if !ok {
		return nil
	}
	return r.Records()
}

// Tabular returns the tables, or nil if that extractor did not run.
func (d *DocumentResult) Tabular() Tables {
	r, ok := d.Get(ResultKey(TypeTabularData))
	if !ok {
		return nil
	}
	return r.Tables()
}

// MarshalJSON writes the result map as an object keyed by result key, with
// extraction_metadata last.
func (d *DocumentResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, r := range d.Results {
		if err := writeMember(&buf, ResultKey(r.ExtractorType), r); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}
	if err := writeMember(&buf, MetadataKey, d.Metadata); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a result map, keeping the key order of the input.
func (d *DocumentResult) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("document result must be a JSON object")
	}

	out := DocumentResult{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		if key == MetadataKey {
			if err := dec.Decode(&out.Metadata); err != nil {
				return fmt.Errorf("failed to decode run metadata: %w", err)
			}
			continue
		}
		var result ExtractionResult
		if err := dec.Decode(&result); err != nil {
			return fmt.Errorf("failed to decode %s: %w", key, err)
		}
		out.Results = append(out.Results, &result)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	out.Filename = out.Metadata.Filename
	*d = out
	return nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// ExtractionSummary is a read-only projection of a document's result map.
type ExtractionSummary struct {
	ExtractionTypesFound []string `json:"extraction_types_found"`
	TotalExtractors      int      `json:"total_extractors"`
	SuccessfulExtractors int      `json:"successful_extractors"`
	FailedExtractors     int      `json:"failed_extractors"`
	ProcessingTime       float64  `json:"processing_time"`
	AverageConfidence    float64  `json:"average_confidence"`
}

// Document is the decoded text of one input file.
type Document struct {
	Filename string
	Path     string
	Text     string
	Size     int64
}
