package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/the-data-must-flow/internal/model"
	"github.com/Veraticus/the-data-must-flow/internal/pipeline"
)

// Confidence bands used by validation reports.
const (
	HighConfidence = 0.8
	LowConfidence  = 0.5
)

// Recommendation thresholds.
const (
	lowOverallRate = 0.5
	lowFieldRate   = 0.3
)

// BatchSummary is the comprehensive summary of a batch run.
type BatchSummary struct {
	GeneratedAt              time.Time                        `json:"generated_at"`
	DocumentSummaries        Ordered[model.ExtractionSummary] `json:"document_summaries"`
	AverageConfidenceByType  Ordered[float64]                 `json:"average_confidence_by_type"`
	ExtractionTypesFound     []string                         `json:"extraction_types_found"`
	TotalDocumentsProcessed  int                              `json:"total_documents_processed"`
	OverallAverageConfidence float64                          `json:"overall_average_confidence"`
}

// SummarizeBatch combines the per-document summaries of batch. Averages only
// count result entries with positive confidence.
func SummarizeBatch(batch []*model.DocumentResult) *BatchSummary {
	s := &BatchSummary{
		GeneratedAt:             time.Now(),
		DocumentSummaries:       Ordered[model.ExtractionSummary]{},
		AverageConfidenceByType: Ordered[float64]{},
		ExtractionTypesFound:    []string{},
		TotalDocumentsProcessed: len(batch),
	}

	types := make(map[string]bool)
	byType := make(map[string][]float64)
	var typeOrder []string
	var all []float64

	for _, doc := range batch {
		summary := pipeline.Summarize(doc)
		s.DocumentSummaries = append(s.DocumentSummaries, Entry[model.ExtractionSummary]{Key: doc.Filename, Value: summary})
		for _, t := range summary.ExtractionTypesFound {
			types[t] = true
		}

		for _, r := range doc.Results {
			if r.Confidence <= 0 {
				continue
			}
			key := model.ResultKey(r.ExtractorType)
			if _, seen := byType[key]; !seen {
				typeOrder = append(typeOrder, key)
			}
			byType[key] = append(byType[key], r.Confidence)
			all = append(all, r.Confidence)
		}
	}

	for t := range types {
		s.ExtractionTypesFound = append(s.ExtractionTypesFound, t)
	}
	sort.Strings(s.ExtractionTypesFound)

	s.OverallAverageConfidence = mean(all)
	for _, key := range typeOrder {
		s.AverageConfidenceByType = append(s.AverageConfidenceByType, Entry[float64]{Key: key, Value: mean(byType[key])})
	}
	return s
}

// ValidationReport grades one document's personal-data records.
type ValidationReport struct {
	ValidationTimestamp  time.Time `json:"validation_timestamp"`
	TotalFields          int       `json:"total_fields"`
	FoundFields          int       `json:"found_fields"`
	MissingFields        int       `json:"missing_fields"`
	ExtractionRate       float64   `json:"extraction_rate"`
	HighConfidenceFields int       `json:"high_confidence_fields"`
	LowConfidenceFields  int       `json:"low_confidence_fields"`
	AverageConfidence    float64   `json:"average_confidence"`
}

// Validate grades records. Missing fields count toward the low-confidence band
// and the average.
func Validate(records model.Records) ValidationReport {
	r := ValidationReport{
		ValidationTimestamp: time.Now(),
		TotalFields:         len(records),
		FoundFields:         records.FoundCount(),
	}
	r.MissingFields = r.TotalFields - r.FoundFields

	var sum float64
	for _, rec := range records {
		confidence := rec.Confidence
		if !rec.Found {
			confidence = 0
		}
		sum += confidence
		if confidence >= HighConfidence {
			r.HighConfidenceFields++
		}
		if confidence < LowConfidence {
			r.LowConfidenceFields++
		}
	}
	if r.TotalFields > 0 {
		r.ExtractionRate = float64(r.FoundFields) / float64(r.TotalFields)
		r.AverageConfidence = sum / float64(r.TotalFields)
	}
	return r
}

// Overview is the headline of a quality report.
type Overview struct {
	ReportGeneratedAt     time.Time `json:"report_generated_at"`
	TotalFilesProcessed   int       `json:"total_files_processed"`
	TotalRecordsExtracted int       `json:"total_records_extracted"`
	SuccessfulExtractions int       `json:"successful_extractions"`
	OverallExtractionRate float64   `json:"overall_extraction_rate"`
}

// FieldStats describes how one field fared across a batch.
type FieldStats struct {
	TotalOccurrences  int     `json:"total_occurrences"`
	FoundCount        int     `json:"found_count"`
	SuccessRate       float64 `json:"success_rate"`
	AverageConfidence float64 `json:"average_confidence"`
}

// QualityReport is the batch validation report: per-field statistics,
// per-document validation, and recommendations.
type QualityReport struct {
	FieldStatistics Ordered[FieldStats]       `json:"field_statistics"`
	Documents       Ordered[ValidationReport] `json:"documents"`
	Recommendations []string                  `json:"recommendations"`
	Overview        Overview                  `json:"overview"`
}

// Quality builds the validation report for the personal data in batch.
// Fields keep the order they are first seen in.
func Quality(batch []*model.DocumentResult) *QualityReport {
	q := &QualityReport{
		FieldStatistics: Ordered[FieldStats]{},
		Documents:       Ordered[ValidationReport]{},
		Overview:        Overview{ReportGeneratedAt: time.Now()},
	}

	index := make(map[string]int)
	confidenceSums := make([]float64, 0)
	files := make(map[string]bool)

	for _, doc := range batch {
		records := doc.Personal()
		if records == nil {
			continue
		}
		files[doc.Filename] = true
		q.Documents = append(q.Documents, Entry[ValidationReport]{Key: doc.Filename, Value: Validate(records)})

		for _, rec := range records {
			i, ok := index[rec.FieldName]
			if !ok {
				i = len(q.FieldStatistics)
				index[rec.FieldName] = i
				q.FieldStatistics = append(q.FieldStatistics, Entry[FieldStats]{Key: rec.FieldName})
				confidenceSums = append(confidenceSums, 0)
			}
			stats := &q.FieldStatistics[i].Value
			stats.TotalOccurrences++
			q.Overview.TotalRecordsExtracted++
			if rec.Found {
				stats.FoundCount++
				q.Overview.SuccessfulExtractions++
				confidenceSums[i] += rec.Confidence
			}
		}
	}

	for i := range q.FieldStatistics {
		stats := &q.FieldStatistics[i].Value
		stats.SuccessRate = float64(stats.FoundCount) / float64(stats.TotalOccurrences)
		stats.AverageConfidence = confidenceSums[i] / float64(stats.TotalOccurrences)
	}

	q.Overview.TotalFilesProcessed = len(files)
	if q.Overview.TotalRecordsExtracted > 0 {
		q.Overview.OverallExtractionRate = float64(q.Overview.SuccessfulExtractions) / float64(q.Overview.TotalRecordsExtracted)
	}
	q.Recommendations = recommendations(q.FieldStatistics, q.Overview.OverallExtractionRate)
	return q
}

func recommendations(stats Ordered[FieldStats], overallRate float64) []string {
	var recs []string
	if overallRate < lowOverallRate {
		recs = append(recs, "Overall extraction rate is low. Consider improving document quality or extraction prompts.")
	}

	var lowRate, lowConfidence []string
	for _, e := range stats {
		if e.Value.SuccessRate < lowFieldRate {
			lowRate = append(lowRate, e.Key)
		}
		if e.Value.AverageConfidence < LowConfidence {
			lowConfidence = append(lowConfidence, e.Key)
		}
	}
	if len(lowRate) > 0 {
		recs = append(recs, fmt.Sprintf("The following fields have low extraction rates: %s. Consider adding field variations or improving document formatting.", strings.Join(lowRate, ", ")))
	}
	if len(lowConfidence) > 0 {
		recs = append(recs, fmt.Sprintf("The following fields have low confidence scores: %s. Manual review recommended.", strings.Join(lowConfidence, ", ")))
	}

	if len(recs) == 0 {
		recs = append(recs, "Extraction performance looks good. No specific recommendations at this time.")
	}
	return recs
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
