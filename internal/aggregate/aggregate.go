// Package aggregate merges personal-data results across a batch of documents
// and derives batch-level summaries and quality reports.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/Veraticus/the-data-must-flow/internal/model"
)

const sampleValues = 3

// Instance records one document that produced a value.
type Instance struct {
	File       string  `json:"file"`
	Confidence float64 `json:"confidence"`
}

// ValueEntry is one distinct value of a field with its provenance.
type ValueEntry struct {
	Value         string     `json:"value"`
	Instances     []Instance `json:"instances"`
	Occurrences   int        `json:"occurrences"`
	WeightedScore float64    `json:"weightedScore"`
}

// Inconsistency flags a field that took more than one value across the batch.
type Inconsistency struct {
	Field      string   `json:"field"`
	Values     []string `json:"values"`
	ValueCount int      `json:"value_count"`
}

// MostCommon is the top value of a field.
type MostCommon struct {
	Value         string  `json:"value"`
	Occurrences   int     `json:"occurrences"`
	WeightedScore float64 `json:"weightedScore"`
}

// ConfidenceStats summarizes the provenance confidences of a field.
type ConfidenceStats struct {
	AverageConfidence float64 `json:"average_confidence"`
	MinConfidence     float64 `json:"min_confidence"`
	MaxConfidence     float64 `json:"max_confidence"`
	TotalInstances    int     `json:"total_instances"`
}

// Summary describes an aggregation.
type Summary struct {
	InconsistenciesFound []Inconsistency          `json:"inconsistencies_found"`
	MostCommonValues     Ordered[MostCommon]      `json:"most_common_values"`
	ConfidenceAnalysis   Ordered[ConfidenceStats] `json:"confidence_analysis"`
	TotalFilesProcessed  int                      `json:"total_files_processed"`
	FieldsWithData       int                      `json:"fields_with_data"`
	TotalUniqueValues    int                      `json:"total_unique_values"`
}

// Report is the cross-document aggregation of personal data.
type Report struct {
	GeneratedAt            time.Time             `json:"generated_at"`
	AggregatedPersonalData Ordered[[]ValueEntry] `json:"aggregated_personal_data"`
	Summary                Summary               `json:"summary"`
}

// Aggregate groups every found personal-data value in batch by output key and
// exact value. Fields appear in the order they are first seen; values within a
// field are ordered by occurrences, most common first, ties keeping first-seen
// order. The batch is not modified.
func Aggregate(batch []*model.DocumentResult) *Report {
	var fields Ordered[[]ValueEntry]
	index := make(map[string]int)

	for _, doc := range batch {
		if doc == nil {
			continue
		}
		for _, rec := range doc.Personal() {
			if !rec.Found {
				continue
			}
			key := CamelKey(rec.FieldName)
			i, ok := index[key]
			if !ok {
				i = len(fields)
				index[key] = i
				fields = append(fields, Entry[[]ValueEntry]{Key: key})
			}
			fields[i].Value = addInstance(fields[i].Value, rec.Value, Instance{
				File:       doc.Filename,
				Confidence: rec.Confidence,
			})
		}
	}

	for i := range fields {
		values := fields[i].Value
		total := 0
		for j := range values {
			values[j].Occurrences = len(values[j].Instances)
			total += values[j].Occurrences
		}
		for j := range values {
			values[j].WeightedScore = round3(float64(values[j].Occurrences) / float64(total))
		}
		sort.SliceStable(values, func(a, b int) bool {
			if values[a].Occurrences != values[b].Occurrences {
				return values[a].Occurrences > values[b].Occurrences
			}
			return values[a].WeightedScore > values[b].WeightedScore
		})
	}

	if fields == nil {
		fields = Ordered[[]ValueEntry]{}
	}

	return &Report{
		GeneratedAt:            time.Now(),
		AggregatedPersonalData: fields,
		Summary:                summarize(fields, len(batch)),
	}
}

func addInstance(values []ValueEntry, value string, inst Instance) []ValueEntry {
	for i := range values {
		if values[i].Value == value {
			values[i].Instances = append(values[i].Instances, inst)
			return values
		}
	}
	return append(values, ValueEntry{Value: value, Instances: []Instance{inst}})
}

func summarize(fields Ordered[[]ValueEntry], totalFiles int) Summary {
	s := Summary{
		TotalFilesProcessed:  totalFiles,
		FieldsWithData:       len(fields),
		InconsistenciesFound: []Inconsistency{},
		MostCommonValues:     Ordered[MostCommon]{},
		ConfidenceAnalysis:   Ordered[ConfidenceStats]{},
	}

	for _, f := range fields {
		values := f.Value
		s.TotalUniqueValues += len(values)

		if len(values) > 1 {
			samples := make([]string, 0, sampleValues)
			for _, v := range values[:min(sampleValues, len(values))] {
				samples = append(samples, v.Value)
			}
			s.InconsistenciesFound = append(s.InconsistenciesFound, Inconsistency{
				Field:      f.Key,
				ValueCount: len(values),
				Values:     samples,
			})
		}

		if len(values) == 0 {
			continue
		}
		top := values[0]
		s.MostCommonValues = append(s.MostCommonValues, Entry[MostCommon]{
			Key: f.Key,
			Value: MostCommon{
				Value:         top.Value,
				Occurrences:   top.Occurrences,
				WeightedScore: top.WeightedScore,
			},
		})

		stats := ConfidenceStats{MinConfidence: math.Inf(1), MaxConfidence: math.Inf(-1)}
		var sum float64
		for _, v := range values {
			for _, inst := range v.Instances {
				sum += inst.Confidence
				stats.MinConfidence = math.Min(stats.MinConfidence, inst.Confidence)
				stats.MaxConfidence = math.Max(stats.MaxConfidence, inst.Confidence)
				stats.TotalInstances++
			}
		}
		stats.AverageConfidence = sum / float64(stats.TotalInstances)
		s.ConfidenceAnalysis = append(s.ConfidenceAnalysis, Entry[ConfidenceStats]{Key: f.Key, Value: stats})
	}
	return s
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
