package output

import (
	"time"

	"github.com/Veraticus/the-data-must-flow/internal/aggregate"
	"github.com/Veraticus/the-data-must-flow/internal/model"
)

type object = aggregate.Ordered[any]

type member = aggregate.Entry[any]

// FormatDocument builds the on-disk view of a document result: a summary
// block, found personal fields keyed by output key, tables, the run metadata,
// and any other result types as they are.
func FormatDocument(doc *model.DocumentResult, includeMetadata bool, now time.Time) object {
	types := make([]string, 0, len(doc.Results)+1)
	for _, r := range doc.Results {
		types = append(types, model.ResultKey(r.ExtractorType))
	}
	types = append(types, model.MetadataKey)

	out := object{{Key: "extraction_summary", Value: object{
		{Key: "total_files_processed", Value: 1},
		{Key: "processed_at", Value: now},
		{Key: "extraction_types", Value: types},
	}}}

	if r, ok := doc.Get(model.ResultKey(model.TypePersonalData)); ok {
		out = append(out, member{Key: "personalData", Value: personalEntries(r, includeMetadata)})
	}
	if r, ok := doc.Get(model.ResultKey(model.TypeTabularData)); ok {
		tables := r.Tables()
		if tables == nil {
			tables = model.Tables{}
		}
		out = append(out, member{Key: "tabularData", Value: tables})
	}
	out = append(out, member{Key: model.MetadataKey, Value: doc.Metadata})

	for _, r := range doc.Results {
		if r.ExtractorType == model.TypePersonalData || r.ExtractorType == model.TypeTabularData {
			continue
		}
		out = append(out, member{Key: model.ResultKey(r.ExtractorType), Value: r})
	}
	return out
}

func personalEntries(r *model.ExtractionResult, includeMetadata bool) []object {
	entries := []object{}
	for _, rec := range r.Records() {
		if !rec.Found {
			continue
		}
		entry := object{
			{Key: aggregate.CamelKey(rec.FieldName), Value: rec.Value},
			{Key: "confidence", Value: rec.Confidence},
		}
		if includeMetadata {
			entry = append(entry, member{Key: "extracted_at", Value: r.ExtractedAt})
		}
		entries = append(entries, entry)
	}
	return entries
}
