package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/the-data-must-flow/internal/llm"
	"github.com/Veraticus/the-data-must-flow/internal/model"
)

// fallbackFieldConfidence is assigned to values recovered by the line scan.
const fallbackFieldConfidence = 0.6

var personalIndicators = []string{
	"name", "address", "phone", "email", "ssn", "social security",
	"date of birth", "dob", "employer", "income", "salary",
}

// PersonalDataExtractor extracts the canonical personal fields used by loan
// applications.
type PersonalDataExtractor struct {
	*Base
	profile   ConfidenceProfile
	fallbacks map[string]*regexp.Regexp
}

// NewPersonalDataExtractor creates the personal-data extractor.
func NewPersonalDataExtractor(client llm.Client, profile ConfidenceProfile, logger *slog.Logger) *PersonalDataExtractor {
	fallbacks := make(map[string]*regexp.Regexp, len(PersonalFields))
	for _, field := range PersonalFields {
		fallbacks[field] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(field) + `[:\s]+([^\n]+)`)
	}

	return &PersonalDataExtractor{
		Base: NewBase(client, logger,
			"personal_data_extractor",
			model.TypePersonalData,
			"Extracts personal information fields for loan applications",
			10),
		profile:   profile,
		fallbacks: fallbacks,
	}
}

// CanProcess reports whether the text mentions any personal-data keyword.
func (e *PersonalDataExtractor) CanProcess(text string) bool {
	lower := strings.ToLower(text)
	for _, indicator := range personalIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// Extract prompts the LLM for every canonical field and returns exactly one
// record per field.
func (e *PersonalDataExtractor) Extract(ctx context.Context, text, filename string) (*model.ExtractionResult, error) {
	response, err := e.complete(ctx, e.buildPrompt(text))
	if err != nil {
		e.logger.Error("Failed to extract personal data", "filename", filename, "error", err)
		return e.FailureResult(filename, err), nil
	}

	records, mode, warnings := e.parseResponse(response)

	confidences := make([]float64, len(records))
	for i, r := range records {
		confidences[i] = r.Confidence
	}

	metadata := map[string]any{
		"fields_extracted": records.FoundCount(),
		"total_fields":     len(records),
		"source_file":      filename,
		"parse_mode":       mode,
	}
	if len(warnings) > 0 {
		metadata["schema_warnings"] = warnings
		e.logger.Debug("Personal data response deviates from expected shape",
			"filename", filename,
			"warnings", len(warnings))
	}

	return model.NewResult(e.Type(), records, meanNonZero(confidences), metadata), nil
}

// FailureResult returns all-missing records with the error in metadata.
func (e *PersonalDataExtractor) FailureResult(filename string, err error) *model.ExtractionResult {
	records := make(model.Records, 0, len(PersonalFields))
	for _, field := range PersonalFields {
		records = append(records, model.MissingRecord(field))
	}
	return model.NewResult(e.Type(), records, 0, failureMetadata(filename, err))
}

func (e *PersonalDataExtractor) buildPrompt(text string) string {
	var fields strings.Builder
	for _, field := range PersonalFields {
		fmt.Fprintf(&fields, "- %s\n", field)
	}

	return fmt.Sprintf(`Please extract the following personal details from the document below.
For each field, provide the extracted value and a confidence score (0.0 to 1.0) indicating how certain you are about the extraction.

Fields to extract:
%s
If a field is not found in the document, use "Not found" as the value and 0.0 as confidence.
If a field is found but you're uncertain about the value, use a lower confidence score.

Document content:
---
%s
---

Please respond with a JSON object where each key is a field name and each value is an object with "value" and "confidence" properties. Example:

{
  "First name": {"value": "John", "confidence": 0.9},
  "Last name": {"value": "Not found", "confidence": 0.0}
}
`, fields.String(), text)
}

// parseResponse decodes the first {...} span as JSON, falling back to a
// line scan for "<field>: value" when that fails.
func (e *PersonalDataExtractor) parseResponse(response string) (model.Records, string, []string) {
	response = llm.StripCodeFence(response)
	if span, ok := jsonSpan(response, '{', '}'); ok {
		members, err := decodeObject(span)
		if err == nil {
			return e.normalize(members), parseModeJSON, schemaWarnings(e.Type(), span)
		}
		e.logger.Warn("Failed to parse JSON from LLM response, using fallback parsing", "error", err)
	}
	return e.fallbackParse(response), parseModeFallback, nil
}

// normalize produces one record per canonical field from decoded members.
func (e *PersonalDataExtractor) normalize(members []member) model.Records {
	records := make(model.Records, 0, len(PersonalFields))
	for _, field := range PersonalFields {
		m, ok := resolveField(members, field)
		if !ok {
			records = append(records, model.MissingRecord(field))
			continue
		}
		records = append(records, e.recordFor(field, m.Value))
	}
	return records
}

// recordFor interprets either {"value": ..., "confidence": ...} or a bare value.
func (e *PersonalDataExtractor) recordFor(field string, raw any) model.ExtractionRecord {
	var (
		rawValue      any
		confidence    float64
		hasConfidence bool
	)

	if obj, ok := raw.(map[string]any); ok {
		rawValue = obj["value"]
		if c, present := obj["confidence"]; present {
			confidence, hasConfidence = parseConfidence(c)
		}
	} else {
		rawValue = raw
	}

	text, ok := stringify(rawValue)
	if !ok {
		return model.MissingRecord(field)
	}
	value, found := CleanValue(text)
	if !found {
		return model.MissingRecord(field)
	}

	confidence = clamp(confidence)
	if !hasConfidence || confidence == 0 {
		confidence = e.profile.Score(field, value)
	}
	return model.FoundRecord(field, value, confidence)
}

func (e *PersonalDataExtractor) fallbackParse(response string) model.Records {
	records := make(model.Records, 0, len(PersonalFields))
	for _, field := range PersonalFields {
		match := e.fallbacks[field].FindStringSubmatch(response)
		if match == nil {
			records = append(records, model.MissingRecord(field))
			continue
		}
		value, found := CleanValue(match[1])
		if !found {
			records = append(records, model.MissingRecord(field))
			continue
		}
		records = append(records, model.FoundRecord(field, value, fallbackFieldConfidence))
	}
	return records
}
