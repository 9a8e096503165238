// Package pipeline runs registered extractors against documents and collects
// their results with per-extractor run metadata.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/the-data-must-flow/internal/common"
	"github.com/Veraticus/the-data-must-flow/internal/extract"
	"github.com/Veraticus/the-data-must-flow/internal/llm"
	"github.com/Veraticus/the-data-must-flow/internal/model"
)

// ExtractorInfo describes a registered extractor.
type ExtractorInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

// Pipeline holds an ordered registry of extractors. Registry changes are safe
// to make concurrently with document processing.
type Pipeline struct {
	logger     *slog.Logger
	extractors []extract.Extractor
	mu         sync.RWMutex
}

// New creates a pipeline with the given extractors registered in order.
func New(logger *slog.Logger, extractors ...extract.Extractor) *Pipeline {
	p := &Pipeline{logger: common.LoggerOrDefault(logger)}
	for _, e := range extractors {
		p.Add(e)
	}
	return p
}

// NewDefault creates a pipeline with the personal-data and tabular-data
// extractors.
func NewDefault(client llm.Client, profile extract.ConfidenceProfile, logger *slog.Logger) *Pipeline {
	logger = common.LoggerOrDefault(logger)
	return New(logger,
		extract.NewPersonalDataExtractor(client, profile, logger),
		extract.NewTabularDataExtractor(client, logger),
	)
}

// Add registers an extractor. It reports false if one with the same name is
// already registered.
func (p *Pipeline) Add(e extract.Extractor) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, existing := range p.extractors {
		if existing.Name() == e.Name() {
			return false
		}
	}
	p.extractors = append(p.extractors, e)
	p.logger.Debug("Added extractor", "name", e.Name(), "type", e.Type())
	return true
}

// Remove unregisters the named extractor, reporting whether it was present.
func (p *Pipeline) Remove(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, e := range p.extractors {
		if e.Name() == name {
			p.extractors = slices.Delete(p.extractors, i, i+1)
			p.logger.Debug("Removed extractor", "name", name)
			return true
		}
	}
	return false
}

// List describes the registered extractors in registration order.
func (p *Pipeline) List() []ExtractorInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	infos := make([]ExtractorInfo, 0, len(p.extractors))
	for _, e := range p.extractors {
		infos = append(infos, ExtractorInfo{
			Name:        e.Name(),
			Type:        e.Type(),
			Description: e.Description(),
			Priority:    e.Priority(),
		})
	}
	return infos
}

// Names returns the registered extractor names.
func (p *Pipeline) Names() []string {
	infos := p.List()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names
}

// SetModelConfig applies cfg to every registered extractor.
func (p *Pipeline) SetModelConfig(cfg extract.ModelConfig) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, e := range p.extractors {
		e.SetModelConfig(cfg)
	}
}

// ProcessDocument runs every applicable extractor against text in ascending
// priority order (registration order breaks ties). When enabled is non-empty,
// only extractors with those names are considered. A failing or panicking
// extractor never stops the remaining ones; its entry carries a degraded
// result.
func (p *Pipeline) ProcessDocument(ctx context.Context, text, filename string, enabled []string) *model.DocumentResult {
	start := time.Now()
	doc := &model.DocumentResult{
		Filename: filename,
		Metadata: model.RunMetadata{
			Filename:      filename,
			ProcessedAt:   start,
			ExtractorsRun: []model.ExtractorRun{},
		},
	}

	active := p.activeExtractors(text, enabled)
	p.logger.Info("Starting extraction pipeline", "filename", filename, "extractors", len(active))

	for _, e := range active {
		result, run := p.runExtractor(ctx, e, text, filename)
		doc.Set(result)
		doc.Metadata.ExtractorsRun = append(doc.Metadata.ExtractorsRun, run)
		if run.Success {
			doc.Metadata.SuccessCount++
		} else {
			doc.Metadata.ErrorCount++
		}
	}

	doc.Metadata.CompletedAt = time.Now()
	doc.Metadata.TotalProcessingTime = doc.Metadata.CompletedAt.Sub(start).Seconds()

	p.logger.Info("Pipeline completed",
		"filename", filename,
		"successes", doc.Metadata.SuccessCount,
		"errors", doc.Metadata.ErrorCount,
		"duration", time.Since(start))

	return doc
}

func (p *Pipeline) activeExtractors(text string, enabled []string) []extract.Extractor {
	p.mu.RLock()
	registered := slices.Clone(p.extractors)
	p.mu.RUnlock()

	active := make([]extract.Extractor, 0, len(registered))
	for _, e := range registered {
		if len(enabled) > 0 && !slices.Contains(enabled, e.Name()) {
			continue
		}
		if !e.CanProcess(text) {
			p.logger.Debug("Extractor skipping document", "extractor", e.Name())
			continue
		}
		active = append(active, e)
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority() < active[j].Priority()
	})
	return active
}

// runExtractor times one extractor. Errors, panics, nil results, and
// self-reported failures all count as unsuccessful runs.
func (p *Pipeline) runExtractor(ctx context.Context, e extract.Extractor, text, filename string) (*model.ExtractionResult, model.ExtractorRun) {
	start := time.Now()
	run := model.ExtractorRun{Name: e.Name(), Type: e.Type()}

	p.logger.Debug("Running extractor", "extractor", e.Name(), "filename", filename)
	result, err := safeExtract(ctx, e, text, filename)
	if err == nil && result == nil {
		err = common.ErrNilResult
	}
	run.ProcessingTime = time.Since(start).Seconds()

	if err != nil {
		p.logger.Error("Extractor failed", "extractor", e.Name(), "filename", filename, "error", err)
		run.Error = err.Error()
		return failureResult(e, filename, err), run
	}

	if msg := result.Error(); msg != "" {
		run.Error = msg
		return result, run
	}

	confidence := result.Confidence
	run.Confidence = &confidence
	run.Success = true
	p.logger.Debug("Completed extractor", "extractor", e.Name(), "confidence", confidence)
	return result, run
}

func safeExtract(ctx context.Context, e extract.Extractor, text, filename string) (result *model.ExtractionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", common.ErrExtractorPanic, r)
		}
	}()
	return e.Extract(ctx, text, filename)
}

func failureResult(e extract.Extractor, filename string, err error) *model.ExtractionResult {
	if reporter, ok := e.(extract.FailureReporter); ok {
		return reporter.FailureResult(filename, err)
	}
	return model.NewResult(e.Type(), model.Items{}, 0, map[string]any{
		"error":       err.Error(),
		"source_file": filename,
	})
}

// Summarize projects a document result into extractor counts, timing, the
// result keys with non-empty data, and the mean of positive confidences.
func Summarize(doc *model.DocumentResult) model.ExtractionSummary {
	summary := model.ExtractionSummary{
		ExtractionTypesFound: []string{},
		TotalExtractors:      len(doc.Metadata.ExtractorsRun),
		SuccessfulExtractors: doc.Metadata.SuccessCount,
		FailedExtractors:     doc.Metadata.ErrorCount,
		ProcessingTime:       doc.Metadata.TotalProcessingTime,
	}

	var sum float64
	var n int
	for _, r := range doc.Results {
		if r.DataLen() > 0 {
			summary.ExtractionTypesFound = append(summary.ExtractionTypesFound, model.ResultKey(r.ExtractorType))
		}
		if r.Confidence > 0 {
			sum += r.Confidence
			n++
		}
	}
	if n > 0 {
		summary.AverageConfidence = sum / float64(n)
	}
	return summary
}

// Usable reports whether at least one extractor succeeded on the document.
func Usable(doc *model.DocumentResult) bool {
	return doc != nil && doc.Metadata.SuccessCount > 0
}
