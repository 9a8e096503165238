// Package extract turns document text into structured records by prompting an
// LLM and parsing its response, falling back to deterministic heuristics when
// the response is not usable JSON.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/Veraticus/the-data-must-flow/internal/llm"
	"github.com/Veraticus/the-data-must-flow/internal/model"
)

// DefaultPriority is used by extractors that do not declare one.
const DefaultPriority = 100

// Extractor is a pluggable unit producing one category of structured data.
//
// Extract reports recoverable failures (LLM errors, unusable responses) inside
// the returned result's metadata and returns a nil error. A non-nil error or a
// panic is treated by the pipeline as that extractor failing.
type Extractor interface {
	Name() string
	Type() string
	Description() string
	Priority() int
	CanProcess(text string) bool
	Extract(ctx context.Context, text, filename string) (*model.ExtractionResult, error)
	SetModelConfig(cfg ModelConfig)
}

// FailureReporter is implemented by extractors that can describe a failed run
// with their own empty payload.
type FailureReporter interface {
	FailureResult(filename string, err error) *model.ExtractionResult
}

// ModelConfig updates the LLM settings of an extractor. Zero fields are left
// unchanged.
type ModelConfig struct {
	Temperature *float64
	Model       string
	MaxTokens   int
}

// Base carries identity and LLM settings shared by the built-in extractors.
type Base struct {
	client        llm.Client
	logger        *slog.Logger
	name          string
	extractorType string
	description   string
	model         string
	priority      int
	maxTokens     int
	temperature   float64
	mu            sync.RWMutex
}

// NewBase creates a Base with the default model settings.
func NewBase(client llm.Client, logger *slog.Logger, name, extractorType, description string, priority int) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	if priority == 0 {
		priority = DefaultPriority
	}
	return &Base{
		client:        client,
		logger:        logger.With("extractor", name),
		name:          name,
		extractorType: extractorType,
		description:   description,
		priority:      priority,
		model:         llm.DefaultModel,
		maxTokens:     llm.DefaultMaxTokens,
		temperature:   llm.DefaultTemperature,
	}
}

// Name returns the registry name.
func (b *Base) Name() string { return b.name }

// Type returns the extraction type tag.
func (b *Base) Type() string { return b.extractorType }

// Description returns a human-readable description.
func (b *Base) Description() string { return b.description }

// Priority returns the run order; lower runs first.
func (b *Base) Priority() int { return b.priority }

// CanProcess accepts every document.
func (b *Base) CanProcess(string) bool { return true }

// SetModelConfig applies the non-zero fields of cfg.
func (b *Base) SetModelConfig(cfg ModelConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cfg.Model != "" {
		b.model = cfg.Model
	}
	if cfg.MaxTokens > 0 {
		b.maxTokens = cfg.MaxTokens
	}
	if cfg.Temperature != nil {
		b.temperature = *cfg.Temperature
	}
}

// Settings returns the current model, token budget, and temperature.
func (b *Base) Settings() (string, int, float64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model, b.maxTokens, b.temperature
}

// complete sends prompt to the LLM with the current settings.
func (b *Base) complete(ctx context.Context, prompt string) (string, error) {
	if b.client == nil {
		return "", fmt.Errorf("%s has no LLM client", b.name)
	}

	modelName, maxTokens, temperature := b.Settings()
	text, err := b.client.Complete(ctx, llm.Request{
		Model:       modelName,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	return text, nil
}

// failureMetadata is the metadata carried by a degraded result.
func failureMetadata(filename string, err error) map[string]any {
	return map[string]any{
		"error":       err.Error(),
		"source_file": filename,
	}
}

// meanNonZero averages the positive values, returning 0 when there are none.
func meanNonZero(values []float64) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
