package llm

import (
	"context"
	"time"
)

// Default request settings shared by all providers.
const (
	DefaultModel       = "claude-3-haiku-20240307"
	DefaultMaxTokens   = 4000
	DefaultTemperature = 0.1
	DefaultTimeout     = 60 * time.Second
)

// Client defines the interface for LLM providers: one prompt in, one text blob out.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single-turn completion request. Zero values fall back to the
// client's configured defaults. A nil Temperature uses the client default so
// that an explicit 0 can still be requested.
type Request struct {
	Temperature *float64
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
}

// Config holds configuration for an LLM client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	CacheTTL    time.Duration
	Temperature *float64 // nil means DefaultTemperature
	MaxTokens   int
}

// requestSettings resolves per-request overrides against client defaults.
type requestSettings struct {
	model       string
	temperature float64
	maxTokens   int
}

func resolve(req Request, defaults requestSettings) requestSettings {
	out := defaults
	if req.Model != "" {
		out.model = req.Model
	}
	if req.Temperature != nil {
		out.temperature = *req.Temperature
	}
	if req.MaxTokens != 0 {
		out.maxTokens = req.MaxTokens
	}
	return out
}

// Float returns a pointer to v, for optional settings such as Temperature.
func Float(v float64) *float64 {
	return &v
}

func temperatureOrDefault(t *float64) float64 {
	if t == nil {
		return DefaultTemperature
	}
	return *t
}
