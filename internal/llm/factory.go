package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewClient creates an LLM client for the configured provider. When CacheTTL is
// positive the client caches completions; callers should Close it via io.Closer.
func NewClient(cfg Config, logger *slog.Logger) (Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = "anthropic"
	}

	var client Client
	switch provider {
	case "anthropic":
		c, err := newAnthropicClient(cfg)
		if err != nil {
			return nil, err
		}
		client = c
	case "openai":
		c, err := newOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		client = c
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	client = &loggingClient{next: client, logger: logger, provider: provider}

	if cfg.CacheTTL > 0 {
		return newCachingClient(client, provider, cfg.CacheTTL, logger), nil
	}
	return client, nil
}

// loggingClient tags each request with an ID and logs its outcome.
type loggingClient struct {
	next     Client
	logger   *slog.Logger
	provider string
}

func (c *loggingClient) Complete(ctx context.Context, req Request) (string, error) {
	requestID := uuid.NewString()
	start := time.Now()

	c.logger.Debug("Sending completion request",
		"request_id", requestID,
		"provider", c.provider,
		"prompt_chars", len(req.Prompt))

	text, err := c.next.Complete(ctx, req)
	if err != nil {
		c.logger.Warn("Completion request failed",
			"request_id", requestID,
			"provider", c.provider,
			"duration", time.Since(start),
			"error", err)
		return "", err
	}

	c.logger.Debug("Completion received",
		"request_id", requestID,
		"provider", c.provider,
		"duration", time.Since(start),
		"response_chars", len(text))
	return text, nil
}
