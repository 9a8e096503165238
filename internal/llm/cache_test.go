package llm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	err   error
	text  string
	calls int
	mu    sync.Mutex
}

func (c *countingClient) Complete(_ context.Context, _ Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.text, nil
}

func TestResponseCache(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		cache := newResponseCache(5 * time.Minute)
		defer cache.close()

		_, found := cache.get("missing")
		assert.False(t, found)

		cache.set("key1", "response")
		text, found := cache.get("key1")
		assert.True(t, found)
		assert.Equal(t, "response", text)
		assert.Equal(t, 1, cache.size())
	})

	t.Run("expiration", func(t *testing.T) {
		cache := newResponseCache(50 * time.Millisecond)
		defer cache.close()

		cache.set("key2", "response")
		_, found := cache.get("key2")
		assert.True(t, found)

		time.Sleep(100 * time.Millisecond)

		_, found = cache.get("key2")
		assert.False(t, found)
	})
}

func TestCacheKey(t *testing.T) {
	base := Request{Model: "m", Prompt: "p", MaxTokens: 10, Temperature: Float(0.1)}
	assert.Equal(t, cacheKey("anthropic", base), cacheKey("anthropic", base))

	same := base
	same.Temperature = Float(0.1)
	assert.Equal(t, cacheKey("anthropic", base), cacheKey("anthropic", same))

	zero := base
	zero.Temperature = Float(0)
	unset := base
	unset.Temperature = nil
	assert.NotEqual(t, cacheKey("anthropic", zero), cacheKey("anthropic", unset))

	changed := base
	changed.Prompt = "q"
	assert.NotEqual(t, cacheKey("anthropic", base), cacheKey("anthropic", changed))
	assert.NotEqual(t, cacheKey("anthropic", base), cacheKey("openai", base))
}

func TestCachingClient(t *testing.T) {
	inner := &countingClient{text: "cached text"}
	client := newCachingClient(inner, "anthropic", time.Minute, slog.Default())
	defer func() { _ = client.Close() }()

	req := Request{Prompt: "same document"}
	for range 3 {
		text, err := client.Complete(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "cached text", text)
	}
	assert.Equal(t, 1, inner.calls)

	_, err := client.Complete(context.Background(), Request{Prompt: "other document"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachingClientDoesNotCacheFailures(t *testing.T) {
	inner := &countingClient{err: errors.New("upstream down")}
	client := newCachingClient(inner, "anthropic", time.Minute, slog.Default())
	defer func() { _ = client.Close() }()

	for range 2 {
		_, err := client.Complete(context.Background(), Request{Prompt: "x"})
		require.Error(t, err)
	}
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, client.cache.size())
}
