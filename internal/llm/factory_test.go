package llm

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name       string
		config     Config
		wantCloser bool
		wantErr    bool
	}{
		{name: "anthropic by default", config: Config{APIKey: "k"}},
		{name: "openai", config: Config{Provider: "OpenAI", APIKey: "k"}},
		{name: "cached", config: Config{Provider: "anthropic", APIKey: "k", CacheTTL: time.Minute}, wantCloser: true},
		{name: "unsupported provider", config: Config{Provider: "cohere", APIKey: "k"}, wantErr: true},
		{name: "missing key", config: Config{Provider: "anthropic"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config, nil)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			closer, ok := client.(io.Closer)
			assert.Equal(t, tt.wantCloser, ok)
			if ok {
				require.NoError(t, closer.Close())
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: `  {"a":1} `, want: `{"a":1}`},
		{name: "json fence", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", input: "```\n[1,2]\n```", want: `[1,2]`},
		{name: "single line fence", input: "```{\"a\":1}```", want: `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.input))
		})
	}
}
