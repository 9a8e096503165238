package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnthropicClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		want    requestSettings
		wantErr bool
	}{
		{
			name:   "defaults",
			config: Config{APIKey: "test-key"},
			want:   requestSettings{model: DefaultModel, temperature: DefaultTemperature, maxTokens: DefaultMaxTokens},
		},
		{
			name:    "missing API key",
			config:  Config{},
			wantErr: true,
		},
		{
			name: "custom model and settings",
			config: Config{
				APIKey:      "test-key",
				Model:       "claude-3-opus-20240229",
				Temperature: Float(0.5),
				MaxTokens:   200,
			},
			want: requestSettings{model: "claude-3-opus-20240229", temperature: 0.5, maxTokens: 200},
		},
		{
			name:   "zero temperature is kept",
			config: Config{APIKey: "test-key", Temperature: Float(0)},
			want:   requestSettings{model: DefaultModel, temperature: 0, maxTokens: DefaultMaxTokens},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newAnthropicClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, client.defaults)
			assert.Equal(t, anthropicBaseURL, client.baseURL)
		})
	}
}

func TestAnthropicClient_Complete(t *testing.T) {
	tests := []struct {
		name         string
		request      Request
		response     string
		statusCode   int
		wantText     string
		wantModel    string
		wantMaxToken float64
		wantErr      bool
	}{
		{
			name:         "successful completion uses defaults",
			request:      Request{Prompt: "Extract fields"},
			response:     `{"content":[{"type":"text","text":"{\"First name\":\"John\"}"}]}`,
			statusCode:   http.StatusOK,
			wantText:     `{"First name":"John"}`,
			wantModel:    DefaultModel,
			wantMaxToken: DefaultMaxTokens,
		},
		{
			name:         "request overrides model and tokens",
			request:      Request{Prompt: "Extract tables", Model: "claude-3-5-sonnet-latest", MaxTokens: 1000},
			response:     `{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}]}`,
			statusCode:   http.StatusOK,
			wantText:     "part one part two",
			wantModel:    "claude-3-5-sonnet-latest",
			wantMaxToken: 1000,
		},
		{
			name:       "API error",
			request:    Request{Prompt: "x"},
			response:   `{"error":{"type":"invalid_request_error"}}`,
			statusCode: http.StatusBadRequest,
			wantErr:    true,
		},
		{
			name:       "empty content",
			request:    Request{Prompt: "x"},
			response:   `{"content":[]}`,
			statusCode: http.StatusOK,
			wantErr:    true,
		},
		{
			name:       "invalid JSON",
			request:    Request{Prompt: "x"},
			response:   `not json`,
			statusCode: http.StatusOK,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/messages", r.URL.Path)
				assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
				assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
			require.NoError(t, err)

			text, err := client.Complete(context.Background(), tt.request)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantModel, got["model"])
			assert.InDelta(t, tt.wantMaxToken, got["max_tokens"], 0)
			assert.InDelta(t, DefaultTemperature, got["temperature"], 1e-9)

			messages, ok := got["messages"].([]any)
			require.True(t, ok)
			require.Len(t, messages, 1)
			assert.Equal(t, "user", messages[0].(map[string]any)["role"])
		})
	}
}

func TestAnthropicClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Complete(ctx, Request{Prompt: "x"})
	require.Error(t, err)
}
