package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	defaults := requestSettings{model: DefaultModel, temperature: DefaultTemperature, maxTokens: DefaultMaxTokens}

	tests := []struct {
		name    string
		request Request
		want    requestSettings
	}{
		{
			name: "empty request keeps defaults",
			want: defaults,
		},
		{
			name:    "explicit zero temperature overrides default",
			request: Request{Temperature: Float(0)},
			want:    requestSettings{model: DefaultModel, temperature: 0, maxTokens: DefaultMaxTokens},
		},
		{
			name:    "all overrides",
			request: Request{Model: "gpt-4o", Temperature: Float(0.7), MaxTokens: 50},
			want:    requestSettings{model: "gpt-4o", temperature: 0.7, maxTokens: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolve(tt.request, defaults))
		})
	}
}
