// Package testutil provides shared test doubles and fixtures.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/Veraticus/the-data-must-flow/internal/llm"
)

// Prompt markers that identify which built-in extractor sent a request.
const (
	PersonalPrompt = "personal details"
	TabularPrompt  = "tabular data"
)

type mockRule struct {
	err      error
	response string
	markers  []string
}

// MockLLM is a scripted llm.Client. Each rule answers prompts containing all
// of its markers; rules are checked in the order they were added.
type MockLLM struct {
	DefaultErr error
	Default    string
	rules      []mockRule
	calls      []llm.Request
	mu         sync.Mutex
}

// NewMockLLM creates a mock that answers unmatched prompts with "[]".
func NewMockLLM() *MockLLM {
	return &MockLLM{Default: "[]"}
}

// On answers prompts containing every marker with response.
func (m *MockLLM) On(response string, markers ...string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{response: response, markers: markers})
	return m
}

// OnError fails prompts containing every marker with err.
func (m *MockLLM) OnError(err error, markers ...string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{err: err, markers: markers})
	return m
}

// Complete implements llm.Client.
func (m *MockLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	for _, rule := range m.rules {
		if containsAll(req.Prompt, rule.markers) {
			if rule.err != nil {
				return "", rule.err
			}
			return rule.response, nil
		}
	}
	if m.DefaultErr != nil {
		return "", m.DefaultErr
	}
	return m.Default, nil
}

// Calls returns a copy of the requests received so far.
func (m *MockLLM) Calls() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.calls))
	copy(out, m.calls)
	return out
}

func containsAll(s string, markers []string) bool {
	for _, marker := range markers {
		if !strings.Contains(s, marker) {
			return false
		}
	}
	return true
}
