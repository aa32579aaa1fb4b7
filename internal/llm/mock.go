package llm

import (
	"context"
	"strings"
	"sync"
)

// MockGenerator is a test implementation of Generator. Responses are chosen by
// the first key contained in the prompt; Err, when set, is returned for every call.
type MockGenerator struct {
	Err       error
	Responses map[string]string
	Default   string
	Panic     bool
	prompts   []string
	mu        sync.Mutex
}

// NewMockGenerator creates a mock that answers def for every prompt.
func NewMockGenerator(def string) *MockGenerator {
	return &MockGenerator{Default: def, Responses: make(map[string]string)}
}

// Generate records the prompt and returns the configured response.
func (m *MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)

	if m.Panic {
		panic("mock generator panic")
	}
	if m.Err != nil {
		return "", m.Err
	}
	for key, response := range m.Responses {
		if strings.Contains(prompt, key) {
			return response, nil
		}
	}
	return m.Default, nil
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of the recorded prompts.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
