package answer

import (
	"context"
	"sync"
)

// MockGenerator replays scripted completions for tests. With no script it
// echoes a canned answer long enough to pass validation.
type MockGenerator struct {
	mu      sync.Mutex
	script  []string
	err     error
	calls   int
	prompts []string
}

// NewMockGenerator returns a generator that yields the given completions in
// order, repeating the last one once the script runs out.
func NewMockGenerator(script ...string) *MockGenerator {
	return &MockGenerator{script: script}
}

// FailWith makes every call return err.
func (m *MockGenerator) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many completions were requested.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPrompt returns the most recent prompt, or "" before any call.
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.script) == 0 {
		return "This canned answer is long enough to be accepted by validation.", nil
	}
	i := m.calls - 1
	if i >= len(m.script) {
		i = len(m.script) - 1
	}
	return m.script[i], nil
}

func (m *MockGenerator) Close() error { return nil }
