// Package testutil provides mocks, fakes and helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// CommandCall records a command invocation for assertion purposes.
type CommandCall struct {
	Name string
	Args []string
}

// CommandHandler computes a response for a command. handled=false falls back
// to the canned responses.
type CommandHandler func(ctx context.Context, name string, args []string) (out []byte, err error, handled bool)

// MockRunner returns canned responses keyed by "name arg1 arg2 ...". A key
// also matches any command it is a prefix of. All calls are recorded.
type MockRunner struct {
	mu        sync.Mutex
	responses map[string][]byte
	errors    map[string]error
	calls     []CommandCall
	Handler   CommandHandler
}

// NewMockRunner creates an empty MockRunner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		responses: make(map[string][]byte),
		errors:    make(map[string]error),
	}
}

// Run records the call and returns the configured response.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, CommandCall{Name: name, Args: append([]string(nil), args...)})
	handler := m.Handler
	m.mu.Unlock()

	if handler != nil {
		if out, err, handled := handler(ctx, name, args); handled {
			return out, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := commandKey(name, args)
	if err, ok := m.errors[key]; ok {
		return nil, err
	}
	if out, ok := m.responses[key]; ok {
		return out, nil
	}
	for k, err := range m.errors {
		if strings.HasPrefix(key, k) {
			return nil, err
		}
	}
	for k, out := range m.responses {
		if strings.HasPrefix(key, k) {
			return out, nil
		}
	}
	return nil, fmt.Errorf("unexpected command: %s", key)
}

// SetResponse configures the output for a command.
func (m *MockRunner) SetResponse(name string, args []string, out []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[commandKey(name, args)] = out
}

// SetError configures a failure for a command.
func (m *MockRunner) SetError(name string, args []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[commandKey(name, args)] = err
}

// Calls returns a copy of the recorded calls.
func (m *MockRunner) Calls() []CommandCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CommandCall(nil), m.calls...)
}

// CallCount returns how many times name was run.
func (m *MockRunner) CallCount(name string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Name == name {
			n++
		}
	}
	return n
}

func commandKey(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
