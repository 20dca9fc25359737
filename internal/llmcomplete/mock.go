package llmcomplete

import (
	"context"
	"fmt"
	"sync"
)

// MockCompleter is a Completer that replies with canned responses, in order. It records every request it receives.
type MockCompleter struct {
	Responses []*Response
	Errors    []error // if Errors[i] is non-nil, the i'th call returns it instead of Responses[i]

	mu       sync.Mutex
	requests []Request
}

var _ Completer = (*MockCompleter)(nil) // ensure MockCompleter is a Completer

// NewMockCompleter returns a mock that replies with responses, in order.
func NewMockCompleter(responses ...*Response) *MockCompleter {
	return &MockCompleter{Responses: responses}
}

// Complete records req and returns the next canned response or error. It errors once the canned responses run out.
func (m *MockCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := len(m.requests)
	m.requests = append(m.requests, req)

	if i < len(m.Errors) && m.Errors[i] != nil {
		return nil, m.Errors[i]
	}
	if i >= len(m.Responses) {
		return nil, fmt.Errorf("no mock response for call %d", i+1)
	}
	return m.Responses[i], nil
}

// Requests returns the requests received so far.
func (m *MockCompleter) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}
