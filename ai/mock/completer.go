package mock

import (
	"context"
	"sync"

	"github.com/poiesic/lexmap/ai"
)

// MockCompleter is a test double for ai.Completer. Responses can be
// injected per-call via CompleteFunc or queued with EnqueueResponse; the
// default behavior returns an empty JSON object.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	CompleteFunc func(ctx context.Context, messages []ai.Message, opts ai.CompleteOptions) (string, error)

	mu        sync.Mutex
	queue     []queued
	callCount int
	lastCall  []ai.Message
}

type queued struct {
	text string
	err  error
}

// NewMockCompleter creates a mock completer.
// Returns the concrete type to allow behavior injection and assertions.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// EnqueueResponse adds a response to be returned by the next Complete
// call. Queued responses are consumed in order.
func (m *MockCompleter) EnqueueResponse(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, queued{text: text})
}

// EnqueueError adds an error to be returned by the next Complete call.
func (m *MockCompleter) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, queued{err: err})
}

// Complete returns the next queued response, or delegates to CompleteFunc,
// or returns "{}".
func (m *MockCompleter) Complete(ctx context.Context, messages []ai.Message, opts ai.CompleteOptions) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastCall = messages
	var next *queued
	if len(m.queue) > 0 {
		next = &m.queue[0]
		m.queue = m.queue[1:]
	}
	m.mu.Unlock()

	if next != nil {
		return next.text, next.err
	}
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages, opts)
	}
	return "{}", nil
}

// CallCount returns the number of Complete calls.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastMessages returns the messages of the most recent Complete call.
func (m *MockCompleter) LastMessages() []ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCall
}

// Reset clears queued responses, call counts, and injected behavior.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
	m.callCount = 0
	m.lastCall = nil
	m.CompleteFunc = nil
}
