package llm

import (
	"context"
	"sync"
)

// MockLLM is a scripted LLMClient for tests. Queued responses are returned in
// order; once the queue is empty Response/Err are returned.
type MockLLM struct {
	Response      string
	Err           error
	ResponseQueue []MockResponse

	mu    sync.Mutex
	calls [][]Message
}

type MockResponse struct {
	Content string
	Err     error
}

func (m *MockLLM) Generate(ctx context.Context, messages ...Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, messages)
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp.Content, resp.Err
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Calls returns the messages of every Generate call so far.
func (m *MockLLM) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]Message(nil), m.calls...)
}
