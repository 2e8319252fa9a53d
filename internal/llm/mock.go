package llm

import (
	"context"
	"sync"
)

// MockClient permite tests sin llamar a un LLM real. Guarda las peticiones recibidas.
type MockClient struct {
	Response string
	Err      error

	mu       sync.Mutex
	Requests []Request
}

func (m *MockClient) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.Response, m.Err
}

func (m *MockClient) LastRequest() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return Request{}
	}
	return m.Requests[len(m.Requests)-1]
}
