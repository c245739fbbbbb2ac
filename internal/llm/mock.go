package llm

import (
	"context"
	"sync"
)

// MockClient permite tests sin llamar a un LLM real. Responses se consume en orden;
// cuando se agota se repite Response.
type MockClient struct {
	mu        sync.Mutex
	Response  string
	Responses []string
	Err       error
	Embedding []float32
	EmbedErr  error

	Prompts []string
	Calls   [][]Message
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	return m.Chat(ctx, []Message{{Role: "user", Content: prompt}}, Options{})
}

func (m *MockClient) Chat(_ context.Context, messages []Message, _ Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, messages)
	if len(messages) > 0 {
		m.Prompts = append(m.Prompts, messages[len(messages)-1].Content)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) > 0 {
		next := m.Responses[0]
		m.Responses = m.Responses[1:]
		return next, nil
	}
	return m.Response, nil
}

func (m *MockClient) CreateEmbedding(_ context.Context, _ string) ([]float32, error) {
	if m.EmbedErr != nil {
		return nil, m.EmbedErr
	}
	if m.Embedding == nil {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return m.Embedding, nil
}
