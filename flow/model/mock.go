package model

import (
	"context"
	"sync"
)

// MockChatModel is a scripted ChatModel for tests.
//
// Responses are returned in order; once exhausted, the last response
// repeats. Calls records every conversation received.
type MockChatModel struct {
	mu        sync.Mutex
	Responses []ChatOut
	Err       error
	Calls     [][]Message
	next      int
}

// Chat implements ChatModel.
func (m *MockChatModel) Chat(_ context.Context, messages []Message) (ChatOut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]Message, len(messages))
	copy(copied, messages)
	m.Calls = append(m.Calls, copied)

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	out := m.Responses[m.next]
	if m.next < len(m.Responses)-1 {
		m.next++
	}
	return out, nil
}
