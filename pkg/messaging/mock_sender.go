package messaging

import (
	"context"
	"sync"
)

// MockSender is an in-memory implementation of Sender for testing. It
// records every message it is given.
type MockSender struct {
	mu       sync.Mutex
	messages []*ExecMessage
}

// NewMockSender creates a new MockSender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

// SendExecMessage records the message.
func (m *MockSender) SendExecMessage(_ context.Context, msg *ExecMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of the recorded messages.
func (m *MockSender) Messages() []*ExecMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ExecMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Reset discards recorded messages.
func (m *MockSender) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// Close does nothing.
func (m *MockSender) Close() error {
	return nil
}

// Ensure MockSender implements Sender
var _ Sender = (*MockSender)(nil)
