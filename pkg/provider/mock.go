package provider

import (
	"context"
	"sync"
)

// Mock records sent messages instead of calling out. Tests and the dry-run
// path of the send command use it.
type Mock struct {
	// Err, when set, is returned from every Send.
	Err error

	mu   sync.Mutex
	sent []MockMessage
}

// MockMessage is one recorded delivery.
type MockMessage struct {
	To   string
	Body string
}

func (m *Mock) Send(_ context.Context, to string, body string) error {
	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, MockMessage{To: to, Body: body})
	return nil
}

// Sent returns a copy of the recorded deliveries.
func (m *Mock) Sent() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MockMessage, len(m.sent))
	copy(out, m.sent)
	return out
}
