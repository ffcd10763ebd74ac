package email

import (
	"context"
	"errors"
	"sync"

	"github.com/zerotobillion/teapot-server/ports"
)

// MockNotifier records notifications instead of sending them. Useful
// for tests and local development.
type MockNotifier struct {
	mu         sync.Mutex
	sent       []ports.Notification
	shouldFail bool
	failErr    error
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Send records the notification, or fails if configured to.
func (m *MockNotifier) Send(_ context.Context, n ports.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFail {
		if m.failErr != nil {
			return m.failErr
		}
		return errors.New("mock notifier: send failed")
	}

	m.sent = append(m.sent, n)
	return nil
}

// Sent returns a copy of all recorded notifications.
func (m *MockNotifier) Sent() []ports.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.Notification, len(m.sent))
	copy(out, m.sent)
	return out
}

// ShouldFail configures whether subsequent sends fail.
func (m *MockNotifier) ShouldFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = fail
}

// FailWith configures the error returned by failing sends.
func (m *MockNotifier) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = true
	m.failErr = err
}

// Reset clears recorded notifications and failure state.
func (m *MockNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.shouldFail = false
	m.failErr = nil
}

var _ ports.Notifier = (*MockNotifier)(nil)
