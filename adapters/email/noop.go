package email

import (
	"context"

	"github.com/zerotobillion/teapot-server/ports"
)

// NoopNotifier discards every notification. Used when no notifier is
// configured; the stop flow treats a nil-error send as success.
type NoopNotifier struct{}

// NewNoopNotifier creates a new no-op notifier.
func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

// Send discards the notification.
func (NoopNotifier) Send(context.Context, ports.Notification) error {
	return nil
}

var _ ports.Notifier = (*NoopNotifier)(nil)
