package email

import (
	"fmt"

	"github.com/zerotobillion/teapot-server/ports"
)

// Notifier modes.
const (
	ModeNone = "none"
	ModeSMTP = "smtp"
	ModeMock = "mock"
)

// Config selects and configures a Notifier implementation.
type Config struct {
	Mode string
	SMTP SMTPConfig
}

// New builds a Notifier from config. An empty mode means none.
func New(cfg Config) (ports.Notifier, error) {
	switch cfg.Mode {
	case "", ModeNone:
		return NewNoopNotifier(), nil
	case ModeMock:
		return NewMockNotifier(), nil
	case ModeSMTP:
		return NewSMTPNotifier(cfg.SMTP)
	default:
		return nil, fmt.Errorf("unknown notifier mode: %q", cfg.Mode)
	}
}
