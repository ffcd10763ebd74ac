// Package email provides Notifier implementations for completed-brew
// messages.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/zerotobillion/teapot-server/ports"
)

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string   // sender email address
	Receivers []string // notification recipients

	// TLS settings
	UseTLS     bool // Use STARTTLS
	SkipVerify bool // Skip TLS certificate verification (for testing)

	// Timeouts
	Timeout time.Duration
}

// DefaultSMTPConfig returns a configuration with sensible defaults.
func DefaultSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Host:    "localhost",
		Port:    25,
		From:    "noreply@localhost",
		UseTLS:  true,
		Timeout: 30 * time.Second,
	}
}

// SMTPNotifier implements ports.Notifier over SMTP. Port 465 uses
// implicit TLS; everything else dials plain and upgrades with STARTTLS
// when the server offers it.
type SMTPNotifier struct {
	config SMTPConfig
}

// NewSMTPNotifier creates a new SMTP notifier.
func NewSMTPNotifier(config SMTPConfig) (*SMTPNotifier, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if len(config.Receivers) == 0 {
		return nil, fmt.Errorf("at least one receiver is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &SMTPNotifier{config: config}, nil
}

// Send delivers the notification to every configured receiver.
func (s *SMTPNotifier) Send(ctx context.Context, n ports.Notification) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	message := s.buildMessage(n)

	if s.config.Port == 465 {
		return s.sendImplicitTLS(ctx, addr, message)
	}
	return s.sendSTARTTLS(ctx, addr, message)
}

// buildMessage assembles the RFC 5322 message bytes.
func (s *SMTPNotifier) buildMessage(n ports.Notification) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", s.config.From))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(s.config.Receivers, ";")))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", n.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(n.Message)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

// sendSTARTTLS sends the message using STARTTLS (port 587/25).
func (s *SMTPNotifier) sendSTARTTLS(ctx context.Context, addr string, message []byte) error {
	dialer := &net.Dialer{Timeout: s.config.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if s.config.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			tlsConfig := &tls.Config{
				ServerName:         s.config.Host,
				InsecureSkipVerify: s.config.SkipVerify,
			}
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}

	return s.transmit(client, message)
}

// sendImplicitTLS sends the message using implicit TLS (port 465).
func (s *SMTPNotifier) sendImplicitTLS(ctx context.Context, addr string, message []byte) error {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: s.config.Timeout},
		Config: &tls.Config{
			ServerName:         s.config.Host,
			InsecureSkipVerify: s.config.SkipVerify,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial tls: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	return s.transmit(client, message)
}

// transmit runs the SMTP envelope against an established client.
func (s *SMTPNotifier) transmit(client *smtp.Client, message []byte) error {
	if s.config.Username != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range s.config.Receivers {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(message); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return client.Quit()
}

// Ensure interface compliance.
var _ ports.Notifier = (*SMTPNotifier)(nil)
