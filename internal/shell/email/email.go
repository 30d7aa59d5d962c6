// Package email provides outbound notification mail for the portal.
package email

import (
	"context"
	"log/slog"
	"sync"
)

// Message is one outbound mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends portal notifications. Failures are reported to the caller,
// which decides whether they abort the operation; a committed state change is
// never rolled back because its notification failed.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// =============================================================================
// Log Mailer
// =============================================================================

// LogMailer logs mail instead of sending it. Used in dev mode.
type LogMailer struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLogMailer creates a mailer that records and logs messages.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	m.logger.Info("dev mail: send",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

// Sent returns a copy of every message sent so far.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}
