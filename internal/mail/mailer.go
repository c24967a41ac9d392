// Package mail delivers notification emails over SMTP. Delivery is strictly
// best-effort: callers log failures and move on, and notification persistence
// never depends on a send succeeding.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/austinmedina/spendingManagement/internal/common"
	"github.com/austinmedina/spendingManagement/internal/service"
)

// Config holds SMTP settings and the owner-to-address directory. The engine
// addresses mail by owner; the mailer resolves the actual recipient.
type Config struct {
	Recipients map[string]string
	Host       string
	From       string
	Username   string
	Password   string
	Port       int
	Enabled    bool
}

// Mailer sends plain-text notification emails.
type Mailer struct {
	cfg  Config
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a mailer. A disabled or host-less configuration is valid; Send
// then reports ErrMailNotConfigured and the caller logs and continues.
func New(cfg Config) *Mailer {
	return &Mailer{
		cfg:  cfg,
		send: smtp.SendMail,
	}
}

// Send delivers one rendered notification to the owner's configured address,
// retrying transient failures with backoff.
func (m *Mailer) Send(ctx context.Context, owner, subject, body string) error {
	if !m.cfg.Enabled || m.cfg.Host == "" {
		return common.ErrMailNotConfigured
	}
	to, ok := m.cfg.Recipients[owner]
	if !ok || to == "" {
		return fmt.Errorf("%w: no address for %s", common.ErrMailNotConfigured, owner)
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := renderMessage(from, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	return common.WithRetry(ctx, func() error {
		return m.send(addr, auth, from, []string{to}, msg)
	}, service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
	})
}

func renderMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
