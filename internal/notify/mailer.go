package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/biztrack/biztrack-server/internal/config"
)

// Mailer sends plain-text email over SMTP. Delivery is best-effort:
// failures are logged, never retried.
type Mailer struct {
	cfg *config.SMTPConfig
}

// NewMailer creates a mailer from SMTP config.
func NewMailer(cfg *config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg != nil && m.cfg.Host != ""
}

// Send delivers one message. Returns an error for callers that log it; no
// caller treats a send failure as fatal.
func (m *Mailer) Send(recipient, subject, body string) error {
	if !m.Enabled() {
		return fmt.Errorf("smtp not configured")
	}
	if recipient == "" {
		return fmt.Errorf("recipient is required")
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{recipient}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", recipient, err)
	}

	return nil
}

// SendAsync delivers in the background, logging any failure.
func (m *Mailer) SendAsync(recipient, subject, body string) {
	go func() {
		if err := m.Send(recipient, subject, body); err != nil {
			log.Warn().Err(err).Str("recipient", recipient).Msg("email delivery failed")
		}
	}()
}
