package notify

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/simpleheberg/simplebackup/internal/config"
	"github.com/simpleheberg/simplebackup/internal/logger"
)

// Mailer sends the optional run-summary email. A disabled mailer is a
// no-op so callers never need to branch.
type Mailer struct {
	cfg config.NotificationConfig
	log logger.Logger
}

// New returns a Mailer for the notification settings.
func New(cfg config.NotificationConfig, log logger.Logger) *Mailer {
	if log == nil {
		log = logger.Global()
	}
	return &Mailer{cfg: cfg, log: log}
}

// SendSummary emails the run summary to the configured recipient. Send
// failures are the caller's to log; they never affect the exit status.
func (m *Mailer) SendSummary(subject, body string) error {
	if !m.cfg.Enabled {
		return nil
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.SMTPUser
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", m.cfg.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth sasl.Client
	if m.cfg.SMTPUser != "" {
		auth = sasl.NewPlainClient("", m.cfg.SMTPUser, m.cfg.SMTPPassword)
	}

	addr := net.JoinHostPort(m.cfg.SMTPHost, strconv.Itoa(m.cfg.SMTPPort))
	m.log.Info("sending run summary",
		"to", m.cfg.Email,
		"smtp", addr,
	)
	if err := smtp.SendMail(addr, auth, from, []string{m.cfg.Email}, strings.NewReader(msg.String())); err != nil {
		return fmt.Errorf("send summary mail via %s: %w", addr, err)
	}
	return nil
}
