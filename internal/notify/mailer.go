package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/config"
)

// Mailer sends notifications over SMTP. When notifications are disabled
// it logs the message instead of sending, so the engine behaves the same
// in development and production.
type Mailer struct {
	cfg    config.NotifyConfig
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var _ Notifier = (*Mailer)(nil)

// NewMailer creates an SMTP-backed notifier.
func NewMailer(cfg config.NotifyConfig, logger *zap.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		logger: logger,
		send:   smtp.SendMail,
	}
}

// Send delivers one message with optional file attachments.
func (m *Mailer) Send(ctx context.Context, recipient, subject, body string, attachments []string) error {
	if !m.cfg.Enabled {
		m.logger.Info("Notification suppressed (notify disabled)",
			zap.String("recipient", recipient),
			zap.String("subject", subject),
			zap.Int("attachments", len(attachments)))
		return nil
	}
	if recipient == "" {
		recipient = m.cfg.Recipient
	}

	msg, err := m.buildMessage(recipient, subject, body, attachments)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	}

	if err := m.send(addr, auth, m.cfg.From, []string{recipient}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", recipient, err)
	}

	m.logger.Info("Notification sent",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.Int("attachments", len(attachments)))
	return nil
}

// buildMessage assembles a multipart MIME message with base64-encoded
// attachments.
func (m *Mailer) buildMessage(recipient, subject, body string, attachments []string) ([]byte, error) {
	const boundary = "stok-notify-boundary"

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", recipient)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")

	for _, path := range attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", path, err)
		}
		name := filepath.Base(path)

		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		buf.WriteString("Content-Type: application/octet-stream\r\n")
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", name)

		encoded := base64.StdEncoding.EncodeToString(data)
		for len(encoded) > 76 {
			buf.WriteString(encoded[:76])
			buf.WriteString("\r\n")
			encoded = encoded[76:]
		}
		buf.WriteString(encoded)
		buf.WriteString("\r\n")
	}

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}
