package notify

import (
	"context"
	"net/smtp"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/config"
)

func TestSendDisabledIsNoop(t *testing.T) {
	m := NewMailer(config.NotifyConfig{Enabled: false}, zap.NewNop())
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		t.Fatal("send must not be called when notifications are disabled")
		return nil
	}

	err := m.Send(context.Background(), "buyer@example.com", "subject", "body", nil)
	assert.NoError(t, err)
}

func TestSendBuildsMultipartMessage(t *testing.T) {
	dir := t.TempDir()
	attachment := filepath.Join(dir, "po.xlsx")
	require.NoError(t, os.WriteFile(attachment, []byte("fake-sheet"), 0o644))

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	m := NewMailer(config.NotifyConfig{
		Enabled:  true,
		SMTPHost: "mail.example.com",
		SMTPPort: 587,
		From:     "agent@example.com",
	}, zap.NewNop())
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := m.Send(context.Background(), "buyer@example.com", "Urgent reorders", "2 urgent actions", []string{attachment})
	require.NoError(t, err)

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, "agent@example.com", gotFrom)
	assert.Equal(t, []string{"buyer@example.com"}, gotTo)

	body := string(gotMsg)
	assert.Contains(t, body, "Subject: Urgent reorders")
	assert.Contains(t, body, "2 urgent actions")
	assert.Contains(t, body, `filename="po.xlsx"`)
	assert.Contains(t, body, "Content-Transfer-Encoding: base64")
}

func TestSendFallsBackToConfiguredRecipient(t *testing.T) {
	var gotTo []string
	m := NewMailer(config.NotifyConfig{
		Enabled:   true,
		SMTPHost:  "mail.example.com",
		SMTPPort:  25,
		From:      "agent@example.com",
		Recipient: "purchasing@example.com",
	}, zap.NewNop())
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotTo = to
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "", "subject", "body", nil))
	assert.Equal(t, []string{"purchasing@example.com"}, gotTo)
}

func TestSendMissingAttachmentFails(t *testing.T) {
	m := NewMailer(config.NotifyConfig{
		Enabled:  true,
		SMTPHost: "mail.example.com",
		SMTPPort: 25,
		From:     "agent@example.com",
	}, zap.NewNop())
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error { return nil }

	err := m.Send(context.Background(), "buyer@example.com", "s", "b", []string{"/does/not/exist.xlsx"})
	assert.Error(t, err)
}
