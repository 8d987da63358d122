package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simpleheberg/simplebackup/internal/config"
)

func TestSendSummary_DisabledIsNoOp(t *testing.T) {
	m := New(config.NotificationConfig{Enabled: false}, nil)
	assert.NoError(t, m.SendSummary("subject", "body"))
}

func TestSendSummary_UnreachableServer(t *testing.T) {
	m := New(config.NotificationConfig{
		Enabled:  true,
		Email:    "admin@example.com",
		SMTPHost: "127.0.0.1",
		SMTPPort: 1, // nothing listens here
		From:     "backup@example.com",
	}, nil)
	assert.Error(t, m.SendSummary("subject", "body"))
}
