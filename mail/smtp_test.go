package mail

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailhaven/config"
	"mailhaven/utils"
)

func TestSendFailsFastWithoutRelayConfig(t *testing.T) {
	sender := NewSMTPSender(config.SMTPConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	err := sender.Send(ctx, Message{To: "b@y.com", Subject: "hi", Text: "yo"})
	require.Error(t, err)

	var transportErr *utils.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "config", transportErr.Op)
	assert.Less(t, time.Since(start), time.Second, "unconfigured relay must not attempt a connection")
}

func TestBuildBody(t *testing.T) {
	sender := NewSMTPSender(config.SMTPConfig{
		Host:     "smtp.example.com",
		Username: "relay@example.com",
		Password: "secret",
	})

	t.Run("plain text", func(t *testing.T) {
		body := string(sender.buildBody(Message{To: "b@y.com", Subject: "hi", Text: "yo"}))
		assert.Contains(t, body, "To: b@y.com\r\n")
		assert.Contains(t, body, "Subject: hi\r\n")
		assert.Contains(t, body, "From: relay@example.com\r\n")
		assert.Contains(t, body, "Content-Type: text/plain")
		assert.Contains(t, body, "yo")
		assert.NotContains(t, body, "multipart/alternative")
	})

	t.Run("html gets a multipart body", func(t *testing.T) {
		body := string(sender.buildBody(Message{
			To: "b@y.com", Subject: "hi", Text: "yo", HTML: "<b>yo</b>",
		}))
		assert.Contains(t, body, "multipart/alternative")
		assert.Contains(t, body, "Content-Type: text/plain")
		assert.Contains(t, body, "Content-Type: text/html")
		assert.Contains(t, body, "<b>yo</b>")
	})
}
