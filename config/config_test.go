package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "sha256", cfg.Auth.PasswordScheme)
	assert.Equal(t, "imap.iam-mail.com", cfg.Platform.IMAPHost)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 8080

[smtp]
host = "smtp.relay.example"
username = "relay@example.com"
password = "secret"
use_starttls = true
port = 587

[auth]
password_scheme = "bcrypt"
`), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "smtp.relay.example", cfg.SMTP.Host)
	assert.True(t, cfg.SMTP.RelayConfigured())
	assert.Equal(t, 587, cfg.SMTP.GetPort())
	assert.Equal(t, "relay@example.com", cfg.SMTP.Sender())
	assert.Equal(t, "bcrypt", cfg.Auth.PasswordScheme)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("MAILHAVEN_ENCRYPTION_SECRET", "env-secret")
	t.Setenv("MAILHAVEN_SMTP_HOST", "smtp.env.example")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Encryption.Secret)
	assert.Equal(t, "smtp.env.example", cfg.SMTP.Host)
}

func TestLoadConfigRejectsBadScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[auth]\npassword_scheme = \"md5\"\n"), 0600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestGetDomainFromEmail(t *testing.T) {
	assert.Equal(t, "gmail.com", GetDomainFromEmail("x@gmail.com"))
	assert.Equal(t, "gmail.com", GetDomainFromEmail("x@GMAIL.com"))
	assert.Equal(t, "", GetDomainFromEmail("no-at-sign"))
	assert.Equal(t, "", GetDomainFromEmail("trailing@"))
}
