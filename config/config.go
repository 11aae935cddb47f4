package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port int `toml:"port"`
}

type EncryptionConfig struct {
	Secret string `toml:"secret"` // Derived to a 32-byte AES key
}

type JWTConfig struct {
	Secret string `toml:"secret"` // For JWT signing
}

// SMTPConfig holds the shared relay used by the scheduler for
// unattended sends. Scheduled messages go out through this mailbox,
// not through the owner's connected account.
type SMTPConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	From        string `toml:"from"`
	UseSTARTTLS bool   `toml:"use_starttls"` // true for port 587, false for port 465
}

type SchedulerConfig struct {
	Enabled bool `toml:"enabled"`
}

type AuthConfig struct {
	// "sha256" keeps the legacy keyed-hash format; "bcrypt" switches
	// new hashes to bcrypt. Verification accepts both formats either way.
	PasswordScheme string `toml:"password_scheme"`
}

// PlatformConfig names the platform-managed mail hosts assigned to
// accounts created through the IAM flow.
type PlatformConfig struct {
	IMAPHost string `toml:"imap_host"`
	SMTPHost string `toml:"smtp_host"`
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Encryption EncryptionConfig `toml:"encryption"`
	JWT        JWTConfig        `toml:"jwt"`
	SMTP       SMTPConfig       `toml:"smtp"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
	Auth       AuthConfig       `toml:"auth"`
	Platform   PlatformConfig   `toml:"platform"`

	DataDir string `toml:"data_dir"`
}

func LoadConfig(filepath string) (*Config, error) {
	var config Config

	// Set default values
	config.Server.Port = 3000
	config.SMTP.Port = 465
	config.Scheduler.Enabled = true
	config.Auth.PasswordScheme = "sha256"
	config.Platform.IMAPHost = "imap.iam-mail.com"
	config.Platform.SMTPHost = "smtp.iam-mail.com"
	config.DataDir = "./data"

	if filepath != "" {
		if _, err := toml.DecodeFile(filepath, &config); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	// Secrets may be supplied through the environment instead of the
	// config file, so they never have to live on disk.
	applyEnvOverrides(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("MAILHAVEN_ENCRYPTION_SECRET"); v != "" {
		config.Encryption.Secret = v
	}
	if v := os.Getenv("MAILHAVEN_JWT_SECRET"); v != "" {
		config.JWT.Secret = v
	}
	if v := os.Getenv("MAILHAVEN_SMTP_HOST"); v != "" {
		config.SMTP.Host = v
	}
	if v := os.Getenv("MAILHAVEN_SMTP_USER"); v != "" {
		config.SMTP.Username = v
	}
	if v := os.Getenv("MAILHAVEN_SMTP_PASS"); v != "" {
		config.SMTP.Password = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Auth.PasswordScheme {
	case "sha256", "bcrypt":
	default:
		return fmt.Errorf("unknown password scheme %q", c.Auth.PasswordScheme)
	}
	return nil
}

// RelayConfigured reports whether the shared SMTP relay has enough
// settings for the scheduler to attempt a send.
func (c *SMTPConfig) RelayConfigured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// GetPort returns the SMTP port, defaulting by encryption mode.
func (c *SMTPConfig) GetPort() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.UseSTARTTLS {
		return 587 // STARTTLS port
	}
	return 465 // SSL/TLS port
}

// Sender returns the From address for relay sends, falling back to the
// relay username when not set explicitly.
func (c *SMTPConfig) Sender() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

// GetDomainFromEmail returns the part after '@', or "" for a malformed address.
func GetDomainFromEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
