package mail

import (
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/emersion/go-imap/client"

	"mailhaven/utils"
)

// CheckConfig is a mailbox configuration to probe before it is saved.
type CheckConfig struct {
	Email    string
	Password string
	IMAPHost string
	IMAPPort int
	SMTPHost string
	SMTPPort int
}

// CheckConnection verifies a mailbox configuration end to end: an IMAP
// login followed by a logout for receive-side reachability, then an
// SMTP connect and auth for send-side reachability. It succeeds only
// when both halves do.
func CheckConnection(cfg CheckConfig) error {
	if err := checkIMAP(cfg); err != nil {
		return err
	}
	return checkSMTP(cfg)
}

func checkIMAP(cfg CheckConfig) error {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort), nil)
	if err != nil {
		return &utils.TransportError{Op: "imap dial", Err: err}
	}
	if err := c.Login(cfg.Email, cfg.Password); err != nil {
		c.Logout()
		return &utils.TransportError{Op: "imap login", Err: err}
	}
	if err := c.Logout(); err != nil {
		return &utils.TransportError{Op: "imap logout", Err: err}
	}
	return nil
}

func checkSMTP(cfg CheckConfig) error {
	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)

	tlsConn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.SMTPHost})
	if err != nil {
		return &utils.TransportError{Op: "smtp dial", Err: err}
	}
	c, err := smtp.NewClient(tlsConn, cfg.SMTPHost)
	if err != nil {
		tlsConn.Close()
		return &utils.TransportError{Op: "smtp handshake", Err: err}
	}
	defer c.Close()

	auth := smtp.PlainAuth("", cfg.Email, cfg.Password, cfg.SMTPHost)
	if err := c.Auth(auth); err != nil {
		return &utils.TransportError{Op: "smtp auth", Err: err}
	}
	if err := c.Noop(); err != nil {
		return &utils.TransportError{Op: "smtp verify", Err: err}
	}
	return c.Quit()
}
