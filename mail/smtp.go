// Package mail is the transport collaborator: an SMTP sender used by
// the delivery scheduler and a connection checker used when accounts
// are added.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"math/rand"
	"net"
	"net/smtp"
	"os"
	"time"

	"mailhaven/config"
	"mailhaven/utils"
)

// Message is an outgoing email. Text is always sent; HTML, when set,
// rides alongside in a multipart/alternative body.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message, blocking until the transport accepts or
// rejects it.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends messages through a single configured SMTP mailbox.
type SMTPSender struct {
	host        string
	port        int
	username    string
	password    string
	from        string
	useStartTLS bool
}

// NewSMTPSender builds a sender from the shared relay configuration.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		host:        cfg.Host,
		port:        cfg.GetPort(),
		username:    cfg.Username,
		password:    cfg.Password,
		from:        cfg.Sender(),
		useStartTLS: cfg.UseSTARTTLS,
	}
}

// Send delivers one message. Any failure comes back as a
// *utils.TransportError naming the SMTP phase that broke. The context
// deadline bounds the whole exchange, including dial.
func (c *SMTPSender) Send(ctx context.Context, msg Message) error {
	if c.host == "" || c.username == "" || c.password == "" {
		return &utils.TransportError{Op: "config", Err: fmt.Errorf("smtp relay is not configured")}
	}

	client, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	auth := smtp.PlainAuth("", c.username, c.password, c.host)
	if err := client.Auth(auth); err != nil {
		return &utils.TransportError{Op: "auth", Err: err}
	}

	if err := client.Mail(c.from); err != nil {
		return &utils.TransportError{Op: "mail from", Err: err}
	}
	if err := client.Rcpt(msg.To); err != nil {
		return &utils.TransportError{Op: "rcpt to", Err: err}
	}

	writer, err := client.Data()
	if err != nil {
		return &utils.TransportError{Op: "data", Err: err}
	}
	if _, err := writer.Write(c.buildBody(msg)); err != nil {
		return &utils.TransportError{Op: "write", Err: err}
	}
	if err := writer.Close(); err != nil {
		return &utils.TransportError{Op: "data close", Err: err}
	}

	if err := client.Quit(); err != nil {
		return &utils.TransportError{Op: "quit", Err: err}
	}
	return nil
}

// dial opens the connection, implicit TLS on 465 or plaintext then
// STARTTLS otherwise. The context deadline is pushed down onto the
// socket so a hung server cannot stall the scheduler's whole batch.
func (c *SMTPSender) dial(ctx context.Context) (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	dialer := &net.Dialer{}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &utils.TransportError{Op: "dial", Err: err}
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if !c.useStartTLS && c.port == 465 {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: c.host})
		client, err := smtp.NewClient(tlsConn, c.host)
		if err != nil {
			conn.Close()
			return nil, &utils.TransportError{Op: "handshake", Err: err}
		}
		return client, nil
	}

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		conn.Close()
		return nil, &utils.TransportError{Op: "handshake", Err: err}
	}
	if err := client.Hello(config.GetDomainFromEmail(c.from)); err != nil {
		client.Close()
		return nil, &utils.TransportError{Op: "hello", Err: err}
	}
	if err := client.StartTLS(&tls.Config{ServerName: c.host}); err != nil {
		client.Close()
		return nil, &utils.TransportError{Op: "starttls", Err: err}
	}
	return client, nil
}

// buildBody assembles headers plus a plain or multipart/alternative body.
func (c *SMTPSender) buildBody(msg Message) []byte {
	var buf bytes.Buffer
	altBoundary := fmt.Sprintf("alt-%x", rand.Int63())

	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "From: %s\r\n", c.from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "Message-ID: <%d.%d@%s>\r\n", time.Now().UnixNano(), os.Getpid(), c.host)
	buf.WriteString("MIME-Version: 1.0\r\n")

	if msg.HTML != "" {
		fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", altBoundary)
		fmt.Fprintf(&buf, "--%s\r\n", altBoundary)
		buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
		fmt.Fprintf(&buf, "%s\r\n", msg.Text)
		fmt.Fprintf(&buf, "--%s\r\n", altBoundary)
		buf.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
		fmt.Fprintf(&buf, "%s\r\n", msg.HTML)
		fmt.Fprintf(&buf, "--%s--\r\n", altBoundary)
	} else {
		buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
		buf.WriteString(msg.Text)
	}

	return buf.Bytes()
}
