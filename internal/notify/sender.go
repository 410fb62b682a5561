// Package notify delivers the transactional emails of the credential
// lifecycle: verification links, password reset links and API key expiry
// reminders. Delivery goes through a Sender (SMTP or log) and every destination
// is checked against a Blacklist first.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/goaltracker/goaltracker/internal/config"
)

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender returns the sender selected by cfg.Backend.
func NewSender(cfg *config.NotificationsConfig) Sender {
	if cfg.Backend == "smtp" {
		return NewSMTPSender(cfg.SMTP)
	}
	return LogSender{}
}

// LogSender records the destination and subject of each message without
// delivering it. Bodies carry secret links and are not logged.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	slog.Info("notification (log backend)", "to", msg.To, "subject", msg.Subject)
	return nil
}

const defaultSMTPTimeout = 10 * time.Second

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send composes msg and delivers it. With UseTLS an implicit TLS connection is
// tried first and a plain connection is the fallback. A plain session is
// upgraded with STARTTLS whenever the server offers it. The whole exchange is
// bounded by the configured timeout and by ctx.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	tlsConfig := &tls.Config{
		ServerName: s.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}

	conn, secure, err := s.dial(ctx, addr, tlsConfig)
	if err != nil {
		return smtpErr(ctx, "dial", err)
	}
	defer conn.Close()
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return smtpErr(ctx, "set deadline", err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return smtpErr(ctx, "greeting", err)
	}
	defer c.Close()

	if !secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return smtpErr(ctx, "STARTTLS", err)
			}
		}
	}
	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return smtpErr(ctx, "auth", err)
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return smtpErr(ctx, "MAIL FROM", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return smtpErr(ctx, "RCPT TO", err)
	}
	w, err := c.Data()
	if err != nil {
		return smtpErr(ctx, "DATA", err)
	}
	if _, err := w.Write(composeMessage(s.cfg.From, msg)); err != nil {
		return smtpErr(ctx, "write", err)
	}
	if err := w.Close(); err != nil {
		return smtpErr(ctx, "end of data", err)
	}
	if err := c.Quit(); err != nil {
		return smtpErr(ctx, "QUIT", err)
	}
	return nil
}

// dial opens the connection to the relay, reporting whether it is already
// encrypted. Port 465 relays speak TLS from the first byte; anything else
// gets a plain connection.
func (s *SMTPSender) dial(ctx context.Context, addr string, tlsConfig *tls.Config) (net.Conn, bool, error) {
	d := &net.Dialer{}
	if s.cfg.UseTLS {
		td := &tls.Dialer{NetDialer: d, Config: tlsConfig}
		conn, err := td.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, true, nil
		}
		if ctx.Err() != nil {
			return nil, false, err
		}
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	return conn, false, err
}

// smtpErr names the failed step and prefers the context error once the
// deadline has passed or the caller has gone away.
func smtpErr(ctx context.Context, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("smtp %s: %w", step, ctxErr)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("smtp %s: %w", step, context.DeadlineExceeded)
	}
	return fmt.Errorf("smtp %s: %w", step, err)
}

// composeMessage renders the RFC 5322 headers and body of msg.
func composeMessage(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n")
	return []byte(b.String())
}
