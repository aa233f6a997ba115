// Package notify delivers transition emails. There is exactly one Sender
// interface with the concrete adapter chosen by configuration; delivery is
// at-least-once and always happens after the transition has committed.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"homeservices/pkg/config"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewSender builds the configured adapter. Provider validation happened at
// startup, so an unknown value here falls back to logging.
func NewSender(cfg config.EmailConfig, log *zap.Logger) Sender {
	if cfg.Provider == "smtp" {
		return &smtpSender{cfg: cfg}
	}
	return &logSender{log: log}
}

// logSender is the dev adapter: it records the message instead of sending it.
type logSender struct {
	log *zap.Logger
}

func (s *logSender) Send(_ context.Context, to, subject, body string) error {
	s.log.Info("email (log adapter)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("bodyBytes", len(body)),
	)
	return nil
}

// smtpSender speaks plain SMTP with STARTTLS when the server offers it.
type smtpSender struct {
	cfg config.EmailConfig
}

func (s *smtpSender) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("email: missing recipient")
	}

	// smtp has no context support; the context deadline becomes the dial and
	// connection deadline.
	var d net.Dialer
	if deadline, ok := ctx.Deadline(); ok {
		d.Timeout = time.Until(deadline)
		if d.Timeout <= 0 {
			d.Timeout = 10 * time.Second
		}
	} else {
		d.Timeout = 15 * time.Second
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("email: dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("email: new client: %w", err)
	}
	defer c.Quit()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.SMTPHost}); err != nil {
			return fmt.Errorf("email: starttls: %w", err)
		}
	}
	if s.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("email: auth: %w", err)
		}
	}
	if err := c.Mail(s.cfg.FromAddr); err != nil {
		return fmt.Errorf("email: MAIL FROM: %w", err)
	}
	if err := c.Rcpt(strings.TrimSpace(to)); err != nil {
		return fmt.Errorf("email: RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("email: DATA: %w", err)
	}
	msg := buildMessage(s.cfg.FromName, s.cfg.FromAddr, to, subject, body)
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("email: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("email: close data: %w", err)
	}
	return nil
}

func buildMessage(fromName, fromAddr, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, fromAddr)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
