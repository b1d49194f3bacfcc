package email

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/resume-analyzer/internal/config"
)

// SMTPSender delivers mail through an SMTP relay with PLAIN auth. The
// connection is upgraded with STARTTLS when the server offers it.
type SMTPSender struct {
	cfg      config.SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender returns a sender for one relay.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Host
	}
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}
}

func (s *SMTPSender) Name() string { return "smtp:" + s.cfg.Name }

func (s *SMTPSender) Send(ctx context.Context, from string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	user := s.cfg.Username
	if user == "" {
		user = from
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	auth := smtp.PlainAuth("", user, s.cfg.Password, s.cfg.Host)
	if err := s.sendMail(addr, auth, from, msg.To, formatMessage(from, msg, time.Now())); err != nil {
		return fmt.Errorf("failed to send via %s: %w", s.cfg.Name, err)
	}
	return nil
}

func formatMessage(from string, msg Message, now time.Time) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&sb, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&sb, "Date: %s\r\n", now.Format(time.RFC1123Z))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(sb.String())
}
