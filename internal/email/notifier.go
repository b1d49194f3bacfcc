// Package email delivers account and feedback mail. Messages are always
// written to a local backup file first, then handed to the configured senders
// in order until one succeeds.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/logger"
)

// ErrUndelivered is returned when no sender accepted a message. The message
// is still present in the backup file.
var ErrUndelivered = errors.New("email not delivered")

// Message kinds.
const (
	KindFeedback     = "feedback"
	KindVerification = "verification"
	KindSummary      = "summary"
)

// Message is an outgoing plain-text email.
type Message struct {
	Kind    string
	To      []string
	Subject string
	Body    string
	Meta    map[string]string
}

// Sender delivers a message through one transport.
type Sender interface {
	Name() string
	Send(ctx context.Context, from string, msg Message) error
}

// Notifier writes messages to the backup and tries each sender in turn.
type Notifier struct {
	from       string
	feedbackTo string
	backup     *Backup
	senders    []Sender
	now        func() time.Time
	log        *logger.Logger
}

// NewNotifier builds a notifier from explicit parts.
func NewNotifier(from, feedbackTo string, backup *Backup, senders []Sender, log *logger.Logger) *Notifier {
	return &Notifier{
		from:       from,
		feedbackTo: feedbackTo,
		backup:     backup,
		senders:    senders,
		now:        time.Now,
		log:        logger.OrNop(log).With("component", "email"),
	}
}

// New builds a notifier from configuration. SMTP relays without a password
// are skipped; SendGrid is appended when an API key is set.
func New(cfg config.EmailConfig, log *logger.Logger) *Notifier {
	var senders []Sender
	for _, relay := range cfg.SMTP {
		if strings.TrimSpace(relay.Password) == "" {
			continue
		}
		senders = append(senders, NewSMTPSender(relay))
	}
	if key := strings.TrimSpace(cfg.SendGridAPIKey); key != "" {
		senders = append(senders, NewSendGridSender(SendGridConfig{APIKey: key}))
	}
	return NewNotifier(cfg.From, cfg.FeedbackTo, NewBackup(cfg.BackupPath), senders, log)
}

// Backup returns the local message store.
func (n *Notifier) Backup() *Backup { return n.backup }

// Send backs up msg and delivers it through the first sender that accepts
// it. A backup failure is logged and does not stop delivery.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("email: no recipients")
	}
	if n.backup != nil {
		err := n.backup.Append(BackupEntry{
			Kind:    msg.Kind,
			To:      msg.To,
			Subject: msg.Subject,
			Body:    msg.Body,
			Meta:    msg.Meta,
			SavedAt: n.now().UTC(),
		})
		if err != nil {
			n.log.Error("Email backup failed", "kind", msg.Kind, "error", err)
		}
	}

	var lastErr error
	for _, s := range n.senders {
		if err := ctx.Err(); err != nil {
			return err
		}
		n.log.Info("Sending email", "sender", s.Name(), "kind", msg.Kind)
		if err := s.Send(ctx, n.from, msg); err != nil {
			n.log.Warn("Email sender failed", "sender", s.Name(), "error", err)
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrUndelivered, lastErr)
	}
	n.log.Warn("No email sender configured, message kept in backup", "kind", msg.Kind)
	return ErrUndelivered
}

// FeedbackMeta describes where a piece of feedback came from.
type FeedbackMeta struct {
	UserID    string
	Email     string
	IPAddress string
	UserAgent string
	Referer   string
	Time      time.Time
}

// SendFeedback mails user feedback to the feedback inbox.
func (n *Notifier) SendFeedback(ctx context.Context, content string, meta FeedbackMeta) error {
	if meta.Time.IsZero() {
		meta.Time = n.now()
	}
	var sb strings.Builder
	sb.WriteString("User feedback\n\n")
	sb.WriteString(content)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Submitted: %s\n", meta.Time.UTC().Format(time.RFC3339))
	if meta.Email != "" {
		fmt.Fprintf(&sb, "Contact: %s\n", meta.Email)
	}
	fmt.Fprintf(&sb, "IP: %s\n", orUnknown(meta.IPAddress))
	fmt.Fprintf(&sb, "User agent: %s\n", orUnknown(meta.UserAgent))
	fmt.Fprintf(&sb, "Referer: %s\n", orUnknown(meta.Referer))

	return n.Send(ctx, Message{
		Kind:    KindFeedback,
		To:      []string{n.feedbackTo},
		Subject: "User feedback",
		Body:    sb.String(),
		Meta: map[string]string{
			"user_id":    meta.UserID,
			"ip_address": meta.IPAddress,
			"user_agent": meta.UserAgent,
			"referer":    meta.Referer,
		},
	})
}

// SendVerification mails a verification link to a user.
func (n *Notifier) SendVerification(ctx context.Context, to, name, link string) error {
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf("Hi %s,\n\nConfirm your email address by opening the link below. It expires in 24 hours.\n\n%s\n\nIf you did not create an account you can ignore this message.\n", name, link)
	return n.Send(ctx, Message{
		Kind:    KindVerification,
		To:      []string{to},
		Subject: "Confirm your email address",
		Body:    body,
	})
}

// SendBackupSummary mails a digest of every feedback entry in the backup
// file. It returns false when there is nothing to summarize.
func (n *Notifier) SendBackupSummary(ctx context.Context) (bool, error) {
	if n.backup == nil {
		return false, nil
	}
	var feedback []BackupEntry
	for _, e := range n.backup.Entries() {
		if e.Kind == KindFeedback {
			feedback = append(feedback, e)
		}
	}
	if len(feedback) == 0 {
		return false, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Feedback summary\n\nTotal: %d\nGenerated: %s\n", len(feedback), n.now().UTC().Format(time.RFC3339))
	for i, e := range feedback {
		fmt.Fprintf(&sb, "\n--- #%d (%s) ---\n", i+1, e.SavedAt.UTC().Format(time.RFC3339))
		sb.WriteString(firstLines(e.Body, 12))
		sb.WriteString("\n")
	}

	err := n.Send(ctx, Message{
		Kind:    KindSummary,
		To:      []string{n.feedbackTo},
		Subject: fmt.Sprintf("Feedback summary: %d entries", len(feedback)),
		Body:    sb.String(),
	})
	return true, err
}

func firstLines(s string, max int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > max {
		lines = append(lines[:max], "...")
	}
	return strings.Join(lines, "\n")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
