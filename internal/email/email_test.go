package email

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	name  string
	err   error
	calls int
}

func (s *stubSender) Name() string { return s.name }

func (s *stubSender) Send(_ context.Context, _ string, _ Message) error {
	s.calls++
	return s.err
}

func newTestNotifier(t *testing.T, senders ...Sender) *Notifier {
	t.Helper()
	backup := NewBackup(filepath.Join(t.TempDir(), "data", "email_backup.json"))
	n := NewNotifier("noreply@example.com", "team@example.com", backup, senders, nil)
	n.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return n
}

func TestBackup_AppendAndSummary(t *testing.T) {
	b := NewBackup(filepath.Join(t.TempDir(), "nested", "backup.json"))
	assert.Equal(t, Summary{}, b.Summary())

	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	require.NoError(t, b.Append(BackupEntry{Kind: KindFeedback, Body: "one", SavedAt: second}))
	require.NoError(t, b.Append(BackupEntry{Kind: KindFeedback, Body: "two", SavedAt: first}))

	entries := b.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "one", entries[0].Body)

	s := b.Summary()
	assert.Equal(t, 2, s.Count)
	require.NotNil(t, s.LastSavedAt)
	assert.True(t, s.LastSavedAt.Equal(second))
}

func TestBackup_CorruptFileStartsOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	b := NewBackup(path)
	assert.Empty(t, b.Entries())
	require.NoError(t, b.Append(BackupEntry{Kind: KindFeedback, Body: "x"}))
	assert.Len(t, b.Entries(), 1)
}

func TestNotifier_FirstSuccessfulSenderWins(t *testing.T) {
	failing := &stubSender{name: "a", err: errors.New("refused")}
	ok := &stubSender{name: "b"}
	unused := &stubSender{name: "c"}
	n := newTestNotifier(t, failing, ok, unused)

	err := n.Send(context.Background(), Message{Kind: KindFeedback, To: []string{"x@example.com"}, Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 0, unused.calls)
	assert.Len(t, n.Backup().Entries(), 1)
}

func TestNotifier_AllSendersFailKeepsBackup(t *testing.T) {
	n := newTestNotifier(t, &stubSender{name: "a", err: errors.New("boom")})

	err := n.SendFeedback(context.Background(), "the score page is confusing", FeedbackMeta{IPAddress: "10.0.0.1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUndelivered)

	entries := n.Backup().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, KindFeedback, entries[0].Kind)
	assert.Contains(t, entries[0].Body, "the score page is confusing")
	assert.Contains(t, entries[0].Body, "IP: 10.0.0.1")
	assert.Contains(t, entries[0].Body, "User agent: unknown")
	assert.Equal(t, []string{"team@example.com"}, entries[0].To)
}

func TestNotifier_NoSenders(t *testing.T) {
	n := newTestNotifier(t)
	err := n.SendVerification(context.Background(), "ada@example.com", "Ada", "http://localhost/verify?code=abc")
	assert.ErrorIs(t, err, ErrUndelivered)
	entries := n.Backup().Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Body, "http://localhost/verify?code=abc")
}

func TestNotifier_RequiresRecipient(t *testing.T) {
	n := newTestNotifier(t, &stubSender{name: "a"})
	assert.Error(t, n.Send(context.Background(), Message{Subject: "s"}))
}

func TestNotifier_BackupSummary(t *testing.T) {
	sender := &stubSender{name: "a"}
	n := newTestNotifier(t, sender)

	sent, err := n.SendBackupSummary(context.Background())
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, n.SendFeedback(context.Background(), "first", FeedbackMeta{}))
	require.NoError(t, n.SendFeedback(context.Background(), "second", FeedbackMeta{}))

	sent, err = n.SendBackupSummary(context.Background())
	require.NoError(t, err)
	assert.True(t, sent)

	entries := n.Backup().Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, KindSummary, last.Kind)
	assert.Contains(t, last.Subject, "2 entries")
	assert.Contains(t, last.Body, "first")
	assert.Contains(t, last.Body, "second")
}

func TestNew_SkipsRelaysWithoutPassword(t *testing.T) {
	cfg := config.EmailConfig{
		From:       "noreply@example.com",
		BackupPath: filepath.Join(t.TempDir(), "b.json"),
		SMTP: []config.SMTPConfig{
			{Name: "primary", Host: "smtp.example.com", Port: 587, Password: "secret"},
			{Name: "secondary", Host: "smtp.other.com", Port: 25},
		},
		SendGridAPIKey: "SG.key",
	}
	n := New(cfg, nil)
	require.Len(t, n.senders, 2)
	assert.Equal(t, "smtp:primary", n.senders[0].Name())
	assert.Equal(t, "sendgrid", n.senders[1].Name())
}

func TestSMTPSender_FormatsMessage(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com", Password: "pw"})
	var gotAddr string
	var gotBody []byte
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotBody = msg
		assert.Equal(t, "noreply@example.com", from)
		assert.Equal(t, []string{"a@example.com"}, to)
		return nil
	}

	err := s.Send(context.Background(), "noreply@example.com", Message{To: []string{"a@example.com"}, Subject: "Hello", Body: "line1\nline2"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Contains(t, string(gotBody), "Subject: Hello\r\n")
	assert.Contains(t, string(gotBody), "line1\r\nline2")
	assert.Equal(t, "smtp:smtp.example.com", s.Name())
}

func TestSendGridSender(t *testing.T) {
	var got sgRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSendGridSender(SendGridConfig{APIKey: "SG.key", BaseURL: srv.URL + "/"})
	err := s.Send(context.Background(), "noreply@example.com", Message{Kind: KindFeedback, To: []string{"a@example.com"}, Subject: "Hi", Body: "body"})
	require.NoError(t, err)
	assert.Equal(t, "noreply@example.com", got.From.Email)
	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "a@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, []string{KindFeedback}, got.Categories)
}

func TestSendGridSender_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"invalid api key"}]}`))
	}))
	defer srv.Close()

	s := NewSendGridSender(SendGridConfig{APIKey: "bad", BaseURL: srv.URL})
	err := s.Send(context.Background(), "noreply@example.com", Message{To: []string{"a@example.com"}, Subject: "Hi", Body: "b"})
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusUnauthorized, herr.StatusCode)
	assert.True(t, strings.Contains(herr.Error(), "invalid api key"))
}
