package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SendGridConfig configures the SendGrid v3 mail API sender.
type SendGridConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// SendGridSender posts messages to the SendGrid mail send endpoint.
type SendGridSender struct {
	cfg        SendGridConfig
	httpClient *http.Client
}

// NewSendGridSender returns a SendGrid sender. BaseURL defaults to the
// public API.
func NewSendGridSender(cfg SendGridConfig) *SendGridSender {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SendGridSender{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

func (s *SendGridSender) Name() string { return "sendgrid" }

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
	Categories       []string            `json:"categories,omitempty"`
}

type sgErrorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// HTTPError is a non-2xx SendGrid response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, e.Message)
}

func (s *SendGridSender) Send(ctx context.Context, from string, msg Message) error {
	if strings.TrimSpace(from) == "" {
		return fmt.Errorf("sendgrid: from address required")
	}
	to := make([]sgAddress, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, sgAddress{Email: strings.TrimSpace(addr)})
	}
	wire := sgRequest{
		Personalizations: []sgPersonalization{{To: to}},
		From:             sgAddress{Email: from},
		Subject:          msg.Subject,
		Content:          []sgContent{{Type: "text/plain", Value: msg.Body}},
	}
	if msg.Kind != "" {
		wire.Categories = []string{msg.Kind}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(wire); err != nil {
		return fmt.Errorf("failed to encode sendgrid request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v3/mail/send", &buf)
	if err != nil {
		return fmt.Errorf("failed to build sendgrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	herr := &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	var parsed sgErrorResponse
	if json.Unmarshal(raw, &parsed) == nil && len(parsed.Errors) > 0 && parsed.Errors[0].Message != "" {
		herr.Message = parsed.Errors[0].Message
	}
	if herr.Message == "" {
		herr.Message = "<empty body>"
	}
	return herr
}
