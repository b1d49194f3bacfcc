// Package jobdesc downloads job postings and reduces them to plain text for
// keyword analysis.
package jobdesc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/logger"
)

const (
	userAgent = "Mozilla/5.0 (compatible; ResumeAnalyzer/1.0)"

	// MinTextLength is the shortest extraction accepted from a plain HTTP
	// fetch before falling back to a browser or reader proxy.
	MinTextLength = 500

	// MaxTextLength caps the returned description.
	MaxTextLength = 100000

	maxBodyBytes = 5 << 20
)

// ErrEmpty is returned when no text could be extracted from the page.
var ErrEmpty = errors.New("job posting has no readable text")

// Error describes a failed fetch.
type Error struct {
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Fetcher retrieves job descriptions by URL. Short results from a plain
// fetch are retried in headless Chrome (when enabled) and then through the
// reader proxy (when configured).
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	useBrowser  bool
	readerProxy string
	render      func(ctx context.Context, url string, timeout time.Duration) (string, error)
	log         *logger.Logger
}

// New creates a fetcher from configuration.
func New(cfg config.JobFetchConfig, log *logger.Logger) *Fetcher {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		timeout:     timeout,
		useBrowser:  cfg.UseBrowser,
		readerProxy: strings.TrimSpace(cfg.ReaderProxy),
		render:      renderWithChrome,
		log:         logger.OrNop(log).With("component", "jobdesc"),
	}
}

// Fetch returns the text of the job posting at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}
	target := u.String()
	board := DetectBoard(u.Host)

	best := ""
	html, err := f.get(ctx, target)
	if err != nil {
		f.log.Warn("Job posting fetch failed", "url", target, "error", err)
	} else if text, perr := MainText(html, board); perr == nil {
		best = text
	}

	if len(best) < MinTextLength && f.useBrowser && f.render != nil {
		f.log.Debug("Rendering job posting in browser", "url", target, "chars", len(best))
		rendered, rerr := f.render(ctx, target, f.timeout)
		if rerr != nil {
			f.log.Warn("Browser rendering failed", "url", target, "error", rerr)
		} else if text, perr := MainText(rendered, board); perr == nil && len(text) > len(best) {
			best = text
		}
	}

	if len(best) < MinTextLength && f.readerProxy != "" {
		text, rerr := f.viaReader(ctx, target)
		if rerr != nil {
			f.log.Warn("Reader proxy failed", "url", target, "error", rerr)
		} else if len(text) > len(best) {
			best = text
		}
	}

	best = strings.TrimSpace(best)
	if best == "" {
		if err != nil {
			return "", err
		}
		return "", &Error{URL: target, Message: "no readable text", Cause: ErrEmpty}
	}
	if len(best) > MaxTextLength {
		best = truncateRunes(best, MaxTextLength)
	}
	f.log.Info("Fetched job posting", "url", target, "board", string(board), "chars", len(best))
	return best, nil
}

func (f *Fetcher) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", &Error{URL: target, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{URL: target, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{URL: target, StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &Error{URL: target, Message: "failed to read response body", Cause: err}
	}
	return string(body), nil
}

// viaReader asks the reader proxy (r.jina.ai style: proxy + target URL) for
// a text rendition of the page. 429 responses back off and retry.
func (f *Fetcher) viaReader(ctx context.Context, target string) (string, error) {
	proxied := f.readerProxy + target
	backoff := 500 * time.Millisecond
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxied, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("User-Agent", userAgent)
		resp, err := f.client.Do(req)
		if err != nil {
			return "", err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			backoff *= 4
			if backoff > 10*time.Second {
				return "", fmt.Errorf("reader proxy rate limited")
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, MaxTextLength))
		_ = resp.Body.Close()
		if err != nil {
			return "", err
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("reader proxy returned status %d", resp.StatusCode)
		}
		return cleanLines(string(body)), nil
	}
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
