package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/resume-analyzer/internal/logger"
)

// RetryingClient bounds every call with a timeout and retries failures with
// linear backoff.
type RetryingClient struct {
	inner      Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	log        *logger.Logger
}

// NewRetryingClient wraps inner. A zero timeout disables the per-attempt deadline.
func NewRetryingClient(inner Client, timeout time.Duration, maxRetries int, log *logger.Logger) *RetryingClient {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryingClient{
		inner:      inner,
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
		log:        logger.OrNop(log).With("component", "llm"),
	}
}

// WithBackoff sets the base backoff between attempts.
func (c *RetryingClient) WithBackoff(d time.Duration) *RetryingClient {
	c.backoff = d
	return c
}

// GenerateContent implements Client.
func (c *RetryingClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.do(ctx, tier, func(ctx context.Context) (string, error) {
		return c.inner.GenerateContent(ctx, prompt, tier)
	})
}

// GenerateJSON implements Client.
func (c *RetryingClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.do(ctx, tier, func(ctx context.Context) (string, error) {
		return c.inner.GenerateJSON(ctx, prompt, tier)
	})
}

// GetModel implements Client.
func (c *RetryingClient) GetModel(tier ModelTier) string {
	return c.inner.GetModel(tier)
}

// Close implements Client.
func (c *RetryingClient) Close() error {
	return c.inner.Close()
}

func (c *RetryingClient) do(ctx context.Context, tier ModelTier, fn func(context.Context) (string, error)) (string, error) {
	attempts := c.maxRetries + 1
	out, err := retry(ctx, attempts, c.backoff, func(attempt int) (string, error) {
		callCtx, cancel := c.attemptContext(ctx)
		defer cancel()
		start := time.Now()
		text, err := fn(callCtx)
		if err != nil {
			c.log.Warn("llm call failed", "tier", string(tier), "attempt", attempt, "elapsed", time.Since(start), "error", err)
		}
		return text, err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (c *RetryingClient) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// retry calls fn up to attempts times, waiting backoff*n between attempts.
// It stops early when ctx is done.
func retry[T any](ctx context.Context, attempts int, backoff time.Duration, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		result, err := fn(i + 1)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, errors.Join(lastErr, ctx.Err())
		case <-time.After(backoff * time.Duration(i+1)):
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
