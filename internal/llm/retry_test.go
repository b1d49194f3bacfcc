package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyClient struct {
	failures int32
	calls    atomic.Int32
	delay    time.Duration
}

func (f *flakyClient) call(ctx context.Context) (string, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if n <= f.failures {
		return "", errors.New("rate limited")
	}
	return `{"ok": true}`, nil
}

func (f *flakyClient) GenerateContent(ctx context.Context, _ string, _ ModelTier) (string, error) {
	return f.call(ctx)
}

func (f *flakyClient) GenerateJSON(ctx context.Context, _ string, _ ModelTier) (string, error) {
	return f.call(ctx)
}

func (f *flakyClient) GetModel(ModelTier) string { return "test-model" }
func (f *flakyClient) Close() error             { return nil }

func TestRetryingClient_RecoversAfterFailures(t *testing.T) {
	inner := &flakyClient{failures: 2}
	c := NewRetryingClient(inner, time.Second, 3, nil).WithBackoff(time.Millisecond)

	out, err := c.GenerateJSON(context.Background(), "p", TierLite)

	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, out)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestRetryingClient_GivesUp(t *testing.T) {
	inner := &flakyClient{failures: 10}
	c := NewRetryingClient(inner, time.Second, 3, nil).WithBackoff(time.Millisecond)

	_, err := c.GenerateContent(context.Background(), "p", TierLite)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, int32(4), inner.calls.Load())
}

func TestRetryingClient_PerAttemptTimeout(t *testing.T) {
	inner := &flakyClient{delay: 200 * time.Millisecond}
	c := NewRetryingClient(inner, 10*time.Millisecond, 1, nil).WithBackoff(time.Millisecond)

	_, err := c.GenerateJSON(context.Background(), "p", TierLite)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestRetryingClient_StopsWhenParentCancelled(t *testing.T) {
	inner := &flakyClient{failures: 10}
	c := NewRetryingClient(inner, time.Second, 5, nil).WithBackoff(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := c.GenerateJSON(ctx, "p", TierLite)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not stop after cancellation")
	}
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestRetryingClient_Delegates(t *testing.T) {
	c := NewRetryingClient(&flakyClient{}, 0, -1, nil)
	assert.Equal(t, "test-model", c.GetModel(TierStandard))
	assert.NoError(t, c.Close())
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "bogus"}, "key", nil)
	assert.Error(t, err)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), DefaultConfig(), "", nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Provider = ProviderGenAI
	_, err = NewClient(context.Background(), cfg, "", nil)
	assert.Error(t, err)
}
