package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(cfg *Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg.CleanupInterval = 0
	l := NewLimiter(cfg)
	l.now = clock.Now
	return l, clock
}

func TestBucket_TakeAndRefill(t *testing.T) {
	now := time.Now()
	b := newBucket(3, 1, now)
	for i := 0; i < 3; i++ {
		assert.True(t, b.take(now), "request %d", i+1)
	}
	assert.False(t, b.take(now))
	assert.Equal(t, time.Second, b.nextToken())

	now = now.Add(1100 * time.Millisecond)
	assert.True(t, b.take(now))
	assert.False(t, b.take(now))
}

func TestBucket_ResetAt(t *testing.T) {
	now := time.Now()
	b := newBucket(10, 2, now)
	assert.Equal(t, now, b.resetAt(now))
	for i := 0; i < 4; i++ {
		b.take(now)
	}
	assert.Equal(t, now.Add(2*time.Second), b.resetAt(now))
}

func TestLimiter_Allow(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := l.Allow("127.0.0.1", "/versions", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := l.Allow("127.0.0.1", "/versions", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Positive(t, info.RetryAfter)

	// other clients have their own buckets
	allowed, _ = l.Allow("10.0.0.2", "/versions", "GET")
	assert.True(t, allowed)
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l, clock := newTestLimiter(&Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute})
	defer l.Stop()

	for i := 0; i < 60; i++ {
		l.Allow("c", "/x", "GET")
	}
	allowed, _ := l.Allow("c", "/x", "GET")
	require.False(t, allowed)

	clock.Advance(time.Second)
	allowed, _ = l.Allow("c", "/x", "GET")
	assert.True(t, allowed)
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	l, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"good": true},
		Blacklist:     map[string]bool{"bad": true},
	})
	defer l.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("good", "/x", "GET")
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow("bad", "/x", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(&Config{Enabled: false, DefaultLimit: 1})
	defer l.Stop()
	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("c", "/x", "GET")
		assert.True(t, allowed)
	}
	assert.Zero(t, l.Size())
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	l, _ := newTestLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(4),
	})
	defer l.Stop()

	// burst of analyzePerHour/5, at least one
	allowed, info := l.Allow("c", "/resumes/analyze", "POST")
	assert.True(t, allowed)
	assert.Equal(t, 4, info.Limit)
	allowed, _ = l.Allow("c", "/resumes/analyze", "POST")
	assert.False(t, allowed)

	// GET on the same path falls back to the default
	allowed, info = l.Allow("c", "/resumes/analyze", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 100, info.Limit)

	for i := 0; i < 10; i++ {
		allowed, _ = l.Allow("c", "/health", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_PrefixSharesBucket(t *testing.T) {
	l, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/versions/", Method: "POST", Limit: 2, Window: time.Minute},
		},
	})
	defer l.Stop()

	a, _ := l.Allow("c", "/versions/v_1/activate", "POST")
	b, _ := l.Allow("c", "/versions/v_2/performance", "POST")
	c, _ := l.Allow("c", "/versions/v_3/activate", "POST")
	assert.True(t, a)
	assert.True(t, b)
	assert.False(t, c)
	assert.Equal(t, 1, l.Size())
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})
	defer l.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/x", "GET"); ok {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowedCount)
}

func TestLimiter_SweepDropsIdleBuckets(t *testing.T) {
	l, clock := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
		IdleTTL:       time.Hour,
	})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		l.Allow(fmt.Sprintf("client-%d", i), "/x", "GET")
	}
	clock.Advance(30 * time.Minute)
	l.Allow("client-0", "/x", "GET")
	clock.Advance(45 * time.Minute)

	l.sweep()
	assert.Equal(t, 1, l.Size())
}

func TestLoadConfig(t *testing.T) {
	env := map[string]string{
		"RATE_LIMIT_DEFAULT_LIMIT": "42",
		"RATE_LIMIT_WHITELIST":     "10.0.0.1, 10.0.0.2",
		"RATE_LIMIT_IDLE_TTL":      "bogus",
	}
	cfg := LoadConfig(func(k string) string { return env[k] }, 7)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.Equal(t, time.Minute, cfg.DefaultWindow)
	assert.Equal(t, time.Hour, cfg.IdleTTL)
	assert.True(t, cfg.Whitelist["10.0.0.2"])
	assert.Empty(t, cfg.Blacklist)

	ep := MatchEndpoint("/resumes/analyze", "POST", cfg.EndpointConfigs)
	require.NotNil(t, ep)
	assert.Equal(t, 7, ep.Limit)

	env["RATE_LIMIT_ENABLED"] = "false"
	assert.False(t, LoadConfig(func(k string) string { return env[k] }, 7).Enabled)
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/versions/", Method: "POST", Limit: 1},
		{Path: "/versions/report/", Method: "POST", Limit: 2},
		{Path: "/feedback", Method: "POST", Limit: 3},
	}
	assert.Equal(t, 3, MatchEndpoint("/feedback", "POST", configs).Limit)
	assert.Nil(t, MatchEndpoint("/feedback/x", "POST", configs))
	assert.Equal(t, 1, MatchEndpoint("/versions/v_1", "POST", configs).Limit)
	assert.Equal(t, 2, MatchEndpoint("/versions/report/x", "POST", configs).Limit)
	assert.Nil(t, MatchEndpoint("/versions/v_1", "GET", configs))
	assert.Zero(t, MatchEndpoint("/health", "GET", configs).Limit)
}
