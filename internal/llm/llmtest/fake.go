// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jonathan/resume-analyzer/internal/llm"
)

// ErrNoResponse is returned when no rule matches and no default is set.
var ErrNoResponse = errors.New("llmtest: no scripted response")

// Rule answers any prompt containing Contains.
type Rule struct {
	Contains string
	Response string
	Err      error
}

// Call records one request made to the fake.
type Call struct {
	Prompt string
	Tier   llm.ModelTier
	JSON   bool
}

// Client answers prompts from a list of rules; the first matching rule wins.
type Client struct {
	Rules   []Rule
	Default string
	Err     error

	mu    sync.Mutex
	calls []Call
}

// New returns a fake with the given rules.
func New(rules ...Rule) *Client {
	return &Client{Rules: rules}
}

// Failing returns a fake whose every call fails with err.
func Failing(err error) *Client {
	return &Client{Err: err}
}

func (c *Client) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return c.answer(ctx, prompt, tier, false)
}

func (c *Client) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	text, err := c.answer(ctx, prompt, tier, true)
	if err != nil {
		return "", err
	}
	return llm.CleanJSONBlock(text), nil
}

func (c *Client) GetModel(tier llm.ModelTier) string {
	return "fake-" + string(tier)
}

func (c *Client) Close() error { return nil }

// Calls returns a copy of the recorded calls.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

func (c *Client) answer(ctx context.Context, prompt string, tier llm.ModelTier, json bool) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Prompt: prompt, Tier: tier, JSON: json})
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.Err != nil {
		return "", c.Err
	}
	for _, r := range c.Rules {
		if strings.Contains(prompt, r.Contains) {
			return r.Response, r.Err
		}
	}
	if c.Default != "" {
		return c.Default, nil
	}
	return "", ErrNoResponse
}
