// Package completion talks to hosted text-completion models.
//
// Clients take the whole conversation history for each call and return the
// model's reply text. Transport failures, 429s and 5xx responses are retried
// with exponential backoff behind a client-side rate limiter.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/planboard/internal/config"
	"github.com/fyrsmithlabs/planboard/internal/conversation"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = time.Second
	defaultRPM         = 50
	defaultBurst       = 5

	defaultGeminiModel   = "gemini-2.5-flash"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAIBaseURL = "https://api.openai.com"
)

// ErrNotConfigured is returned by Complete when no API key is set.
var ErrNotConfigured = errors.New("completion API key is not configured")

// Client produces the next model reply for a conversation.
type Client interface {
	Complete(ctx context.Context, history []conversation.Message) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, history []conversation.Message) (string, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, history []conversation.Message) (string, error) {
	return f(ctx, history)
}

// Config configures a remote client.
type Config struct {
	APIKey            string `json:"-"`
	Model             string
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute float64
	Burst             int

	// BaseBackoff is the first retry delay; later retries double it.
	BaseBackoff time.Duration
}

// FromConfig converts the file configuration.
func FromConfig(c config.CompletionConfig) Config {
	return Config{
		APIKey:            c.APIKey.Value(),
		Model:             c.Model,
		BaseURL:           c.BaseURL,
		Timeout:           c.Timeout.Duration(),
		MaxRetries:        c.MaxRetries,
		RequestsPerMinute: c.RequestsPerMinute,
		Burst:             c.Burst,
	}
}

// New builds the client named by c.Provider.
func New(c config.CompletionConfig) (Client, error) {
	switch c.Provider {
	case "gemini", "":
		return NewGemini(FromConfig(c)), nil
	case "openai":
		return NewOpenAI(FromConfig(c)), nil
	case "static":
		return NewStatic(c.StaticReply), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", c.Provider)
	}
}

func (c Config) withDefaults(model, baseURL string) Config {
	if c.Model == "" {
		c.Model = model
	}
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = defaultRPM
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = defaultBaseBackoff
	}
	return c
}

func (c Config) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(c.RequestsPerMinute/60), c.Burst)
}

// retrier runs one logical request with rate limiting and backoff.
type retrier struct {
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
}

func (r *retrier) do(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		reply, err := call(ctx)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Static always answers with the same reply.
type Static struct {
	Reply string
}

// NewStatic returns a Static client.
func NewStatic(reply string) *Static {
	if reply == "" {
		reply = "Got it! Tell me more about your event."
	}
	return &Static{Reply: reply}
}

// Complete returns s.Reply.
func (s *Static) Complete(ctx context.Context, _ []conversation.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Reply, nil
}

var (
	_ Client = ClientFunc(nil)
	_ Client = (*Static)(nil)
	_ Client = (*GeminiClient)(nil)
	_ Client = (*OpenAIClient)(nil)
)
