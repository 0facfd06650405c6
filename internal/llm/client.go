// Package llm implements agent.TextGenerator on top of langchaingo, adding a
// shared client-side rate limiter, per-attempt timeouts and exponential
// backoff for transient provider failures.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
	"github.com/fyrsmithlabs/seoflow/internal/config"
	"github.com/fyrsmithlabs/seoflow/internal/logging"
)

// Config holds the settings for one provider client.
type Config struct {
	Provider       string
	Model          string
	BaseURL        string
	APIKey         config.Secret
	MaxTokens      int
	Temperature    float64
	RateLimit      float64
	Burst          int
	MaxRetries     int
	BaseBackoff    time.Duration
	RequestTimeout time.Duration
}

// ConfigFrom combines agent settings with the credential chosen by mode
// resolution.
func ConfigFrom(a config.AgentsConfig, key config.Secret) Config {
	return Config{
		Provider:       a.Provider,
		Model:          a.Model,
		BaseURL:        a.BaseURL,
		APIKey:         key,
		MaxTokens:      a.MaxTokens,
		Temperature:    a.Temperature,
		RateLimit:      a.RateLimit,
		Burst:          a.Burst,
		MaxRetries:     a.MaxRetries,
		BaseBackoff:    a.BaseBackoff,
		RequestTimeout: a.RequestTimeout,
	}
}

// Client is safe for concurrent use; all runs share its limiter.
type Client struct {
	model   llms.Model
	cfg     Config
	limiter *rate.Limiter
	logger  *logging.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a langchaingo model for cfg.Provider and wraps it.
func New(cfg Config, opts ...Option) (*Client, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("%s API key required", cfg.Provider)
	}

	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case config.ProviderAnthropic:
		aopts := []anthropic.Option{
			anthropic.WithToken(cfg.APIKey.Value()),
			anthropic.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			aopts = append(aopts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		model, err = anthropic.New(aopts...)
	case config.ProviderOpenAI:
		oopts := []openai.Option{
			openai.WithToken(cfg.APIKey.Value()),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			oopts = append(oopts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(oopts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", cfg.Provider, err)
	}

	return NewWithModel(model, cfg, opts...), nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(model llms.Model, cfg Config, opts ...Option) *Client {
	c := &Client{
		model:   model,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		logger:  logging.NewNop(),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Info describes the client for result metadata.
func (c *Client) Info() agent.ModelInfo {
	return agent.ModelInfo{Provider: c.cfg.Provider, Model: c.cfg.Model}
}

// Generate sends a system and user prompt and returns the first choice.
// Transient failures are retried with exponential backoff up to MaxRetries.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.BaseBackoff * time.Duration(1<<(attempt-1))
			c.logger.Debug(ctx, "retrying provider call",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			if err := c.sleep(ctx, backoff); err != nil {
				return "", err
			}
		}

		text, err := c.attempt(ctx, messages)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil || !isRetryable(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) attempt(ctx context.Context, messages []llms.MessageContent) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	resp, err := c.model.GenerateContent(attemptCtx, messages,
		llms.WithMaxTokens(c.cfg.MaxTokens),
		llms.WithTemperature(c.cfg.Temperature),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", &retryableError{err: fmt.Errorf("request timed out after %s", c.cfg.RequestTimeout)}
		}
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", errors.New("empty response from provider")
	}
	return resp.Choices[0].Content, nil
}

// retryableError marks a failure worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// transientMarkers are substrings providers use for throttling and outages.
var transientMarkers = []string{
	"429", "rate limit", "rate_limit", "overloaded", "529",
	"500", "502", "503", "504", "connection reset", "connection refused", "eof",
}

func isRetryable(err error) bool {
	var re *retryableError
	if errors.As(err, &re) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ agent.TextGenerator = (*Client)(nil)
