package collaborator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/lifebank/internal/wire"
)

// Default client policy. Rate limiting and bounded retry keep a flaky
// provider from stalling extraction runs; retries never span rounds.
const (
	defaultRateLimit   = 2 // requests per second
	defaultBurst       = 4
	defaultMaxRetries  = 2
	defaultBaseBackoff = 500 * time.Millisecond
	defaultMaxTokens   = 4096
	defaultTemperature = 0.2
)

// Config configures the LLM-backed collaborator client.
type Config struct {
	// Provider selects the backing model API: "openai" or "anthropic".
	Provider string

	// Model is the provider-specific model identifier.
	Model string

	// APIKey authenticates against the provider.
	APIKey string

	// BaseURL overrides the provider endpoint (for proxies and tests).
	BaseURL string

	// RateLimit is requests per second; zero uses the default.
	RateLimit float64

	// MaxRetries bounds retry attempts per call; negative disables retry.
	MaxRetries int
}

// Client implements Collaborator on top of a langchaingo model.
type Client struct {
	model      llms.Model
	limiter    *rate.Limiter
	maxRetries int
	logger     *zap.Logger
}

// NewClient builds a client for the configured provider.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("collaborator API key required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "", "openai":
		opts := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		model, err = anthropic.New(opts...)
	default:
		return nil, fmt.Errorf("unknown collaborator provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", cfg.Provider, err)
	}

	limit := rate.Limit(defaultRateLimit)
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	retries := defaultMaxRetries
	if cfg.MaxRetries != 0 {
		retries = cfg.MaxRetries
		if retries < 0 {
			retries = 0
		}
	}

	return &Client{
		model:      model,
		limiter:    rate.NewLimiter(limit, defaultBurst),
		maxRetries: retries,
		logger:     logger,
	}, nil
}

// NewClientWithModel builds a client around an existing model. Tests use it
// to inject fakes.
func NewClientWithModel(model llms.Model, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		model:      model,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxRetries: 0,
		logger:     logger,
	}
}

var _ Collaborator = (*Client)(nil)

// ProposeContext implements Collaborator.
func (c *Client) ProposeContext(ctx context.Context, pkg *wire.DailyExtractionPackage) (*wire.RoundOneReply, error) {
	payload, err := json.Marshal(pkg)
	if err != nil {
		return nil, fmt.Errorf("encoding daily package: %w", err)
	}

	raw, err := c.complete(ctx, roundOnePrompt(string(payload)))
	if err != nil {
		return nil, err
	}

	reply, err := decodeRoundOne(raw, pkg.DayID)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// Extract implements Collaborator.
func (c *Client) Extract(ctx context.Context, dayID string, sc *wire.SanitizedContext) (*wire.ExtractionResponse, error) {
	payload, err := json.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("encoding sanitized context: %w", err)
	}

	raw, err := c.complete(ctx, roundTwoPrompt(dayID, string(payload)))
	if err != nil {
		return nil, err
	}

	resp, err := decodeResponse(raw)
	if err != nil {
		return nil, err
	}
	if resp.DayID == "" {
		resp.DayID = dayID
	}
	return resp, nil
}

// complete calls the model with rate limiting and bounded backoff retry.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			c.logger.Debug("retrying collaborator call", zap.Int("attempt", attempt))
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
			llms.WithTemperature(defaultTemperature),
			llms.WithMaxTokens(defaultMaxTokens),
		)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
