package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultModel is the model used when none is configured. Classification
// and verification are short extraction tasks; the cost-efficient tier is
// enough.
const DefaultModel = "claude-3-5-haiku-20241022"

// defaultMaxTokens bounds classification/verification responses; both are
// small JSON objects.
const defaultMaxTokens = 1024

// Config holds client configuration.
type Config struct {
	APIKey    string        // Anthropic API key (if empty, reads ANTHROPIC_API_KEY)
	Model     string        // Model to use (default: DefaultModel)
	MaxTokens int           // Max response tokens (default: 1024)
	Retry     *RetryConfig  // Retry policy (nil = defaults; MaxRetries 0 means no retries)
	Cooldown  time.Duration // Minimum spacing between requests (0 = none)
}

// Client is the Anthropic-backed Provider. Requests are serialized and
// paced: the provider is rate-limited and the pipeline processes postings
// sequentially, so one in-flight call at a time is the intended shape.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int
	retry     RetryConfig
	breaker   *CircuitBreaker
	sem       *semaphore.Weighted
	limiter   *rate.Limiter
}

var _ Provider = (*Client)(nil)

// NewClient creates an Anthropic-backed provider.
func NewClient(cfg Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	retry := DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}

	var breaker *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		breaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Cooldown > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Cooldown), 1)
	}

	return &Client{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
		retry:     retry,
		breaker:   breaker,
		sem:       semaphore.NewWeighted(1),
		limiter:   limiter,
	}, nil
}

// Complete sends a prompt and returns the model's text response, applying
// request pacing, the retry policy and the circuit breaker.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("failed to acquire request slot: %w", err)
	}
	defer c.sem.Release(1)

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("request pacing interrupted: %w", err)
	}

	startTime := time.Now()
	var response *anthropic.Message
	err := c.retryWithBackoff(ctx, "complete", func(attemptCtx context.Context) error {
		resp, apiErr := c.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: int64(c.maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var responseText string
	for _, block := range response.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	slog.Debug("provider call complete",
		"model", c.model,
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens,
		"duration", time.Since(startTime))

	return responseText, nil
}
