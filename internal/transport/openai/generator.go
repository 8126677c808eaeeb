package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
)

// Generator is a chat-completion provider using the OpenAI-compatible API.
// Transient failures are retried with exponential backoff before the circuit
// breaker sees them as hard failures.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	retries     int
	timeout     time.Duration
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Retries     int
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat completion provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	retries := cfg.Retries
	if retries <= 0 {
		retries = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		retries:     retries,
		timeout:     timeout,
		breaker:     newBreaker("generation", cfg.Logger),
		logger:      cfg.Logger,
	}
}

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Generate produces an answer for the given system and user prompts.
func (g *Generator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	start := time.Now()

	var resp openai.ChatCompletionResponse
	err := g.withRetry(ctx, func(callCtx context.Context) error {
		raw, err := g.breaker.Execute(func() (interface{}, error) {
			return g.client.CreateChatCompletion(callCtx, req)
		})
		if err != nil {
			return err
		}
		resp = raw.(openai.ChatCompletionResponse)
		return nil
	})

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationsTotal.WithLabelValues(g.model, "error").Inc()
		return "", parseAPIError("generation", err, domain.ErrGeneration)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.GenerationsTotal.WithLabelValues(g.model, "error").Inc()
		return "", fmt.Errorf("empty generation response: %w", domain.ErrGeneration)
	}

	metrics.GenerationsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.GenerationDuration.WithLabelValues(g.model).Observe(duration.Seconds())

	return resp.Choices[0].Message.Content, nil
}

// withRetry runs fn up to g.retries times with exponential backoff, each
// attempt bounded by g.timeout. Client errors and an open breaker are not
// retried.
func (g *Generator) withRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := 500 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= g.retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		err := fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) || attempt == g.retries {
			break
		}

		if g.logger != nil {
			g.logger.Warn("generation attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return lastErr
}

// retryable reports whether an error is transient: timeouts, 429 and 5xx.
func retryable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}

	// Network-level failures come through as plain errors.
	return true
}
