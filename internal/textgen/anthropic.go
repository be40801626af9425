package textgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BarkinBalci/synthesis-engine/internal/config"
)

const defaultMaxTokens = 800

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New("text generation circuit breaker is open")

// ErrEmptyResponse is returned when the service answers without text
var ErrEmptyResponse = errors.New("text generation returned empty content")

type messagesAPI interface {
	New(ctx context.Context, params anthropicsdk.MessageNewParams, opts ...option.RequestOption) (*anthropicsdk.Message, error)
}

// AnthropicClient implements Generator over the Anthropic Messages API.
// Calls are rate limited, bounded by a per-call timeout and guarded by a
// circuit breaker so a failing upstream is skipped quickly.
type AnthropicClient struct {
	cfg        config.TextGen
	httpClient *http.Client
	msgs       messagesAPI
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	log        *zap.Logger
}

// ClientOption configures an AnthropicClient
type ClientOption func(*AnthropicClient)

// WithHTTPClient replaces the HTTP client used by the SDK
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *AnthropicClient) {
		c.httpClient = client
	}
}

// NewAnthropicClient creates a client from cfg
func NewAnthropicClient(cfg config.TextGen, log *zap.Logger, opts ...ClientOption) *AnthropicClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &AnthropicClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		log:        log,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "textgen",
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Text generation circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	for _, opt := range opts {
		opt(c)
	}

	// Retries are left to the breaker so each failed call counts once.
	client := anthropicsdk.NewClient(
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(0),
	)
	c.msgs = &client.Messages

	return c
}

// Generate sends a single-turn completion and returns the concatenated text
func (c *AnthropicClient) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.New("text generation api key is not configured")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrCircuitOpen
		}
		return "", err
	}
	return result.(string), nil
}

func (c *AnthropicClient) generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	start := time.Now()
	msg, err := c.msgs.New(ctx, c.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("text generation request: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "" || block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", ErrEmptyResponse
	}

	c.log.Debug("Text generation completed",
		zap.String("model", c.cfg.Model),
		zap.Duration("latency", time.Since(start)),
		zap.String("stop_reason", string(msg.StopReason)),
		zap.Int64("output_tokens", msg.Usage.OutputTokens))

	return out, nil
}

func (c *AnthropicClient) buildParams(req Request) anthropicsdk.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(c.cfg.Model),
		MaxTokens:   int64(maxTokens),
		Temperature: param.NewOpt(req.Temperature),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(req.Prompt)),
		},
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}
	return params
}

// State returns the circuit breaker state name
func (c *AnthropicClient) State() string {
	return c.breaker.State().String()
}

var _ Generator = (*AnthropicClient)(nil)
