// Package llm wraps the model-provider SDKs behind one small completion
// interface. The insights step is the only caller; it issues exactly one
// prompt per run, so the surface is a single Complete call plus retry and
// event-log wrappers.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mixaill76/ads_insight_agent/internal/config"
)

// Request is one completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Usage reports token consumption of one call.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the text outcome of one completion.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Client is a provider-agnostic completion client.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Provider() string
	Close() error
}

// New builds the configured provider client wrapped with per-attempt
// timeouts, retry on transient failures and JSONL event logging.
func New(cfg config.LLMConfig, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: api_key is required for provider %q", cfg.Provider)
	}

	var base Client
	var err error
	switch cfg.Provider {
	case config.ProviderAnthropic:
		base = newAnthropicClient(cfg)
	case config.ProviderGemini:
		base, err = newGeminiClient(cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}

	events, err := OpenEventLog(cfg.EventLog)
	if err != nil {
		return nil, err
	}

	retrying := &retryClient{
		inner:      base,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.RequestTimeout,
		log:        log,
	}

	return &loggingClient{inner: retrying, events: events, log: log}, nil
}
