package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/genai"
)

// RetryReason describes why a completion call is being retried
type RetryReason string

const (
	RetryReasonRateLimit RetryReason = "rate_limit"
	RetryReasonServerErr RetryReason = "server_error"
	RetryReasonNetErr    RetryReason = "network_error"
	RetryReasonTimeout   RetryReason = "timeout"
)

// ShouldRetry classifies a provider error. Rate limits, 5xx responses and
// network timeouts are transient; everything else (auth, bad request,
// content policy) fails the run immediately.
func ShouldRetry(err error) (bool, RetryReason) {
	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return retryableStatus(antErr.StatusCode)
	}

	var genErr genai.APIError
	if errors.As(err, &genErr) {
		return retryableStatus(genErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true, RetryReasonNetErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true, RetryReasonTimeout
	}

	return false, ""
}

func retryableStatus(statusCode int) (bool, RetryReason) {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return true, RetryReasonRateLimit
	case statusCode >= 500 && statusCode < 600:
		return true, RetryReasonServerErr
	}
	return false, ""
}

// retryClient retries transient provider failures with jittered linear
// backoff. Each attempt gets its own timeout; cancellation of the parent
// context stops the loop immediately.
type retryClient struct {
	inner      Client
	maxRetries int
	timeout    time.Duration
	log        *slog.Logger
}

func (c *retryClient) Provider() string { return c.inner.Provider() }

func (c *retryClient) Close() error { return c.inner.Close() }

func (c *retryClient) Complete(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Jitter prevents synchronized retries when rate limited.
			backoff := time.Duration(attempt)*500*time.Millisecond +
				time.Duration(rand.Intn(250))*time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		retryable, reason := ShouldRetry(err)
		if !retryable {
			return nil, err
		}
		c.log.Warn("LLM call failed, will retry",
			"provider", c.inner.Provider(),
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"retry_reason", reason,
			"error", err,
		)
	}
	return nil, fmt.Errorf("llm: %d attempts exhausted: %w", c.maxRetries+1, lastErr)
}

func (c *retryClient) attempt(ctx context.Context, req Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.inner.Complete(ctx, req)
}
