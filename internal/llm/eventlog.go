package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mixaill76/ads_insight_agent/internal/logger"
	"github.com/mixaill76/ads_insight_agent/internal/utils"
)

// Event log record kinds.
const (
	EventInput  = "input"
	EventOutput = "output"
	EventError  = "error"
)

// maxEventFieldLength bounds prompt/response text stored per JSONL line.
const maxEventFieldLength = 4000

// Event is one JSONL line in the LLM event log. Every completion produces
// an input event followed by either an output or an error event, tied
// together by request_id.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id"`
	Event        string    `json:"event"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model,omitempty"`
	System       string    `json:"system,omitempty"`
	Prompt       string    `json:"prompt,omitempty"`
	Text         string    `json:"text,omitempty"`
	Error        string    `json:"error,omitempty"`
	InputTokens  int64     `json:"input_tokens,omitempty"`
	OutputTokens int64     `json:"output_tokens,omitempty"`
}

// EventLog appends Events as JSONL. A nil *EventLog discards everything,
// so callers never need to guard their Record calls.
type EventLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenEventLog opens path for appending, creating parent directories as
// needed. An empty path disables event logging and returns nil.
func OpenEventLog(path string) (*EventLog, error) {
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("event log dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("event log: %w", err)
	}
	return &EventLog{file: file}, nil
}

// Record writes one event as a single JSONL line. Long prompt and
// response fields are truncated before writing.
func (e *EventLog) Record(ev Event) error {
	if e == nil {
		return nil
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line := logger.TruncateLongFields(string(data), maxEventFieldLength)

	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = fmt.Fprintln(e.file, line)
	return err
}

func (e *EventLog) Close() error {
	if e == nil {
		return nil
	}
	return e.file.Close()
}

// loggingClient records every completion to the event log and emits
// structured debug logs around the call.
type loggingClient struct {
	inner  Client
	events *EventLog
	log    *slog.Logger
}

func (c *loggingClient) Provider() string { return c.inner.Provider() }

func (c *loggingClient) Close() error {
	innerErr := c.inner.Close()
	if err := c.events.Close(); err != nil {
		return err
	}
	return innerErr
}

func (c *loggingClient) Complete(ctx context.Context, req Request) (*Response, error) {
	requestID := uuid.NewString()
	provider := c.inner.Provider()

	if err := c.events.Record(Event{
		Timestamp: utils.NowUTC(),
		RequestID: requestID,
		Event:     EventInput,
		Provider:  provider,
		System:    req.System,
		Prompt:    req.Prompt,
	}); err != nil {
		c.log.Warn("Failed to record LLM input event", "error", err)
	}

	start := time.Now()
	resp, err := c.inner.Complete(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		if recErr := c.events.Record(Event{
			Timestamp: utils.NowUTC(),
			RequestID: requestID,
			Event:     EventError,
			Provider:  provider,
			Error:     err.Error(),
		}); recErr != nil {
			c.log.Warn("Failed to record LLM error event", "error", recErr)
		}
		return nil, err
	}

	c.log.Debug("LLM completion finished",
		"provider", provider,
		"model", resp.Model,
		"request_id", requestID,
		"elapsed", elapsed,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)

	if recErr := c.events.Record(Event{
		Timestamp:    utils.NowUTC(),
		RequestID:    requestID,
		Event:        EventOutput,
		Provider:     provider,
		Model:        resp.Model,
		Text:         resp.Text,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}); recErr != nil {
		c.log.Warn("Failed to record LLM output event", "error", recErr)
	}

	return resp, nil
}
