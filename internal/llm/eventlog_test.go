package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixaill76/ads_insight_agent/internal/testhelpers"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev), "every line must be valid JSON")
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestEventLog_RecordsJSONLLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "llm_logs.jsonl")
	log, err := OpenEventLog(path)
	require.NoError(t, err)
	defer log.Close()

	client := &loggingClient{
		inner:  &fakeClient{response: &Response{Text: "insight", Model: "fake-model", Usage: Usage{InputTokens: 10, OutputTokens: 5}}},
		events: log,
		log:    testhelpers.NewTestLogger(),
	}

	_, err = client.Complete(context.Background(), Request{System: "sys", Prompt: "analyze"})
	require.NoError(t, err)
	require.NoError(t, log.Close())

	events := readEvents(t, path)
	require.Len(t, events, 2)

	assert.Equal(t, EventInput, events[0].Event)
	assert.Equal(t, "fake", events[0].Provider)
	assert.Equal(t, "analyze", events[0].Prompt)
	assert.NotEmpty(t, events[0].RequestID)
	assert.False(t, events[0].Timestamp.IsZero())

	assert.Equal(t, EventOutput, events[1].Event)
	assert.Equal(t, "insight", events[1].Text)
	assert.Equal(t, int64(10), events[1].InputTokens)
	assert.Equal(t, int64(5), events[1].OutputTokens)
	assert.Equal(t, events[0].RequestID, events[1].RequestID, "input and output share a request id")
}

func TestEventLog_RecordsErrorEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_logs.jsonl")
	log, err := OpenEventLog(path)
	require.NoError(t, err)

	client := &loggingClient{
		inner:  &fakeClient{errs: []error{errors.New("provider down")}},
		events: log,
		log:    testhelpers.NewTestLogger(),
	}

	_, err = client.Complete(context.Background(), Request{Prompt: "analyze"})
	require.Error(t, err)
	require.NoError(t, log.Close())

	events := readEvents(t, path)
	require.Len(t, events, 2)
	assert.Equal(t, EventError, events[1].Event)
	assert.Contains(t, events[1].Error, "provider down")
}

func TestEventLog_TruncatesLongPrompts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_logs.jsonl")
	log, err := OpenEventLog(path)
	require.NoError(t, err)

	longPrompt := strings.Repeat("x", maxEventFieldLength+500)
	require.NoError(t, log.Record(Event{Event: EventInput, Prompt: longPrompt}))
	require.NoError(t, log.Close())

	events := readEvents(t, path)
	require.Len(t, events, 1)
	assert.Less(t, len(events[0].Prompt), len(longPrompt))
	assert.Contains(t, events[0].Prompt, "truncated")
}

func TestEventLog_AppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_logs.jsonl")

	first, err := OpenEventLog(path)
	require.NoError(t, err)
	require.NoError(t, first.Record(Event{Event: EventInput, RequestID: "a"}))
	require.NoError(t, first.Close())

	second, err := OpenEventLog(path)
	require.NoError(t, err)
	require.NoError(t, second.Record(Event{Event: EventInput, RequestID: "b"}))
	require.NoError(t, second.Close())

	events := readEvents(t, path)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].RequestID)
	assert.Equal(t, "b", events[1].RequestID)
}

func TestEventLog_NilIsSafe(t *testing.T) {
	var log *EventLog
	assert.NoError(t, log.Record(Event{Event: EventInput}))
	assert.NoError(t, log.Close())
}

func TestOpenEventLog_EmptyPathDisables(t *testing.T) {
	log, err := OpenEventLog("")
	require.NoError(t, err)
	assert.Nil(t, log)
}
