package chat

import (
	"encoding/json"
	"testing"
	"time"

	"mars/internal/types"
)

func envelopeFromJSON(t *testing.T, raw string) types.Envelope {
	t.Helper()
	var envelope types.Envelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return envelope
}

func newIngestorSession(t *testing.T) (*Ingestor, *Store, string) {
	t.Helper()
	store := NewStore()
	tab := store.CreateTab()
	store.BindSession(tab.ID, "ses_1")
	store.AppendUserMessage("ses_1", "question")
	store.AppendAssistantPlaceholder("ses_1")
	ingestor := NewIngestor(store, nil)
	ingestor.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return ingestor, store, "ses_1"
}

func TestIngestPartUpdatedText(t *testing.T) {
	ingestor, store, sessionID := newIngestorSession(t)

	envelope := envelopeFromJSON(t, `{
		"type": "message.part.updated",
		"properties": {"part": {
			"id": "prt_1",
			"sessionID": "ses_1",
			"messageID": "msg_1",
			"type": "text",
			"text": "Hello",
			"time": {"start": 1000}
		}}
	}`)
	if !ingestor.Apply(envelope) {
		t.Fatalf("event not applied")
	}
	messages := store.Messages(sessionID)
	last := messages[len(messages)-1]
	if last.Content != "Hello" {
		t.Fatalf("content = %q", last.Content)
	}
	if len(last.Parts) != 1 || last.Parts[0].ID != "prt_1" {
		t.Fatalf("parts = %+v", last.Parts)
	}
}

func TestIngestPartUpdatedTool(t *testing.T) {
	ingestor, store, sessionID := newIngestorSession(t)

	envelope := envelopeFromJSON(t, `{
		"type": "message.part.updated",
		"properties": {"part": {
			"id": "prt_tool",
			"sessionID": "ses_1",
			"messageID": "msg_1",
			"type": "tool",
			"tool": "bash",
			"state": {
				"status": "running",
				"input": {"command": "ls"},
				"title": "List files",
				"time": {"start": 1500}
			}
		}}
	}`)
	if !ingestor.Apply(envelope) {
		t.Fatalf("event not applied")
	}
	messages := store.Messages(sessionID)
	parts := messages[len(messages)-1].Parts
	if len(parts) != 1 || !parts[0].IsTool() {
		t.Fatalf("parts = %+v", parts)
	}
	state := parts[0].State
	if state == nil || state.Status != types.ToolStatusRunning || state.Title != "List files" {
		t.Fatalf("state = %+v", state)
	}
	if state.Input["command"] != "ls" {
		t.Fatalf("input = %+v", state.Input)
	}
	if state.Time == nil || state.Time.Start != 1500 {
		t.Fatalf("time = %+v", state.Time)
	}
}

func TestIngestPartUpdatedDeltaOnly(t *testing.T) {
	ingestor, store, sessionID := newIngestorSession(t)

	for _, delta := range []string{"Hel", "lo"} {
		envelope := envelopeFromJSON(t, `{
			"type": "message.part.updated",
			"properties": {
				"part": {"id": "prt_1", "sessionID": "ses_1", "messageID": "msg_1", "type": "text"},
				"delta": "`+delta+`"
			}
		}`)
		if !ingestor.Apply(envelope) {
			t.Fatalf("delta %q not applied", delta)
		}
	}
	messages := store.Messages(sessionID)
	last := messages[len(messages)-1]
	if last.Content != "Hello" {
		t.Fatalf("content = %q", last.Content)
	}
}

func TestIngestPartUpdatedUnknownSessionDropped(t *testing.T) {
	ingestor, _, _ := newIngestorSession(t)
	envelope := envelopeFromJSON(t, `{
		"type": "message.part.updated",
		"properties": {"part": {"id": "prt_1", "sessionID": "ses_other", "type": "text", "text": "x"}}
	}`)
	if ingestor.Apply(envelope) {
		t.Fatalf("event for unknown session applied")
	}
}

func TestIngestUnknownEventTypeIgnored(t *testing.T) {
	ingestor, _, _ := newIngestorSession(t)
	envelope := envelopeFromJSON(t, `{"type": "lsp.diagnostics", "properties": {"path": "x.go"}}`)
	if ingestor.Apply(envelope) {
		t.Fatalf("unknown event type applied")
	}
}

func TestIngestMessageUpdated(t *testing.T) {
	ingestor, store, sessionID := newIngestorSession(t)

	envelope := envelopeFromJSON(t, `{
		"type": "message.updated",
		"properties": {"info": {
			"id": "msg_1",
			"sessionID": "ses_1",
			"role": "assistant",
			"modelID": "claude-sonnet-4",
			"providerID": "anthropic",
			"cost": 0.0125,
			"tokens": {"input": 1200, "output": 340, "reasoning": 80},
			"time": {"created": 1000, "completed": 2000}
		}}
	}`)
	if !ingestor.Apply(envelope) {
		t.Fatalf("event not applied")
	}
	messages := store.Messages(sessionID)
	last := messages[len(messages)-1]
	if last.ID != "msg_1" || last.ModelID != "claude-sonnet-4" || last.ProviderID != "anthropic" {
		t.Fatalf("message = %+v", last)
	}
	if last.Cost == nil || *last.Cost != 0.0125 {
		t.Fatalf("cost = %v", last.Cost)
	}
	if last.Tokens == nil || last.Tokens.Input != 1200 || last.Tokens.Reasoning != 80 {
		t.Fatalf("tokens = %+v", last.Tokens)
	}
	if last.Time == nil || last.Time.Completed == nil || *last.Time.Completed != 2000 {
		t.Fatalf("time = %+v", last.Time)
	}
}

func TestIngestSessionUpdatedRenamesTab(t *testing.T) {
	ingestor, store, _ := newIngestorSession(t)

	envelope := envelopeFromJSON(t, `{
		"type": "session.updated",
		"properties": {"info": {"id": "ses_1", "title": "Fix the flaky test"}}
	}`)
	if !ingestor.Apply(envelope) {
		t.Fatalf("event not applied")
	}
	tabs := store.Tabs()
	if len(tabs) != 1 || tabs[0].Label != "Fix the flaky test" {
		t.Fatalf("tabs = %+v", tabs)
	}
}

func TestIngestSessionStatusRecordsNotice(t *testing.T) {
	ingestor, store, sessionID := newIngestorSession(t)

	envelope := envelopeFromJSON(t, `{
		"type": "session.status",
		"properties": {
			"sessionID": "ses_1",
			"type": "retry",
			"attempt": 2,
			"message": "rate limit hit, backing off"
		}
	}`)
	if !ingestor.Apply(envelope) {
		t.Fatalf("event not applied")
	}
	notice, ok := store.Notice(sessionID)
	if !ok {
		t.Fatalf("no notice recorded")
	}
	if notice.Status != types.ToolStatusRunning {
		t.Fatalf("status = %q", notice.Status)
	}
	if notice.Input["kind"] != "rate-limit" {
		t.Fatalf("kind = %v", notice.Input["kind"])
	}
}

func TestIngestSessionErrorRecordsNotice(t *testing.T) {
	ingestor, store, sessionID := newIngestorSession(t)

	envelope := envelopeFromJSON(t, `{
		"type": "session.error",
		"properties": {
			"sessionID": "ses_1",
			"error": {"name": "ProviderAuthError", "data": {"message": "invalid API key"}}
		}
	}`)
	if !ingestor.Apply(envelope) {
		t.Fatalf("event not applied")
	}
	notice, ok := store.Notice(sessionID)
	if !ok {
		t.Fatalf("no notice recorded")
	}
	if notice.Status != types.ToolStatusError {
		t.Fatalf("status = %q", notice.Status)
	}
	if notice.Output != "invalid API key" {
		t.Fatalf("output = %q", notice.Output)
	}
}

func TestIngestSessionIdleReleasesStreamingTarget(t *testing.T) {
	ingestor, store, sessionID := newIngestorSession(t)

	envelope := envelopeFromJSON(t, `{
		"type": "session.idle",
		"properties": {"sessionID": "ses_1"}
	}`)
	if !ingestor.Apply(envelope) {
		t.Fatalf("event not applied")
	}
	if store.session(sessionID).streamingMessageID != "" {
		t.Fatalf("streaming target not released on idle")
	}
}

func TestIngestMalformedPropertiesIgnored(t *testing.T) {
	ingestor, _, _ := newIngestorSession(t)
	for _, raw := range []string{
		`{"type": "message.part.updated", "properties": {}}`,
		`{"type": "message.part.updated", "properties": {"part": "not a map"}}`,
		`{"type": "message.updated", "properties": {"info": {"role": "assistant"}}}`,
		`{"type": "session.status", "properties": {"type": "retry"}}`,
		`{"type": "session.idle", "properties": {}}`,
	} {
		if ingestor.Apply(envelopeFromJSON(t, raw)) {
			t.Fatalf("malformed envelope applied: %s", raw)
		}
	}
}
