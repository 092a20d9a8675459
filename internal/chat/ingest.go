package chat

import (
	"time"

	"mars/internal/logging"
	"mars/internal/types"
)

// Event types routed by the ingestor. Everything else is ignored.
const (
	eventPartUpdated    = "message.part.updated"
	eventMessageUpdated = "message.updated"
	eventSessionUpdated = "session.updated"
	eventSessionStatus  = "session.status"
	eventSessionError   = "session.error"
	eventSessionIdle    = "session.idle"
)

// Ingestor routes server event envelopes into the store. It runs on the
// event-loop goroutine; Apply never blocks and never fails, malformed or
// irrelevant envelopes are dropped with a debug line at most.
type Ingestor struct {
	store *Store
	log   logging.Logger
	// now is injectable for notice derivation tests.
	now func() time.Time
}

func NewIngestor(store *Store, log logging.Logger) *Ingestor {
	if log == nil {
		log = logging.Nop()
	}
	return &Ingestor{store: store, log: log, now: time.Now}
}

// Apply routes one envelope. The return reports whether visible session
// state changed, so the caller knows when to redraw.
func (in *Ingestor) Apply(envelope types.Envelope) bool {
	if in == nil || in.store == nil {
		return false
	}
	switch envelope.Type {
	case eventPartUpdated:
		return in.applyPartUpdated(envelope.Properties)
	case eventMessageUpdated:
		return in.applyMessageUpdated(envelope.Properties)
	case eventSessionUpdated:
		return in.applySessionUpdated(envelope.Properties)
	case eventSessionStatus:
		return in.applySessionStatus(envelope.Properties)
	case eventSessionError:
		return in.applySessionError(envelope.Properties)
	case eventSessionIdle:
		return in.applySessionIdle(envelope.Properties)
	default:
		in.log.Debug("event ignored", logging.F("type", envelope.Type))
		return false
	}
}

func (in *Ingestor) applyPartUpdated(properties map[string]any) bool {
	record, _ := properties["part"].(map[string]any)
	if record == nil {
		return false
	}
	part := decodePart(record)
	if part.SessionID == "" || !in.store.HasSession(part.SessionID) {
		// Events for sessions without an open tab are expected when other
		// clients share the server.
		return false
	}
	if delta := asString(properties["delta"]); delta != "" &&
		part.Type == types.PartTypeText && part.Text == "" {
		// Delta-only update: no cumulative text to upsert, append the
		// fragment to the streaming message directly.
		return in.store.ApplyTextDelta(part.SessionID, part.MessageID, delta)
	}
	switch part.Type {
	case types.PartTypeText, types.PartTypeReasoning, types.PartTypeTool,
		types.PartTypeStepStart, types.PartTypeStepFinish:
		return in.store.ApplyPartUpdate(part.SessionID, part)
	default:
		in.log.Debug("part type ignored", logging.F("type", part.Type))
		return false
	}
}

func (in *Ingestor) applyMessageUpdated(properties map[string]any) bool {
	record, _ := properties["info"].(map[string]any)
	if record == nil {
		return false
	}
	sessionID := asString(record["sessionID"])
	if sessionID == "" || !in.store.HasSession(sessionID) {
		return false
	}
	return in.store.ApplyMessageInfo(sessionID, decodeMessageInfo(record))
}

func (in *Ingestor) applySessionUpdated(properties map[string]any) bool {
	record, _ := properties["info"].(map[string]any)
	if record == nil {
		return false
	}
	sessionID := asString(record["id"])
	title := asString(record["title"])
	if sessionID == "" || title == "" {
		return false
	}
	tab := in.store.findTabBySession(sessionID)
	if tab == nil {
		return false
	}
	in.store.SetTabLabel(tab.ID, title)
	return true
}

func (in *Ingestor) applySessionStatus(properties map[string]any) bool {
	event := decodeStatusEvent(properties)
	if event.SessionID == "" || !in.store.HasSession(event.SessionID) {
		return false
	}
	notice := BuildStatusNotice(event, in.now())
	in.store.SetNotice(event.SessionID, notice)
	return true
}

// applySessionError folds the distinct error event shape into the same
// notice pipeline as status events.
func (in *Ingestor) applySessionError(properties map[string]any) bool {
	sessionID := asString(properties["sessionID"])
	if sessionID == "" || !in.store.HasSession(sessionID) {
		return false
	}
	message := ""
	if errRecord, ok := properties["error"].(map[string]any); ok {
		if data, ok := errRecord["data"].(map[string]any); ok {
			message = asString(data["message"])
		}
		if message == "" {
			message = asString(errRecord["message"])
		}
		if message == "" {
			message = asString(errRecord["name"])
		}
	}
	notice := BuildStatusNotice(types.StatusEvent{
		SessionID: sessionID,
		Type:      statusEventError,
		Message:   message,
	}, in.now())
	in.store.SetNotice(sessionID, notice)
	return true
}

func (in *Ingestor) applySessionIdle(properties map[string]any) bool {
	sessionID := asString(properties["sessionID"])
	state := in.store.session(sessionID)
	if state == nil {
		return false
	}
	state.streamingMessageID = ""
	return true
}

func decodePart(record map[string]any) types.Part {
	part := types.Part{
		ID:        asString(record["id"]),
		SessionID: asString(record["sessionID"]),
		MessageID: asString(record["messageID"]),
		Type:      asString(record["type"]),
		Text:      asString(record["text"]),
		Time:      decodePartTime(record["time"]),
	}
	if part.Type == types.PartTypeTool {
		part.Tool = asString(record["tool"])
		part.State = decodeToolState(record["state"])
	}
	return part
}

func decodePartTime(raw any) *types.PartTime {
	record, _ := raw.(map[string]any)
	if record == nil {
		return nil
	}
	start, ok := asFloat(record["start"])
	if !ok {
		return nil
	}
	partTime := &types.PartTime{Start: start}
	if end, ok := asFloat(record["end"]); ok {
		partTime.End = &end
	}
	return partTime
}

func decodeToolState(raw any) *types.ToolState {
	record, _ := raw.(map[string]any)
	if record == nil {
		return nil
	}
	state := &types.ToolState{
		Status: asString(record["status"]),
		Output: asString(record["output"]),
		Error:  asString(record["error"]),
		Title:  asString(record["title"]),
		Time:   decodePartTime(record["time"]),
	}
	if input, ok := record["input"].(map[string]any); ok {
		state.Input = input
	}
	if metadata, ok := record["metadata"].(map[string]any); ok {
		state.Metadata = metadata
	}
	return state
}

func decodeMessageInfo(record map[string]any) types.Message {
	info := types.Message{
		ID:         asString(record["id"]),
		Role:       asString(record["role"]),
		ModelID:    asString(record["modelID"]),
		ProviderID: asString(record["providerID"]),
	}
	if cost, ok := asFloat(record["cost"]); ok {
		info.Cost = &cost
	}
	if tokens, ok := record["tokens"].(map[string]any); ok {
		usage := &types.TokenUsage{}
		if v, ok := asInt(tokens["input"]); ok {
			usage.Input = v
		}
		if v, ok := asInt(tokens["output"]); ok {
			usage.Output = v
		}
		if v, ok := asInt(tokens["reasoning"]); ok {
			usage.Reasoning = v
		}
		info.Tokens = usage
	}
	if timeRecord, ok := record["time"].(map[string]any); ok {
		messageTime := &types.MessageTime{}
		if created, ok := asFloat(timeRecord["created"]); ok {
			messageTime.Created = created
		}
		if completed, ok := asFloat(timeRecord["completed"]); ok {
			messageTime.Completed = &completed
		}
		info.Time = messageTime
	}
	return info
}

func decodeStatusEvent(properties map[string]any) types.StatusEvent {
	event := types.StatusEvent{
		SessionID: asString(properties["sessionID"]),
		Type:      asString(properties["type"]),
		Message:   asString(properties["message"]),
	}
	if attempt, ok := asInt(properties["attempt"]); ok {
		event.Attempt = &attempt
	}
	if next, ok := asFloat(properties["next"]); ok {
		event.Next = &next
	}
	// Some server builds nest the status record one level down.
	if status, ok := properties["status"].(map[string]any); ok {
		if event.Type == "" {
			event.Type = asString(status["type"])
		}
		if event.Message == "" {
			event.Message = asString(status["message"])
		}
		if event.Attempt == nil {
			if attempt, ok := asInt(status["attempt"]); ok {
				event.Attempt = &attempt
			}
		}
		if event.Next == nil {
			if next, ok := asFloat(status["next"]); ok {
				event.Next = &next
			}
		}
	}
	return event
}
