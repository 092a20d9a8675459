package chat

import (
	"strings"

	"mars/internal/types"
)

// ApplyTextDelta appends a streamed text fragment to the session's streaming
// assistant message. When the backend message id differs from the local
// placeholder id, the placeholder adopts it so later part updates land on
// the same message. Returns false when the event did not change state.
func (s *Store) ApplyTextDelta(sessionID, messageID, delta string) bool {
	state := s.session(sessionID)
	if state == nil || s.shouldDrop(sessionID) {
		return false
	}
	target := state.resolveStreamingMessage(messageID)
	if target == nil {
		return false
	}
	if delta == "" {
		return false
	}
	target.Content += delta
	return true
}

// ApplyPartUpdate upserts one typed part into its message. An update for a
// known part id replaces the stored part in place; a new part is inserted in
// timestamp order, with untimed parts appended at the end. Tool parts whose
// status would move backwards along the lifecycle are dropped so a stale
// "running" can never overwrite a "completed". Text part updates carry the
// cumulative text, so the message content is rebuilt from the text parts
// after each one.
func (s *Store) ApplyPartUpdate(sessionID string, part types.Part) bool {
	state := s.session(sessionID)
	if state == nil || s.shouldDrop(sessionID) {
		return false
	}
	if part.ID == "" || part.Type == "" {
		return false
	}
	target := state.resolveStreamingMessage(part.MessageID)
	if target == nil {
		return false
	}

	for i := range target.Parts {
		if target.Parts[i].ID != part.ID {
			continue
		}
		if regressesToolStatus(target.Parts[i], part) {
			return false
		}
		// Replacement keeps the part's position even if its timestamp
		// changed; reordering mid-stream makes the transcript jump.
		target.Parts[i] = part
		if part.IsText() {
			rebuildContent(target)
		}
		return true
	}

	target.Parts = insertPartOrdered(target.Parts, part)
	if part.IsText() {
		rebuildContent(target)
	}
	return true
}

// ApplyMessageInfo merges server-side message metadata into the session. A
// placeholder streaming message adopts the backend id on first contact; once
// the message reports a completed time the streaming target is released.
func (s *Store) ApplyMessageInfo(sessionID string, info types.Message) bool {
	state := s.session(sessionID)
	if state == nil || s.shouldDrop(sessionID) {
		return false
	}
	if info.ID == "" {
		return false
	}
	target := state.resolveStreamingMessage(info.ID)
	if target == nil {
		return false
	}
	if info.Role != "" {
		target.Role = info.Role
	}
	if info.ModelID != "" {
		target.ModelID = info.ModelID
	}
	if info.ProviderID != "" {
		target.ProviderID = info.ProviderID
	}
	if info.Cost != nil {
		target.Cost = info.Cost
	}
	if info.Tokens != nil {
		target.Tokens = info.Tokens
	}
	if info.Time != nil {
		target.Time = info.Time
		if info.Time.Completed != nil && state.streamingMessageID == target.ID {
			state.streamingMessageID = ""
		}
	}
	return true
}

// resolveStreamingMessage finds the message an incoming event targets. A
// matching stored id wins; otherwise the streaming placeholder is adopted
// and re-keyed to the backend id. With no placeholder, the last assistant
// message absorbs the event so history reloads mid-stream do not orphan it.
func (state *sessionState) resolveStreamingMessage(messageID string) *types.Message {
	messageID = strings.TrimSpace(messageID)
	if messageID != "" {
		for _, message := range state.messages {
			if message.ID == messageID {
				return message
			}
		}
	}
	if state.streamingMessageID != "" {
		for _, message := range state.messages {
			if message.ID == state.streamingMessageID {
				if messageID != "" {
					message.ID = messageID
					state.streamingMessageID = messageID
				}
				return message
			}
		}
		state.streamingMessageID = ""
	}
	for i := len(state.messages) - 1; i >= 0; i-- {
		if state.messages[i].Role == types.RoleAssistant {
			return state.messages[i]
		}
	}
	return nil
}

func regressesToolStatus(stored, incoming types.Part) bool {
	if !stored.IsTool() || !incoming.IsTool() {
		return false
	}
	if stored.State == nil || incoming.State == nil {
		return false
	}
	return types.ToolStatusRank(incoming.State.Status) < types.ToolStatusRank(stored.State.Status)
}

// insertPartOrdered places a new part by its start timestamp. Parts without
// a timestamp sort after every timed part, in arrival order.
func insertPartOrdered(parts []types.Part, part types.Part) []types.Part {
	start := part.StartMillis()
	if start == 0 {
		return append(parts, part)
	}
	at := len(parts)
	for i := range parts {
		existing := parts[i].StartMillis()
		if existing == 0 || existing > start {
			at = i
			break
		}
	}
	parts = append(parts, types.Part{})
	copy(parts[at+1:], parts[at:])
	parts[at] = part
	return parts
}

func rebuildContent(message *types.Message) {
	var b strings.Builder
	for i := range message.Parts {
		if message.Parts[i].IsText() {
			b.WriteString(message.Parts[i].Text)
		}
	}
	message.Content = b.String()
}
