package chat

import (
	"fmt"
	"strings"

	"mars/internal/types"
)

// Id prefixes distinguishing locally allocated fallbacks from
// backend-issued ids.
const (
	localSessionIDPrefix = "local_"
	localMessageIDPrefix = "msg_"
	tabIDPrefix          = "tab_"
)

// IsLocalSessionID reports whether a session id was allocated by this client
// as a fallback when backend session creation failed. Only backend-issued
// ids are worth a delete request on tab close.
func IsLocalSessionID(id string) bool {
	return strings.HasPrefix(id, localSessionIDPrefix)
}

type sessionState struct {
	messages []*types.Message
	// streamingMessageID names the assistant placeholder appended by the
	// send flow; deltas target it directly instead of inferring the last
	// list entry.
	streamingMessageID string
	aborted            bool
}

// Store owns the open tabs and their per-session conversation state. All
// mutation happens on the single event-loop goroutine: one envelope is fully
// applied before the next begins, so no locking is needed here.
type Store struct {
	tabs        []*types.Tab
	activeTabID string
	sessions    map[string]*sessionState
	notices     map[string]types.SessionStatusNotice
	// dropAfterAbort suppresses events that arrive after an explicit abort.
	// Off by default: late events are applied as usual.
	dropAfterAbort bool
	nextID         int
}

func NewStore() *Store {
	return &Store{
		sessions: map[string]*sessionState{},
		notices:  map[string]types.SessionStatusNotice{},
	}
}

func (s *Store) SetDropEventsAfterAbort(drop bool) {
	if s == nil {
		return
	}
	s.dropAfterAbort = drop
}

// Tabs returns the open tabs in display order.
func (s *Store) Tabs() []*types.Tab {
	if s == nil {
		return nil
	}
	out := make([]*types.Tab, len(s.tabs))
	copy(out, s.tabs)
	return out
}

func (s *Store) ActiveTab() *types.Tab {
	if s == nil || s.activeTabID == "" {
		return nil
	}
	for _, tab := range s.tabs {
		if tab.ID == s.activeTabID {
			return tab
		}
	}
	return nil
}

// CreateTab opens a new conversation bound to a locally allocated session id
// so the UI stays responsive before the backend confirms. BindSession swaps
// in the backend id once creation succeeds; if it never does, the tab keeps
// working against the local id as a degraded fallback.
func (s *Store) CreateTab() *types.Tab {
	if s == nil {
		return nil
	}
	s.nextID++
	tab := &types.Tab{
		ID:        fmt.Sprintf("%s%d", tabIDPrefix, s.nextID),
		SessionID: fmt.Sprintf("%s%d", localSessionIDPrefix, s.nextID),
		Label:     "New chat",
	}
	s.tabs = append(s.tabs, tab)
	s.sessions[tab.SessionID] = &sessionState{}
	s.activeTabID = tab.ID
	return tab
}

// BindSession re-keys a tab from its local fallback id to the backend
// session id. Conversation state accumulated under the local id moves with
// it.
func (s *Store) BindSession(tabID, sessionID string) bool {
	if s == nil {
		return false
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return false
	}
	for _, tab := range s.tabs {
		if tab.ID != tabID {
			continue
		}
		if tab.SessionID == sessionID {
			return true
		}
		if s.findTabBySession(sessionID) != nil {
			// Session ids are unique across open tabs.
			return false
		}
		state := s.sessions[tab.SessionID]
		if state == nil {
			state = &sessionState{}
		}
		delete(s.sessions, tab.SessionID)
		tab.SessionID = sessionID
		s.sessions[sessionID] = state
		return true
	}
	return false
}

// AttachSession opens a tab for an existing backend session, e.g. from the
// recents list. Duplicate session ids are rejected.
func (s *Store) AttachSession(sessionID, label string) *types.Tab {
	if s == nil {
		return nil
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || s.findTabBySession(sessionID) != nil {
		return nil
	}
	s.nextID++
	if strings.TrimSpace(label) == "" {
		label = sessionID
	}
	tab := &types.Tab{
		ID:        fmt.Sprintf("%s%d", tabIDPrefix, s.nextID),
		SessionID: sessionID,
		Label:     label,
	}
	s.tabs = append(s.tabs, tab)
	s.sessions[sessionID] = &sessionState{}
	s.activeTabID = tab.ID
	return tab
}

func (s *Store) SwitchTab(tabID string) bool {
	if s == nil {
		return false
	}
	for _, tab := range s.tabs {
		if tab.ID == tabID {
			s.activeTabID = tab.ID
			return true
		}
	}
	return false
}

// CloseTab removes a tab and its session state. When the active tab closes,
// the first remaining tab becomes active; with none left there is no active
// tab. The second return reports whether the caller should request backend
// session deletion (never for local fallback ids).
func (s *Store) CloseTab(tabID string) (*types.Tab, bool) {
	if s == nil {
		return nil, false
	}
	for i, tab := range s.tabs {
		if tab.ID != tabID {
			continue
		}
		s.tabs = append(s.tabs[:i], s.tabs[i+1:]...)
		delete(s.sessions, tab.SessionID)
		delete(s.notices, tab.SessionID)
		if s.activeTabID == tab.ID {
			s.activeTabID = ""
			if len(s.tabs) > 0 {
				s.activeTabID = s.tabs[0].ID
			}
		}
		return tab, !IsLocalSessionID(tab.SessionID)
	}
	return nil, false
}

func (s *Store) SetTabLabel(tabID, label string) {
	if s == nil || strings.TrimSpace(label) == "" {
		return
	}
	for _, tab := range s.tabs {
		if tab.ID == tabID {
			tab.Label = strings.TrimSpace(label)
			return
		}
	}
}

func (s *Store) findTabBySession(sessionID string) *types.Tab {
	for _, tab := range s.tabs {
		if tab.SessionID == sessionID {
			return tab
		}
	}
	return nil
}

func (s *Store) session(sessionID string) *sessionState {
	if s == nil {
		return nil
	}
	return s.sessions[sessionID]
}

// HasSession reports whether a tab is bound to the session id.
func (s *Store) HasSession(sessionID string) bool {
	return s.session(sessionID) != nil
}

// AppendUserMessage records a user turn in the session's conversation.
func (s *Store) AppendUserMessage(sessionID, content string) *types.Message {
	state := s.session(sessionID)
	if state == nil {
		return nil
	}
	s.nextID++
	message := &types.Message{
		ID:      fmt.Sprintf("%s%d", localMessageIDPrefix, s.nextID),
		Role:    types.RoleUser,
		Content: content,
	}
	state.messages = append(state.messages, message)
	return message
}

// AppendAssistantPlaceholder appends the empty assistant message that
// incoming deltas will fill, and marks it as the streaming target.
func (s *Store) AppendAssistantPlaceholder(sessionID string) *types.Message {
	state := s.session(sessionID)
	if state == nil {
		return nil
	}
	s.nextID++
	message := &types.Message{
		ID:   fmt.Sprintf("%s%d", localMessageIDPrefix, s.nextID),
		Role: types.RoleAssistant,
	}
	state.messages = append(state.messages, message)
	state.streamingMessageID = message.ID
	state.aborted = false
	return message
}

// Messages returns a snapshot of the session conversation.
func (s *Store) Messages(sessionID string) []types.Message {
	state := s.session(sessionID)
	if state == nil {
		return nil
	}
	out := make([]types.Message, 0, len(state.messages))
	for _, message := range state.messages {
		out = append(out, *message)
	}
	return out
}

// SetMessages replaces the session conversation, used when loading history
// for an attached session. The streaming target resets; the next placeholder
// re-establishes it.
func (s *Store) SetMessages(sessionID string, messages []types.Message) {
	state := s.session(sessionID)
	if state == nil {
		return
	}
	state.messages = make([]*types.Message, 0, len(messages))
	for i := range messages {
		message := messages[i]
		state.messages = append(state.messages, &message)
	}
	state.streamingMessageID = ""
}

// MarkAborted records an explicit user abort for the session. Whether
// late-arriving events are then dropped is governed by
// SetDropEventsAfterAbort.
func (s *Store) MarkAborted(sessionID string) {
	if state := s.session(sessionID); state != nil {
		state.aborted = true
	}
}

func (s *Store) shouldDrop(sessionID string) bool {
	state := s.session(sessionID)
	if state == nil {
		// Unknown session: the tab was closed while events were in flight.
		return true
	}
	return s.dropAfterAbort && state.aborted
}

// SetNotice records the latest derived status notice for a session. Notices
// live apart from the canonical message state so re-deriving them stays
// pure.
func (s *Store) SetNotice(sessionID string, notice types.SessionStatusNotice) {
	if s == nil || s.session(sessionID) == nil {
		return
	}
	s.notices[sessionID] = notice
}

func (s *Store) Notice(sessionID string) (types.SessionStatusNotice, bool) {
	if s == nil {
		return types.SessionStatusNotice{}, false
	}
	notice, ok := s.notices[sessionID]
	return notice, ok
}

// ClearNotice drops the session's notice, e.g. once a new turn starts.
func (s *Store) ClearNotice(sessionID string) {
	if s == nil {
		return
	}
	delete(s.notices, sessionID)
}
