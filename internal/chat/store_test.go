package chat

import (
	"testing"

	"mars/internal/types"
)

func TestCreateTabAllocatesLocalSession(t *testing.T) {
	store := NewStore()
	tab := store.CreateTab()
	if tab == nil {
		t.Fatalf("no tab")
	}
	if !IsLocalSessionID(tab.SessionID) {
		t.Fatalf("session id = %q, want local prefix", tab.SessionID)
	}
	if active := store.ActiveTab(); active == nil || active.ID != tab.ID {
		t.Fatalf("active tab = %v", active)
	}
	if !store.HasSession(tab.SessionID) {
		t.Fatalf("session state missing")
	}
}

func TestBindSessionMovesState(t *testing.T) {
	store := NewStore()
	tab := store.CreateTab()
	store.AppendUserMessage(tab.SessionID, "hello")

	if !store.BindSession(tab.ID, "ses_backend") {
		t.Fatalf("bind failed")
	}
	if tab.SessionID != "ses_backend" {
		t.Fatalf("session id = %q", tab.SessionID)
	}
	messages := store.Messages("ses_backend")
	if len(messages) != 1 || messages[0].Content != "hello" {
		t.Fatalf("messages = %+v", messages)
	}
}

func TestBindSessionRejectsDuplicate(t *testing.T) {
	store := NewStore()
	first := store.CreateTab()
	store.BindSession(first.ID, "ses_1")
	second := store.CreateTab()
	if store.BindSession(second.ID, "ses_1") {
		t.Fatalf("duplicate session id accepted")
	}
	if second.SessionID == "ses_1" {
		t.Fatalf("second tab stole the session")
	}
}

func TestCloseActiveTabSelectsFirstRemaining(t *testing.T) {
	store := NewStore()
	first := store.CreateTab()
	second := store.CreateTab()
	store.CreateTab()
	store.SwitchTab(second.ID)

	closed, deleteBackend := store.CloseTab(second.ID)
	if closed == nil || closed.ID != second.ID {
		t.Fatalf("closed = %v", closed)
	}
	if deleteBackend {
		t.Fatalf("local session should not request backend delete")
	}
	if active := store.ActiveTab(); active == nil || active.ID != first.ID {
		t.Fatalf("active after close = %v, want first tab", active)
	}
	if store.HasSession(second.SessionID) {
		t.Fatalf("closed session state retained")
	}
}

func TestCloseLastTabLeavesNoActive(t *testing.T) {
	store := NewStore()
	tab := store.CreateTab()
	store.CloseTab(tab.ID)
	if store.ActiveTab() != nil {
		t.Fatalf("active tab after closing the only tab")
	}
	if len(store.Tabs()) != 0 {
		t.Fatalf("tabs = %v", store.Tabs())
	}
}

func TestCloseTabBackendSessionRequestsDelete(t *testing.T) {
	store := NewStore()
	tab := store.CreateTab()
	store.BindSession(tab.ID, "ses_real")
	_, deleteBackend := store.CloseTab(tab.ID)
	if !deleteBackend {
		t.Fatalf("backend session close should request delete")
	}
}

func TestCloseInactiveTabKeepsActive(t *testing.T) {
	store := NewStore()
	first := store.CreateTab()
	second := store.CreateTab()
	store.SwitchTab(second.ID)
	store.CloseTab(first.ID)
	if active := store.ActiveTab(); active == nil || active.ID != second.ID {
		t.Fatalf("active = %v, want second tab", active)
	}
}

func TestAttachSessionRejectsDuplicate(t *testing.T) {
	store := NewStore()
	if store.AttachSession("ses_x", "work") == nil {
		t.Fatalf("attach failed")
	}
	if store.AttachSession("ses_x", "again") != nil {
		t.Fatalf("duplicate attach accepted")
	}
}

func TestAppendAssistantPlaceholderSetsStreamingTarget(t *testing.T) {
	store := NewStore()
	tab := store.CreateTab()
	placeholder := store.AppendAssistantPlaceholder(tab.SessionID)
	if placeholder == nil || placeholder.Role != types.RoleAssistant {
		t.Fatalf("placeholder = %+v", placeholder)
	}
	state := store.session(tab.SessionID)
	if state.streamingMessageID != placeholder.ID {
		t.Fatalf("streaming target = %q, want %q", state.streamingMessageID, placeholder.ID)
	}
}

func TestSetMessagesReplacesConversation(t *testing.T) {
	store := NewStore()
	tab := store.CreateTab()
	store.AppendUserMessage(tab.SessionID, "old")
	store.AppendAssistantPlaceholder(tab.SessionID)

	store.SetMessages(tab.SessionID, []types.Message{
		{ID: "m1", Role: types.RoleUser, Content: "restored"},
		{ID: "m2", Role: types.RoleAssistant, Content: "answer"},
	})
	messages := store.Messages(tab.SessionID)
	if len(messages) != 2 || messages[0].Content != "restored" {
		t.Fatalf("messages = %+v", messages)
	}
	if store.session(tab.SessionID).streamingMessageID != "" {
		t.Fatalf("streaming target should reset on history load")
	}
}

func TestNoticeLifecycle(t *testing.T) {
	store := NewStore()
	tab := store.CreateTab()
	store.SetNotice(tab.SessionID, types.SessionStatusNotice{Status: types.ToolStatusRunning, Output: "Retrying in 5s."})
	notice, ok := store.Notice(tab.SessionID)
	if !ok || notice.Output != "Retrying in 5s." {
		t.Fatalf("notice = %+v, %v", notice, ok)
	}
	store.ClearNotice(tab.SessionID)
	if _, ok := store.Notice(tab.SessionID); ok {
		t.Fatalf("notice survived clear")
	}
	store.SetNotice("ses_unknown", types.SessionStatusNotice{Output: "x"})
	if _, ok := store.Notice("ses_unknown"); ok {
		t.Fatalf("notice recorded for unknown session")
	}
}
