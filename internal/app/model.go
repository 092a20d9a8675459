package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mars/internal/chat"
	"mars/internal/config"
	"mars/internal/logging"
	"mars/internal/opencode"
	"mars/internal/store"
	"mars/internal/types"
)

const (
	minContentHeight = 4
	inputHeight      = 3
	flashDuration    = 4 * time.Second
)

type Model struct {
	cfg     config.Config
	log     logging.Logger
	client  *opencode.Client
	server  *opencode.Server
	recents store.RecentStore

	store  *chat.Store
	ingest *chat.Ingestor

	events       <-chan types.Envelope
	cancelEvents func()

	viewport viewport.Model
	input    textarea.Model
	loader   spinner.Model

	width      int
	height     int
	connecting bool
	connectErr error
	flash      string
	flashIsErr bool
	busy       map[string]bool
	follow     bool
}

func NewModel(cfg config.Config, recents store.RecentStore, log logging.Logger) Model {
	if log == nil {
		log = logging.Nop()
	}
	chatStore := chat.NewStore()
	chatStore.SetDropEventsAfterAbort(cfg.Chat.DropEventsAfterAbort)
	chatStore.CreateTab()

	input := textarea.New()
	input.Placeholder = "Type a prompt…"
	input.Prompt = inputPromptStyle.Render("> ")
	input.SetHeight(inputHeight - 1)
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.Focus()

	loader := spinner.New()
	loader.Spinner = spinner.MiniDot

	vp := viewport.New(40, minContentHeight)

	return Model{
		cfg:        cfg,
		log:        log,
		recents:    recents,
		store:      chatStore,
		ingest:     chat.NewIngestor(chatStore, log.With(logging.F("component", "ingest"))),
		viewport:   vp,
		input:      input,
		loader:     loader,
		connecting: true,
		busy:       map[string]bool{},
		follow:     true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		connectCmd(m.cfg, m.log),
		m.loader.Tick,
		textarea.Blink,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case spinner.TickMsg:
		if !m.connecting && !m.anyBusy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.loader, cmd = m.loader.Update(msg)
		return m, cmd

	case connectedMsg:
		m.connecting = false
		m.client = msg.client
		m.server = msg.server
		m.log.Info("connected", logging.F("base_url", msg.client.BaseURL()))
		return m, subscribeCmd(m.client)

	case connectFailedMsg:
		m.connecting = false
		m.connectErr = msg.err
		m.log.Error("connect failed", logging.F("error", msg.err))
		return m, nil

	case subscribedMsg:
		m.events = msg.events
		m.cancelEvents = msg.cancel
		return m, waitForEventCmd(m.events)

	case envelopeMsg:
		if !msg.ok {
			// Stream ended; resubscribe unless we are shutting down.
			if m.client != nil {
				return m, subscribeCmd(m.client)
			}
			return m, nil
		}
		if m.ingest.Apply(msg.envelope) {
			m.refreshViewport()
		}
		switch msg.envelope.Type {
		case "session.idle", "session.error":
			if sessionID, ok := msg.envelope.Properties["sessionID"].(string); ok {
				delete(m.busy, sessionID)
			}
		}
		return m, waitForEventCmd(m.events)

	case promptResultMsg:
		return m.updatePromptResult(msg)

	case historyLoadedMsg:
		if msg.err != nil {
			return m.withFlash("history load failed: "+msg.err.Error(), true)
		}
		m.store.SetMessages(msg.sessionID, msg.messages)
		m.refreshViewport()
		return m, nil

	case recentsLoadedMsg:
		return m.updateRecentsLoaded(msg)

	case abortResultMsg:
		delete(m.busy, msg.sessionID)
		if msg.err != nil {
			return m.withFlash("abort failed: "+msg.err.Error(), true)
		}
		return m.withFlash("aborted", false)

	case sessionDeletedMsg:
		if msg.err != nil {
			m.log.Warn("session delete failed",
				logging.F("session_id", msg.sessionID),
				logging.F("error", msg.err))
		}
		return m, nil

	case flashMsg:
		m.flash = msg.text
		m.flashIsErr = msg.isErr
		return m, clearFlashAfter(flashDuration)

	case clearFlashMsg:
		m.flash = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.shutdown()
		return m, tea.Quit

	case "enter":
		return m.submitPrompt()

	case "ctrl+n":
		m.store.CreateTab()
		m.refreshViewport()
		return m, nil

	case "ctrl+w":
		return m.closeActiveTab()

	case "ctrl+left":
		m.cycleTab(-1)
		m.refreshViewport()
		return m, nil

	case "ctrl+right":
		m.cycleTab(1)
		m.refreshViewport()
		return m, nil

	case "ctrl+r":
		return m, loadRecentsCmd(m.recents)

	case "ctrl+y":
		return m.copyLastReply()

	case "esc":
		return m.abortActive()

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.follow = false
		m.viewport, cmd = m.viewport.Update(msg)
		if m.viewport.AtBottom() {
			m.follow = true
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitPrompt() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.client == nil {
		return m.withFlash("not connected", true)
	}
	tab := m.store.ActiveTab()
	if tab == nil {
		tab = m.store.CreateTab()
	}
	if m.busy[tab.SessionID] {
		return m.withFlash("turn in progress (esc to abort)", true)
	}

	m.store.AppendUserMessage(tab.SessionID, text)
	m.store.AppendAssistantPlaceholder(tab.SessionID)
	m.store.ClearNotice(tab.SessionID)
	m.busy[tab.SessionID] = true
	m.input.Reset()
	m.follow = true
	m.refreshViewport()

	opts := opencode.PromptOptions{Model: m.cfg.Chat.Model, Agent: m.cfg.Chat.Agent}
	return m, tea.Batch(
		sendPromptCmd(m.client, tab.ID, tab.SessionID, text, opts),
		m.loader.Tick,
	)
}

func (m Model) updatePromptResult(msg promptResultMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if msg.session != nil {
		oldSessionID := ""
		for _, tab := range m.store.Tabs() {
			if tab.ID == msg.tabID {
				oldSessionID = tab.SessionID
				break
			}
		}
		if m.store.BindSession(msg.tabID, msg.session.ID) {
			if oldSessionID != "" {
				delete(m.busy, oldSessionID)
			}
			m.busy[msg.session.ID] = true
			if title := strings.TrimSpace(msg.session.Title); title != "" {
				m.store.SetTabLabel(msg.tabID, title)
			}
			cmds = append(cmds, rememberSessionCmd(m.recents, msg.session))
		}
	}
	if msg.err != nil {
		for _, tab := range m.store.Tabs() {
			if tab.ID == msg.tabID {
				delete(m.busy, tab.SessionID)
				break
			}
		}
		m.log.Error("prompt failed", logging.F("error", msg.err))
		model, cmd := m.withFlash("send failed: "+msg.err.Error(), true)
		cmds = append(cmds, cmd)
		return model, tea.Batch(cmds...)
	}
	m.refreshViewport()
	return m, tea.Batch(cmds...)
}

func (m Model) updateRecentsLoaded(msg recentsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m.withFlash("recents unavailable: "+msg.err.Error(), true)
	}
	for _, record := range msg.records {
		if record == nil || record.Session == nil {
			continue
		}
		tab := m.store.AttachSession(record.Session.ID, record.Session.Title)
		if tab == nil {
			// Already open; just focus it.
			for _, open := range m.store.Tabs() {
				if open.SessionID == record.Session.ID {
					m.store.SwitchTab(open.ID)
					break
				}
			}
			m.refreshViewport()
			return m, nil
		}
		m.refreshViewport()
		if m.client == nil {
			return m, nil
		}
		return m, loadHistoryCmd(m.client, record.Session.ID)
	}
	return m.withFlash("no recent sessions", false)
}

func (m Model) closeActiveTab() (tea.Model, tea.Cmd) {
	tab := m.store.ActiveTab()
	if tab == nil {
		return m, nil
	}
	closed, deleteBackend := m.store.CloseTab(tab.ID)
	if closed == nil {
		return m, nil
	}
	delete(m.busy, closed.SessionID)
	m.refreshViewport()
	var cmds []tea.Cmd
	if deleteBackend && m.client != nil {
		cmds = append(cmds, deleteSessionCmd(m.client, closed.SessionID))
		cmds = append(cmds, forgetSessionCmd(m.recents, closed.SessionID))
	}
	if len(m.store.Tabs()) == 0 {
		m.store.CreateTab()
		m.refreshViewport()
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) cycleTab(direction int) {
	tabs := m.store.Tabs()
	if len(tabs) < 2 {
		return
	}
	active := m.store.ActiveTab()
	if active == nil {
		m.store.SwitchTab(tabs[0].ID)
		return
	}
	for i, tab := range tabs {
		if tab.ID == active.ID {
			next := (i + direction + len(tabs)) % len(tabs)
			m.store.SwitchTab(tabs[next].ID)
			return
		}
	}
}

func (m Model) copyLastReply() (tea.Model, tea.Cmd) {
	tab := m.store.ActiveTab()
	if tab == nil {
		return m, nil
	}
	messages := m.store.Messages(tab.SessionID)
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleAssistant && strings.TrimSpace(messages[i].Content) != "" {
			if _, err := copyTextToClipboard(messages[i].Content); err != nil {
				return m.withFlash(err.Error(), true)
			}
			return m.withFlash("reply copied", false)
		}
	}
	return m.withFlash("nothing to copy", false)
}

func (m Model) abortActive() (tea.Model, tea.Cmd) {
	tab := m.store.ActiveTab()
	if tab == nil || m.client == nil {
		return m, nil
	}
	if !m.busy[tab.SessionID] {
		return m, nil
	}
	m.store.MarkAborted(tab.SessionID)
	if chat.IsLocalSessionID(tab.SessionID) {
		delete(m.busy, tab.SessionID)
		return m, nil
	}
	return m, abortCmd(m.client, tab.SessionID)
}

func (m Model) withFlash(text string, isErr bool) (tea.Model, tea.Cmd) {
	return m, flashCmd(text, isErr)
}

func (m *Model) shutdown() {
	if m.cancelEvents != nil {
		m.cancelEvents()
	}
	if m.server != nil {
		m.server.Stop()
	}
	if m.recents != nil {
		_ = m.recents.Close()
	}
}

func (m *Model) layout() {
	contentHeight := m.height - 1 - inputHeight - 1
	if contentHeight < minContentHeight {
		contentHeight = minContentHeight
	}
	m.viewport.Width = m.width
	m.viewport.Height = contentHeight
	m.input.SetWidth(m.width - 2)
}

func (m *Model) refreshViewport() {
	tab := m.store.ActiveTab()
	if tab == nil {
		m.viewport.SetContent(emptyStateStyle.Render("No open tabs. ctrl+n opens one."))
		return
	}
	var notice *types.SessionStatusNotice
	if n, ok := m.store.Notice(tab.SessionID); ok {
		notice = &n
	}
	streaming := m.busy[tab.SessionID]
	content := renderTranscript(m.store.Messages(tab.SessionID), notice, m.viewport.Width, streaming)
	m.viewport.SetContent(content)
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) anyBusy() bool {
	return len(m.busy) > 0
}

func (m Model) View() string {
	if m.width == 0 {
		return "starting…"
	}
	var b strings.Builder
	b.WriteString(renderTabBar(m.store.Tabs(), activeTabID(m.store), m.width))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) statusLine() string {
	switch {
	case m.connecting:
		return statusStyle.Render(m.loader.View() + " connecting…")
	case m.connectErr != nil:
		return errorStatusStyle.Render("connection failed: " + m.connectErr.Error())
	case m.flash != "":
		if m.flashIsErr {
			return errorStatusStyle.Render(m.flash)
		}
		return statusStyle.Render(m.flash)
	}
	tab := m.store.ActiveTab()
	if tab != nil && m.busy[tab.SessionID] {
		return statusStyle.Render(m.loader.View() + " thinking… (esc to abort)")
	}
	help := "enter send · ctrl+n new tab · ctrl+w close · ctrl+←/→ switch · ctrl+r recent · ctrl+y copy · ctrl+c quit"
	return helpStyle.Render(lipgloss.NewStyle().MaxWidth(maxInt(m.width, 10)).Render(help))
}

func activeTabID(s *chat.Store) string {
	if tab := s.ActiveTab(); tab != nil {
		return tab.ID
	}
	return ""
}
