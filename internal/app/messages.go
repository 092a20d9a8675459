package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mars/internal/chat"
	"mars/internal/config"
	"mars/internal/logging"
	"mars/internal/opencode"
	"mars/internal/store"
	"mars/internal/types"
)

// Messages flowing through the bubbletea update loop. All backend work runs
// in commands; the loop itself never blocks on the network.

type connectedMsg struct {
	client *opencode.Client
	server *opencode.Server
}

type connectFailedMsg struct {
	err error
}

type subscribedMsg struct {
	events <-chan types.Envelope
	cancel func()
}

type envelopeMsg struct {
	envelope types.Envelope
	ok       bool
}

// promptResultMsg reports a full send flow: optional session creation, then
// the prompt submission.
type promptResultMsg struct {
	tabID   string
	session *types.Session
	err     error
}

type historyLoadedMsg struct {
	sessionID string
	messages  []types.Message
	err       error
}

type recentsLoadedMsg struct {
	records []*types.SessionRecord
	err     error
}

type abortResultMsg struct {
	sessionID string
	err       error
}

type sessionDeletedMsg struct {
	sessionID string
	err       error
}

type flashMsg struct {
	text  string
	isErr bool
}

type clearFlashMsg struct{}

const requestTimeout = 15 * time.Second

var errNoServer = errors.New("autostart disabled and no server.base_url configured")

// connectCmd establishes the backend: an external server when base_url is
// configured, a managed spawn otherwise.
func connectCmd(cfg config.Config, log logging.Logger) tea.Cmd {
	return func() tea.Msg {
		if baseURL := cfg.ServerBaseURL(); baseURL != "" {
			client, err := opencode.NewClient(opencode.Config{BaseURL: baseURL}, log)
			if err != nil {
				return connectFailedMsg{err: err}
			}
			return connectedMsg{client: client}
		}
		if !cfg.AutostartEnabled() {
			return connectFailedMsg{err: errNoServer}
		}
		logPath, _ := config.ServerLogPath()
		server := opencode.NewServer(opencode.ServerConfig{
			Binary:       cfg.Server.Binary,
			Hostname:     cfg.ServerHostname(),
			Port:         cfg.Server.Port,
			Directory:    cfg.Server.Directory,
			LogPath:      logPath,
			ReadyTimeout: time.Duration(cfg.ReadyTimeoutSeconds()) * time.Second,
		}, log)
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ReadyTimeoutSeconds()+5)*time.Second)
		defer cancel()
		if err := server.Start(ctx); err != nil {
			return connectFailedMsg{err: err}
		}
		client, err := opencode.NewClient(opencode.Config{BaseURL: server.BaseURL()}, log)
		if err != nil {
			server.Stop()
			return connectFailedMsg{err: err}
		}
		return connectedMsg{client: client, server: server}
	}
}

func subscribeCmd(client *opencode.Client) tea.Cmd {
	return func() tea.Msg {
		events, cancel, err := client.Subscribe(context.Background())
		if err != nil {
			return connectFailedMsg{err: err}
		}
		return subscribedMsg{events: events, cancel: cancel}
	}
}

// waitForEventCmd blocks on the event channel; Update re-issues it after
// each envelope so exactly one reader exists at a time.
func waitForEventCmd(events <-chan types.Envelope) tea.Cmd {
	return func() tea.Msg {
		envelope, ok := <-events
		return envelopeMsg{envelope: envelope, ok: ok}
	}
}

// sendPromptCmd runs the whole send flow for one tab: create the backend
// session when the tab still runs on a local fallback id, then submit the
// prompt. On failure the tab keeps its local id and the error is reported;
// no retry happens here.
func sendPromptCmd(client *opencode.Client, tabID, sessionID, text string, opts opencode.PromptOptions) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var session *types.Session
		targetID := sessionID
		if chat.IsLocalSessionID(sessionID) {
			created, err := client.CreateSession(ctx, "")
			if err != nil {
				return promptResultMsg{tabID: tabID, err: err}
			}
			session = created
			targetID = created.ID
		}
		if err := client.SendPrompt(ctx, targetID, text, opts); err != nil {
			return promptResultMsg{tabID: tabID, session: session, err: err}
		}
		return promptResultMsg{tabID: tabID, session: session}
	}
}

func loadHistoryCmd(client *opencode.Client, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		messages, err := client.ListMessages(ctx, sessionID)
		return historyLoadedMsg{sessionID: sessionID, messages: messages, err: err}
	}
}

func abortCmd(client *opencode.Client, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return abortResultMsg{sessionID: sessionID, err: client.AbortSession(ctx, sessionID)}
	}
}

func deleteSessionCmd(client *opencode.Client, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := client.DeleteSession(ctx, sessionID)
		if opencode.IsNotFound(err) {
			err = nil
		}
		return sessionDeletedMsg{sessionID: sessionID, err: err}
	}
}

func loadRecentsCmd(recents store.RecentStore) tea.Cmd {
	return func() tea.Msg {
		if recents == nil {
			return recentsLoadedMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		records, err := recents.List(ctx)
		return recentsLoadedMsg{records: records, err: err}
	}
}

func rememberSessionCmd(recents store.RecentStore, session *types.Session) tea.Cmd {
	return func() tea.Msg {
		if recents == nil || session == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, _ = recents.Upsert(ctx, &types.SessionRecord{
			Session:      session,
			LastOpenedAt: time.Now().UTC(),
		})
		return nil
	}
}

func forgetSessionCmd(recents store.RecentStore, sessionID string) tea.Cmd {
	return func() tea.Msg {
		if recents == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_ = recents.Delete(ctx, sessionID)
		return nil
	}
}

func flashCmd(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return flashMsg{text: text, isErr: isErr}
	}
}

func clearFlashAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearFlashMsg{}
	})
}
