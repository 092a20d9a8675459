package opencode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"mars/internal/logging"
	"mars/internal/types"
)

// RequestError carries the failing request alongside the server's message so
// callers can branch on status codes.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e == nil {
		return "opencode request failed"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "request failed"
	}
	return fmt.Sprintf("opencode request failed (%s %s): %s", e.Method, e.Path, msg)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to an opencode server over its HTTP API. Safe for concurrent
// use.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	log        logging.Logger
}

func NewClient(cfg Config, log logging.Logger) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url: %s", baseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(parsed.String(), "/"),
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}, nil
}

func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// sessionRecord is the wire shape of a session from /session endpoints.
type sessionRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Directory string `json:"directory"`
	Time      struct {
		Created float64 `json:"created"`
		Updated float64 `json:"updated"`
	} `json:"time"`
}

func (r sessionRecord) toSession() types.Session {
	return types.Session{
		ID:        r.ID,
		Title:     r.Title,
		Directory: r.Directory,
		CreatedAt: r.Time.Created,
		UpdatedAt: r.Time.Updated,
	}
}

// CreateSession creates a backend session, optionally titled.
func (c *Client) CreateSession(ctx context.Context, title string) (*types.Session, error) {
	payload := map[string]any{}
	if title = strings.TrimSpace(title); title != "" {
		payload["title"] = title
	}
	var record sessionRecord
	if err := c.doJSON(ctx, http.MethodPost, "/session", payload, &record); err != nil {
		return nil, err
	}
	if strings.TrimSpace(record.ID) == "" {
		return nil, fmt.Errorf("session id missing from server response")
	}
	session := record.toSession()
	return &session, nil
}

// ListSessions returns the server's sessions, most recently updated first.
func (c *Client) ListSessions(ctx context.Context) ([]types.Session, error) {
	var records []sessionRecord
	if err := c.doJSON(ctx, http.MethodGet, "/session", nil, &records); err != nil {
		return nil, err
	}
	sessions := make([]types.Session, 0, len(records))
	for _, record := range records {
		if strings.TrimSpace(record.ID) == "" {
			continue
		}
		sessions = append(sessions, record.toSession())
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt > sessions[j].UpdatedAt
	})
	return sessions, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	return c.doJSON(ctx, http.MethodDelete, "/session/"+url.PathEscape(sessionID), nil, nil)
}

// AbortSession asks the server to stop the session's in-flight turn.
func (c *Client) AbortSession(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	return c.doJSON(ctx, http.MethodPost, "/session/"+url.PathEscape(sessionID)+"/abort", map[string]any{}, nil)
}

// PromptOptions selects the model and agent for a prompt. Model uses the
// "provider/model-id" form; both fields may be empty to use server defaults.
type PromptOptions struct {
	Model string
	Agent string
}

// SendPrompt submits a user turn. The server streams the reply over the
// event channel, so the HTTP response body is not the answer; only the
// acknowledgement matters here. Older server builds expose the endpoint
// under /prompt, so a 404/405 on /message falls back once.
func (c *Client) SendPrompt(ctx context.Context, sessionID, text string, opts PromptOptions) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is required")
	}
	body := map[string]any{
		"parts": []map[string]any{
			{"type": "text", "text": text},
		},
	}
	if model := promptModelBody(opts.Model); model != nil {
		body["model"] = model
	}
	if agent := strings.TrimSpace(opts.Agent); agent != "" {
		body["agent"] = agent
	}

	base := "/session/" + url.PathEscape(sessionID)
	err := c.doJSON(ctx, http.MethodPost, base+"/message", body, nil)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	if !shouldFallbackLegacy(err) {
		return err
	}
	err = c.doJSON(ctx, http.MethodPost, base+"/prompt", body, nil)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func promptModelBody(model string) map[string]string {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil
	}
	if !strings.Contains(model, "/") {
		return map[string]string{"modelID": model}
	}
	parts := strings.SplitN(model, "/", 2)
	providerID := strings.TrimSpace(parts[0])
	modelID := strings.TrimSpace(parts[1])
	if providerID == "" || modelID == "" {
		return map[string]string{"modelID": model}
	}
	return map[string]string{"providerID": providerID, "modelID": modelID}
}

// messageRecord is the wire shape of one history entry: metadata under info,
// typed parts alongside.
type messageRecord struct {
	Info  types.Message `json:"info"`
	Parts []types.Part  `json:"parts"`
}

// ListMessages loads the session history normalized into display messages:
// parts folded in, content rebuilt from the text parts.
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]types.Message, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	var records []messageRecord
	path := "/session/" + url.PathEscape(sessionID) + "/message"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	messages := make([]types.Message, 0, len(records))
	for _, record := range records {
		message := record.Info
		if strings.TrimSpace(message.ID) == "" {
			continue
		}
		message.Parts = record.Parts
		var b strings.Builder
		for _, part := range record.Parts {
			if part.IsText() {
				b.WriteString(part.Text)
			}
		}
		message.Content = b.String()
		messages = append(messages, message)
	}
	return messages, nil
}

// Model is one catalog entry from the server's provider configuration.
type Model struct {
	ID         string
	ProviderID string
	Name       string
}

// ListModels flattens the provider catalog into provider-prefixed model ids.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var payload struct {
		Providers []struct {
			ID     string `json:"id"`
			Models map[string]struct {
				Name string `json:"name"`
			} `json:"models"`
		} `json:"providers"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/config/providers", nil, &payload); err != nil {
		return nil, err
	}
	models := make([]Model, 0, 32)
	for _, provider := range payload.Providers {
		providerID := strings.TrimSpace(provider.ID)
		if providerID == "" {
			continue
		}
		for modelID, model := range provider.Models {
			modelID = strings.TrimSpace(modelID)
			if modelID == "" {
				continue
			}
			models = append(models, Model{
				ID:         providerID + "/" + modelID,
				ProviderID: providerID,
				Name:       model.Name,
			})
		}
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Agent is one selectable agent mode.
type Agent struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Mode        string `json:"mode"`
}

func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := c.doJSON(ctx, http.MethodGet, "/agent", nil, &agents); err != nil {
		return nil, err
	}
	out := agents[:0]
	for _, agent := range agents {
		if strings.TrimSpace(agent.Name) != "" {
			out = append(out, agent)
		}
	}
	return out, nil
}

// Command is one slash command the server exposes.
type Command struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Template    string `json:"template"`
}

func (c *Client) ListCommands(ctx context.Context) ([]Command, error) {
	var commands []Command
	if err := c.doJSON(ctx, http.MethodGet, "/command", nil, &commands); err != nil {
		return nil, err
	}
	return commands, nil
}

// SearchFiles asks the server for workspace paths matching the query, used
// for @-mention completion.
func (c *Client) SearchFiles(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	var paths []string
	path := "/find/file?query=" + url.QueryEscape(query)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &paths); err != nil {
		return nil, err
	}
	return paths, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	endpoint := c.baseURL + path

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = resp.Status
		}
		return &RequestError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func shouldFallbackLegacy(err error) bool {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr == nil {
		return false
	}
	switch reqErr.StatusCode {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return true
	default:
		return false
	}
}
