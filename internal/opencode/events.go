package opencode

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"mars/internal/logging"
	"mars/internal/types"
)

// Subscribe opens the server's event stream and returns a channel of decoded
// envelopes. The channel closes when the stream ends or the returned cancel
// func runs; cancel is idempotent. The channel is buffered so a slow reader
// briefly falling behind does not stall the HTTP read loop.
func (c *Client) Subscribe(ctx context.Context) (<-chan types.Envelope, func(), error) {
	streamCtx, streamCancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.baseURL+"/event", nil)
	if err != nil {
		streamCancel()
		return nil, nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The shared client carries a request timeout that would kill a
	// long-lived stream; the stream client relies on context cancellation
	// instead.
	streamClient := &http.Client{
		Transport: c.httpClient.Transport,
	}
	resp, err := streamClient.Do(req)
	if err != nil {
		streamCancel()
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		streamCancel()
		return nil, nil, &RequestError{
			Method:     http.MethodGet,
			Path:       "/event",
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
		}
	}

	out := make(chan types.Envelope, 256)
	go func() {
		defer close(out)
		defer streamCancel()
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		dataLines := make([]string, 0, 8)
		emit := func(payload string) bool {
			envelope, ok := decodeEnvelope(payload, c.log)
			if !ok {
				return true
			}
			select {
			case <-streamCtx.Done():
				return false
			case out <- envelope:
				return true
			}
		}

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if strings.HasPrefix(line, "data:") {
				dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
				continue
			}
			if line != "" {
				continue
			}
			if len(dataLines) == 0 {
				continue
			}
			if !emit(strings.Join(dataLines, "\n")) {
				return
			}
			dataLines = dataLines[:0]
		}
		if len(dataLines) > 0 {
			_ = emit(strings.Join(dataLines, "\n"))
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			streamCancel()
			_ = resp.Body.Close()
		})
	}
	return out, cancel, nil
}

// decodeEnvelope parses one SSE data payload. Some server builds wrap the
// event in a {"payload": {...}} envelope; unwrap one level before giving up.
func decodeEnvelope(raw string, log logging.Logger) (types.Envelope, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.Envelope{}, false
	}
	var envelope types.Envelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		log.Debug("event decode failed", logging.F("error", err))
		return types.Envelope{}, false
	}
	if envelope.Type != "" {
		return envelope, true
	}
	var wrapper struct {
		Payload *types.Envelope `json:"payload"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapper); err == nil &&
		wrapper.Payload != nil && wrapper.Payload.Type != "" {
		return *wrapper.Payload, true
	}
	return types.Envelope{}, false
}
