package chat

import (
	"strings"
	"time"

	"mars/internal/types"
)

// Status event types with dedicated handling.
const (
	statusEventRetry = "retry"
	statusEventError = "error"
)

// Notice kinds reported in the machine-readable input payload.
const (
	noticeKindRateLimit = "rate-limit"
	noticeKindRetry     = "retry"
	noticeKindError     = "error"
	noticeKindStatus    = "status"
)

// BuildStatusNotice derives the renderable notice for a backend status
// event. It is pure: the same event and clock always produce the same
// notice. Pass a zero now only outside tests.
func BuildStatusNotice(event types.StatusEvent, now time.Time) types.SessionStatusNotice {
	if now.IsZero() {
		now = time.Now()
	}
	message := strings.TrimSpace(event.Message)

	var provider types.ProviderErrorInfo
	payloadFound := false
	if message != "" {
		if payload, ok := LocateEmbeddedPayload(event.Message); ok {
			payloadFound = true
			provider = ExtractProviderError(payload)
		}
	}

	rateLimited := isRateLimited(message, provider)

	var retrySeconds *float64
	if provider.RetryDelaySeconds != nil {
		retrySeconds = provider.RetryDelaySeconds
	} else if event.Next != nil {
		wait := (*event.Next - float64(now.UnixMilli())) / 1000
		if wait < 0 {
			wait = 0
		}
		retrySeconds = &wait
	}
	quotaSeconds := provider.QuotaResetDelaySeconds

	status := types.ToolStatusCompleted
	switch event.Type {
	case statusEventRetry:
		status = types.ToolStatusRunning
	case statusEventError:
		status = types.ToolStatusError
	}

	output := composeNoticeText(event, message, rateLimited, provider.Model, quotaSeconds, retrySeconds)

	input := map[string]any{
		"kind": noticeKind(event.Type, rateLimited),
		"type": event.Type,
	}
	if event.Attempt != nil {
		input["attempt"] = *event.Attempt
	}
	if retrySeconds != nil {
		input["retryInSeconds"] = *retrySeconds
	}
	if quotaSeconds != nil {
		input["quotaResetInSeconds"] = *quotaSeconds
	}
	if event.Next != nil {
		input["next"] = *event.Next
	}
	if payloadFound {
		input["providerError"] = provider
	}
	if message != "" {
		input["rawMessage"] = event.Message
	}

	return types.SessionStatusNotice{
		Status: status,
		Output: output,
		Input:  input,
	}
}

func composeNoticeText(event types.StatusEvent, message string, rateLimited bool, model string, quotaSeconds, retrySeconds *float64) string {
	if rateLimited {
		var b strings.Builder
		b.WriteString("Rate limited")
		if model != "" {
			b.WriteString(" (")
			b.WriteString(model)
			b.WriteString(")")
		}
		b.WriteString(" — ")
		switch {
		case quotaSeconds != nil:
			b.WriteString("quota resets in ")
			b.WriteString(FormatCompactDuration(*quotaSeconds))
		case retrySeconds != nil:
			b.WriteString("retrying in ")
			b.WriteString(FormatCompactDuration(*retrySeconds))
		default:
			b.WriteString("retrying soon")
		}
		b.WriteString(".")
		return b.String()
	}
	if event.Type == statusEventRetry && retrySeconds != nil {
		return "Retrying in " + FormatCompactDuration(*retrySeconds) + "."
	}
	if line := firstNonBlankLine(message); line != "" {
		return line
	}
	return "Status update"
}

func isRateLimited(message string, provider types.ProviderErrorInfo) bool {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "ratelimit") {
		return true
	}
	if provider.Code == "429" {
		return true
	}
	return provider.Status == "RESOURCE_EXHAUSTED"
}

func noticeKind(eventType string, rateLimited bool) string {
	if rateLimited {
		return noticeKindRateLimit
	}
	switch eventType {
	case statusEventRetry:
		return noticeKindRetry
	case statusEventError:
		return noticeKindError
	default:
		return noticeKindStatus
	}
}
