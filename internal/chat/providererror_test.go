package chat

import (
	"encoding/json"
	"testing"
)

func decodeJSON(t *testing.T, raw string) any {
	t.Helper()
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return payload
}

func TestExtractProviderErrorFull(t *testing.T) {
	payload := decodeJSON(t, `{
		"error": {
			"code": 429,
			"status": "RESOURCE_EXHAUSTED",
			"message": "Quota exceeded for model",
			"details": [
				{
					"@type": "type.googleapis.com/google.rpc.ErrorInfo",
					"reason": "RATE_LIMIT_EXCEEDED",
					"metadata": {
						"model": "gemini-2.5-pro",
						"quotaResetDelay": "6m49.617143626s"
					}
				},
				{
					"@type": "type.googleapis.com/google.rpc.RetryInfo",
					"retryDelay": "409.617143626s"
				}
			]
		}
	}`)
	info := ExtractProviderError(payload)
	if info.Code != "429" {
		t.Fatalf("code = %q", info.Code)
	}
	if info.Status != "RESOURCE_EXHAUSTED" {
		t.Fatalf("status = %q", info.Status)
	}
	if info.Message != "Quota exceeded for model" {
		t.Fatalf("message = %q", info.Message)
	}
	if info.Model != "gemini-2.5-pro" {
		t.Fatalf("model = %q", info.Model)
	}
	if info.RetryDelaySeconds == nil || *info.RetryDelaySeconds < 409 || *info.RetryDelaySeconds > 410 {
		t.Fatalf("retry delay = %v", info.RetryDelaySeconds)
	}
	if info.QuotaResetDelaySeconds == nil || *info.QuotaResetDelaySeconds < 409 || *info.QuotaResetDelaySeconds > 410 {
		t.Fatalf("quota reset delay = %v", info.QuotaResetDelaySeconds)
	}
}

func TestExtractProviderErrorArrayPayload(t *testing.T) {
	payload := decodeJSON(t, `[{"error":{"code":"503","status":"UNAVAILABLE","message":"overloaded"}}]`)
	info := ExtractProviderError(payload)
	if info.Code != "503" || info.Status != "UNAVAILABLE" || info.Message != "overloaded" {
		t.Fatalf("info = %+v", info)
	}
	if info.RetryDelaySeconds != nil || info.QuotaResetDelaySeconds != nil {
		t.Fatalf("unexpected delays: %+v", info)
	}
}

func TestExtractProviderErrorMalformedShapes(t *testing.T) {
	for _, raw := range []string{
		`{}`,
		`{"error":"string not object"}`,
		`[]`,
		`["just a string"]`,
		`{"error":{"details":"not an array"}}`,
		`{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"garbage"}]}}`,
	} {
		info := ExtractProviderError(decodeJSON(t, raw))
		if info.RetryDelaySeconds != nil || info.QuotaResetDelaySeconds != nil || info.Model != "" {
			t.Fatalf("ExtractProviderError(%s) = %+v, want empty detail fields", raw, info)
		}
	}
	if got := ExtractProviderError(nil); !got.IsZero() {
		t.Fatalf("nil payload = %+v", got)
	}
}

func TestExtractProviderErrorIgnoresUnknownDetails(t *testing.T) {
	payload := decodeJSON(t, `{
		"error": {
			"code": 400,
			"details": [
				{"@type": "type.googleapis.com/google.rpc.BadRequest", "fieldViolations": []},
				{"@type": "type.googleapis.com/google.rpc.ErrorInfo", "metadata": {"model": "m1"}}
			]
		}
	}`)
	info := ExtractProviderError(payload)
	if info.Model != "m1" {
		t.Fatalf("model = %q", info.Model)
	}
	if info.Code != "400" {
		t.Fatalf("code = %q", info.Code)
	}
}
