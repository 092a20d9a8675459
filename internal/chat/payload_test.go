package chat

import "testing"

func TestLocateEmbeddedPayloadObject(t *testing.T) {
	payload, ok := LocateEmbeddedPayload(`provider failed: {"error":{"code":429,"status":"RESOURCE_EXHAUSTED"}}`)
	if !ok {
		t.Fatalf("expected payload")
	}
	record, ok := payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T", payload)
	}
	if _, ok := record["error"]; !ok {
		t.Fatalf("missing error key: %v", record)
	}
}

func TestLocateEmbeddedPayloadArray(t *testing.T) {
	payload, ok := LocateEmbeddedPayload(`upstream said [{"error":{"code":429}}] (will retry)`)
	if !ok {
		t.Fatalf("expected payload")
	}
	entries, ok := payload.([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("payload = %#v", payload)
	}
}

func TestLocateEmbeddedPayloadQuotedArrayEntry(t *testing.T) {
	// Python-style repr wrapping the JSON in single quotes inside the array.
	text := `AI_RetryError: Failed after 3 attempts ['{"error":{"code":429,"message":"Quota exceeded"}}']`
	payload, ok := LocateEmbeddedPayload(text)
	if !ok {
		t.Fatalf("expected payload")
	}
	record, ok := payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T", payload)
	}
	errRecord, _ := record["error"].(map[string]any)
	if errRecord == nil {
		t.Fatalf("missing error record: %v", record)
	}
	if got := asString(errRecord["message"]); got != "Quota exceeded" {
		t.Fatalf("message = %q", got)
	}
}

func TestLocateEmbeddedPayloadAbsent(t *testing.T) {
	for _, text := range []string{
		"",
		"plain diagnostic with no payload",
		"unbalanced { fragment without close",
		"[not json at all]",
	} {
		if payload, ok := LocateEmbeddedPayload(text); ok {
			t.Fatalf("LocateEmbeddedPayload(%q) = %v, want none", text, payload)
		}
	}
}

func TestLocateEmbeddedPayloadTrailingNoise(t *testing.T) {
	payload, ok := LocateEmbeddedPayload(`{"error":{"status":"UNAVAILABLE"}}'` + "\t ")
	if !ok {
		t.Fatalf("expected payload despite trailing noise")
	}
	if _, ok := payload.(map[string]any); !ok {
		t.Fatalf("payload type = %T", payload)
	}
}
