package chat

import (
	"encoding/json"
	"strings"
)

// LocateEmbeddedPayload scans free text for a structured payload appended to
// a diagnostic line — a JSON array or object fragment, possibly followed by
// trailing noise — and parses it. The second return is false when no payload
// is present or the fragment does not parse; this function never fails
// loudly, so a malformed payload can never abort notice construction.
func LocateEmbeddedPayload(text string) (any, bool) {
	start := earliestBracket(text)
	if start < 0 {
		return nil, false
	}
	slice := strings.TrimSpace(text[start:])
	slice = strings.TrimRight(slice, "'\"` \t")
	end := strings.LastIndex(slice, "]")
	if end < 0 {
		end = strings.LastIndex(slice, "}")
	}
	if end < 0 {
		return nil, false
	}
	slice = slice[:end+1]

	var payload any
	if err := json.Unmarshal([]byte(slice), &payload); err == nil {
		return payload, true
	}
	// Log lines often wrap the payload in non-JSON quoting, e.g.
	// ['{"error":...}']. Retry on the outermost object inside the slice.
	inner := innerObjectSlice(slice)
	if inner == "" {
		return nil, false
	}
	if err := json.Unmarshal([]byte(inner), &payload); err != nil {
		return nil, false
	}
	return payload, true
}

func earliestBracket(text string) int {
	array := strings.IndexByte(text, '[')
	object := strings.IndexByte(text, '{')
	switch {
	case array < 0:
		return object
	case object < 0:
		return array
	case array < object:
		return array
	default:
		return object
	}
}

func innerObjectSlice(slice string) string {
	start := strings.IndexByte(slice, '{')
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(slice, '}')
	if end <= start {
		return ""
	}
	return slice[start : end+1]
}
