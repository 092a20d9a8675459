package chat

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseDurationSeconds converts a duration token into seconds. Numeric
// values pass through unchanged when finite. Strings must be a sequence of
// <number><unit> pairs with unit h, m or s ("409.617143626s", "6m49s",
// "1h2m3s"). The second return is false when the token is unparseable;
// callers must not conflate that with a zero-length duration.
func ParseDurationSeconds(raw any) (float64, bool) {
	switch value := raw.(type) {
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, false
		}
		return value, true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case json.Number:
		if parsed, err := value.Float64(); err == nil {
			return parsed, true
		}
		return 0, false
	case string:
		return parseDurationToken(value)
	}
	return 0, false
}

func parseDurationToken(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	total := 0.0
	matched := false
	for i := 0; i < len(raw); {
		start := i
		for i < len(raw) && (raw[i] == '.' || (raw[i] >= '0' && raw[i] <= '9')) {
			i++
		}
		if i == start || i >= len(raw) {
			return 0, false
		}
		number, err := strconv.ParseFloat(raw[start:i], 64)
		if err != nil {
			return 0, false
		}
		switch raw[i] {
		case 'h':
			total += number * 3600
		case 'm':
			total += number * 60
		case 's':
			total += number
		default:
			return 0, false
		}
		i++
		matched = true
	}
	if !matched {
		return 0, false
	}
	return total, true
}

// FormatCompactDuration renders seconds as HhMmSs, omitting leading
// zero-valued units. Sub-second remainders are dropped so an announced
// "6m49.6s" delay reads 6m49s, never 6m50s. Non-positive and non-finite
// inputs read "soon".
func FormatCompactDuration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return "soon"
	}
	total := int(seconds)
	if total <= 0 {
		return "soon"
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
