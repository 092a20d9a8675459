package chat

import (
	"strings"

	"mars/internal/types"
)

// Detail discriminators follow the google.rpc error detail schema that
// several providers embed in their diagnostics.
const (
	detailTypeErrorInfo = "ErrorInfo"
	detailTypeRetryInfo = "RetryInfo"
)

// ExtractProviderError normalizes an embedded error payload. The payload may
// be the error record itself or an array whose first element is; anything
// else yields an all-empty descriptor rather than an error.
func ExtractProviderError(payload any) types.ProviderErrorInfo {
	record := payloadRecord(payload)
	if record == nil {
		return types.ProviderErrorInfo{}
	}
	errRecord, _ := record["error"].(map[string]any)
	if errRecord == nil {
		return types.ProviderErrorInfo{}
	}
	info := types.ProviderErrorInfo{
		Code:    asScalarString(errRecord["code"]),
		Status:  strings.TrimSpace(asString(errRecord["status"])),
		Message: strings.TrimSpace(asString(errRecord["message"])),
	}
	details, _ := errRecord["details"].([]any)
	for _, entry := range details {
		detail, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		kind := strings.TrimSpace(asString(detail["@type"]))
		switch {
		case strings.HasSuffix(kind, detailTypeRetryInfo):
			if seconds, ok := ParseDurationSeconds(detail["retryDelay"]); ok {
				info.RetryDelaySeconds = &seconds
			}
		case strings.HasSuffix(kind, detailTypeErrorInfo):
			metadata, _ := detail["metadata"].(map[string]any)
			if metadata == nil {
				continue
			}
			if model := strings.TrimSpace(asString(metadata["model"])); model != "" {
				info.Model = model
			}
			if seconds, ok := ParseDurationSeconds(metadata["quotaResetDelay"]); ok {
				info.QuotaResetDelaySeconds = &seconds
			}
		}
	}
	return info
}

func payloadRecord(payload any) map[string]any {
	switch value := payload.(type) {
	case map[string]any:
		return value
	case []any:
		if len(value) == 0 {
			return nil
		}
		record, _ := value[0].(map[string]any)
		return record
	default:
		return nil
	}
}
