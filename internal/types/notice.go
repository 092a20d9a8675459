package types

// ProviderErrorInfo is the normalized view of an error payload embedded in
// diagnostic text. Every field is optional: extraction may partially fail.
type ProviderErrorInfo struct {
	Code                   string   `json:"code,omitempty"`
	Status                 string   `json:"status,omitempty"`
	Message                string   `json:"message,omitempty"`
	Model                  string   `json:"model,omitempty"`
	QuotaResetDelaySeconds *float64 `json:"quotaResetDelaySeconds,omitempty"`
	RetryDelaySeconds      *float64 `json:"retryDelaySeconds,omitempty"`
}

// IsZero reports whether extraction produced nothing at all.
func (p ProviderErrorInfo) IsZero() bool {
	return p.Code == "" && p.Status == "" && p.Message == "" && p.Model == "" &&
		p.QuotaResetDelaySeconds == nil && p.RetryDelaySeconds == nil
}

// SessionStatusNotice is the renderable artifact derived from a StatusEvent.
// Status reuses the tool lifecycle vocabulary so UI badges share one scale.
type SessionStatusNotice struct {
	Status string         `json:"status"`
	Output string         `json:"output"`
	Input  map[string]any `json:"input"`
}
