package types

// Part type discriminator values pushed by the agent server.
const (
	PartTypeText       = "text"
	PartTypeReasoning  = "reasoning"
	PartTypeTool       = "tool"
	PartTypeStepStart  = "step-start"
	PartTypeStepFinish = "step-finish"
)

// Tool lifecycle statuses. Terminal statuses never revert.
const (
	ToolStatusPending   = "pending"
	ToolStatusRunning   = "running"
	ToolStatusCompleted = "completed"
	ToolStatusError     = "error"
)

// PartTime carries start/end timestamps in epoch milliseconds.
type PartTime struct {
	Start float64  `json:"start"`
	End   *float64 `json:"end,omitempty"`
}

// ToolState is the lifecycle state of a single tool invocation.
type ToolState struct {
	Status   string         `json:"status"`
	Input    map[string]any `json:"input,omitempty"`
	Output   string         `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
	Title    string         `json:"title,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Time     *PartTime      `json:"time,omitempty"`
}

// Part is one typed sub-unit of a message. Type discriminates which of the
// optional field groups is populated.
type Part struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID,omitempty"`
	MessageID string `json:"messageID,omitempty"`
	Type      string `json:"type"`

	// text / reasoning
	Text string    `json:"text,omitempty"`
	Time *PartTime `json:"time,omitempty"`

	// tool
	Tool  string     `json:"tool,omitempty"`
	State *ToolState `json:"state,omitempty"`
}

func (p Part) IsText() bool      { return p.Type == PartTypeText }
func (p Part) IsReasoning() bool { return p.Type == PartTypeReasoning }
func (p Part) IsTool() bool      { return p.Type == PartTypeTool }

// StartMillis returns the display-ordering timestamp for the part: the part
// time for text and reasoning, the tool state start for tools. Zero when the
// server supplied none.
func (p Part) StartMillis() float64 {
	if p.IsTool() {
		if p.State != nil && p.State.Time != nil {
			return p.State.Time.Start
		}
		return 0
	}
	if p.Time != nil {
		return p.Time.Start
	}
	return 0
}

// ToolStatusRank orders tool statuses along their lifecycle so regressions
// can be rejected. Unknown statuses rank lowest.
func ToolStatusRank(status string) int {
	switch status {
	case ToolStatusPending:
		return 1
	case ToolStatusRunning:
		return 2
	case ToolStatusCompleted, ToolStatusError:
		return 3
	default:
		return 0
	}
}
