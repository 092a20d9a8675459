package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"

	"mars/internal/chat"
	"mars/internal/types"
)

const maxToolOutputLines = 6

// renderTranscript renders a session conversation for the viewport. The
// active streaming message gets a trailing cursor block.
func renderTranscript(messages []types.Message, notice *types.SessionStatusNotice, width int, streaming bool) string {
	if width < 20 {
		width = 20
	}
	if len(messages) == 0 && notice == nil {
		return emptyStateStyle.Render("No messages yet. Type a prompt and press enter.")
	}
	bubbleWidth := width - 4
	if bubbleWidth < 16 {
		bubbleWidth = 16
	}

	blocks := make([]string, 0, len(messages)+1)
	for i, message := range messages {
		isLast := i == len(messages)-1
		switch message.Role {
		case types.RoleUser:
			blocks = append(blocks, renderUserMessage(message, bubbleWidth))
		default:
			blocks = append(blocks, renderAssistantMessage(message, bubbleWidth, streaming && isLast))
		}
	}
	if notice != nil {
		blocks = append(blocks, renderNotice(*notice, width))
	}
	return strings.Join(blocks, "\n")
}

func renderUserMessage(message types.Message, width int) string {
	text := strings.TrimSpace(message.Content)
	if text == "" {
		text = "(empty)"
	}
	label := roleLabelStyle.Render("You")
	bubble := userBubbleStyle.Width(minInt(width, runewidth.StringWidth(text)+2*bubblePaddingHorizontal+2)).Render(text)
	return label + "\n" + bubble
}

func renderAssistantMessage(message types.Message, width int, streaming bool) string {
	var sections []string
	for _, part := range message.Parts {
		switch part.Type {
		case types.PartTypeReasoning:
			if text := strings.TrimSpace(part.Text); text != "" {
				sections = append(sections, reasoningStyle.Render(indentLines(text, "  ")))
			}
		case types.PartTypeTool:
			sections = append(sections, renderToolPart(part))
		}
	}

	body := strings.TrimSpace(message.Content)
	if body != "" {
		rendered := renderMarkdown(body, width-2*bubblePaddingHorizontal-2)
		if streaming {
			rendered += streamCursorStyle.Render("▍")
		}
		sections = append(sections, rendered)
	} else if streaming && len(sections) == 0 {
		sections = append(sections, streamCursorStyle.Render("▍"))
	}
	if len(sections) == 0 {
		return ""
	}

	label := roleLabelStyle.Render("Agent")
	if meta := assistantMeta(message); meta != "" {
		label += " " + metaStyle.Render(meta)
	}
	bubble := agentBubbleStyle.Width(width).Render(strings.Join(sections, "\n"))
	return label + "\n" + bubble
}

func assistantMeta(message types.Message) string {
	var parts []string
	if message.ModelID != "" {
		parts = append(parts, message.ModelID)
	}
	if message.Tokens != nil && (message.Tokens.Input > 0 || message.Tokens.Output > 0) {
		parts = append(parts, fmt.Sprintf("%d→%d tok", message.Tokens.Input, message.Tokens.Output))
	}
	if message.Cost != nil && *message.Cost > 0 {
		parts = append(parts, fmt.Sprintf("$%.4f", *message.Cost))
	}
	return strings.Join(parts, " · ")
}

func renderToolPart(part types.Part) string {
	name := part.Tool
	if name == "" {
		name = "tool"
	}
	status := ""
	if part.State != nil {
		status = part.State.Status
	}
	line := toolStatusIcon(status) + " " + name
	if part.State != nil {
		if title := strings.TrimSpace(part.State.Title); title != "" {
			line += ": " + title
		}
		if d := toolDuration(part.State); d != "" {
			line += " " + metaStyle.Render("("+d+")")
		}
	}
	style := toolLineStyle
	if status == types.ToolStatusError {
		style = toolErrorStyle
	}
	out := style.Render(line)

	if part.State != nil {
		if status == types.ToolStatusError && strings.TrimSpace(part.State.Error) != "" {
			out += "\n" + toolErrorStyle.Render(indentLines(clipLines(part.State.Error, maxToolOutputLines), "  "))
		} else if status == types.ToolStatusCompleted && strings.TrimSpace(part.State.Output) != "" {
			out += "\n" + metaStyle.Render(indentLines(clipLines(part.State.Output, maxToolOutputLines), "  "))
		}
	}
	return out
}

func toolStatusIcon(status string) string {
	switch status {
	case types.ToolStatusPending:
		return "○"
	case types.ToolStatusRunning:
		return "◐"
	case types.ToolStatusCompleted:
		return "●"
	case types.ToolStatusError:
		return "✗"
	default:
		return "·"
	}
}

func toolDuration(state *types.ToolState) string {
	if state == nil || state.Time == nil || state.Time.End == nil {
		return ""
	}
	seconds := (*state.Time.End - state.Time.Start) / 1000
	if seconds <= 0 {
		return ""
	}
	if seconds < 1 {
		return fmt.Sprintf("%.0fms", seconds*1000)
	}
	return chat.FormatCompactDuration(seconds)
}

func renderNotice(notice types.SessionStatusNotice, width int) string {
	style := noticeDoneStyle
	switch notice.Status {
	case types.ToolStatusRunning:
		style = noticeRunStyle
	case types.ToolStatusError:
		style = noticeErrStyle
	}
	text := notice.Output
	if text == "" {
		text = "Status update"
	}
	return style.Render(lipgloss.NewStyle().Width(width).Render("⚠ " + text))
}

func clipLines(text string, max int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) <= max {
		return strings.Join(lines, "\n")
	}
	clipped := append([]string{}, lines[:max]...)
	clipped = append(clipped, fmt.Sprintf("… (%d more lines)", len(lines)-max))
	return strings.Join(clipped, "\n")
}

func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
