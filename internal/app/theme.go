package app

import "github.com/charmbracelet/lipgloss"

const (
	bubblePaddingVertical   = 0
	bubblePaddingHorizontal = 1
)

var (
	tabStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("248")).Padding(0, 1)
	tabActiveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236")).Bold(true).Padding(0, 1)
	tabBarStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStatusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	userBubbleStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Background(lipgloss.Color("236")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	agentBubbleStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	reasoningStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	toolLineStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	toolErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	noticeRunStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("179")).Italic(true)
	noticeErrStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Italic(true)
	noticeDoneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("108")).Italic(true)
	roleLabelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	metaStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	inputPromptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true)
	emptyStateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	streamCursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
)
