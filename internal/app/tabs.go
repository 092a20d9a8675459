package app

import (
	"strconv"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
	runewidth "github.com/mattn/go-runewidth"

	"mars/internal/types"
)

const maxTabLabelWidth = 24

// renderTabBar renders the tab strip, truncating labels and clipping the
// whole strip to the terminal width.
func renderTabBar(tabs []*types.Tab, activeID string, width int) string {
	if len(tabs) == 0 {
		return tabBarStyle.Render(strings.Repeat("─", maxInt(width, 0)))
	}
	rendered := make([]string, 0, len(tabs))
	for i, tab := range tabs {
		label := tabLabel(tab, i)
		if tab.ID == activeID {
			rendered = append(rendered, tabActiveStyle.Render(label))
		} else {
			rendered = append(rendered, tabStyle.Render(label))
		}
	}
	strip := strings.Join(rendered, tabBarStyle.Render("│"))
	return xansi.Truncate(strip, width, "…")
}

func tabLabel(tab *types.Tab, index int) string {
	label := strings.TrimSpace(tab.Label)
	if label == "" {
		label = "New chat"
	}
	label = runewidth.Truncate(label, maxTabLabelWidth, "…")
	return strconv.Itoa(index+1) + " " + label
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
