package app

import (
	"strings"
	"testing"

	"mars/internal/types"
)

func TestTabLabelNumbersAndTruncates(t *testing.T) {
	tab := &types.Tab{ID: "tab_1", Label: "Fix the flaky integration test in the auth package"}
	label := tabLabel(tab, 0)
	if !strings.HasPrefix(label, "1 ") {
		t.Fatalf("label = %q", label)
	}
	if !strings.Contains(label, "…") {
		t.Fatalf("long label not truncated: %q", label)
	}

	blank := &types.Tab{ID: "tab_2"}
	if got := tabLabel(blank, 1); got != "2 New chat" {
		t.Fatalf("label = %q", got)
	}
}

func TestRenderTabBarClipsToWidth(t *testing.T) {
	tabs := []*types.Tab{
		{ID: "tab_1", Label: "first conversation"},
		{ID: "tab_2", Label: "second conversation"},
		{ID: "tab_3", Label: "third conversation"},
	}
	out := renderTabBar(tabs, "tab_2", 30)
	if out == "" {
		t.Fatalf("empty tab bar")
	}
	if !strings.Contains(out, "first") {
		t.Fatalf("tab bar = %q", out)
	}
}

func TestRenderTabBarEmpty(t *testing.T) {
	out := renderTabBar(nil, "", 20)
	if !strings.Contains(out, "─") {
		t.Fatalf("tab bar = %q", out)
	}
}
