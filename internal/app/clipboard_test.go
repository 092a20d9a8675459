package app

import (
	"errors"
	"strings"
	"testing"
)

func TestCopyTextToClipboardPrefersSystem(t *testing.T) {
	origSystem := clipboardWriteAll
	origOSC := clipboardWriteOSC52
	defer func() {
		clipboardWriteAll = origSystem
		clipboardWriteOSC52 = origOSC
	}()

	var copied string
	clipboardWriteAll = func(text string) error {
		copied = text
		return nil
	}
	clipboardWriteOSC52 = func(string) error {
		t.Fatalf("OSC52 should not run when system clipboard works")
		return nil
	}

	method, err := copyTextToClipboard("hello")
	if err != nil {
		t.Fatalf("copy error: %v", err)
	}
	if method != clipboardMethodSystem || copied != "hello" {
		t.Fatalf("method=%v copied=%q", method, copied)
	}
}

func TestCopyTextToClipboardFallsBackToOSC52(t *testing.T) {
	origSystem := clipboardWriteAll
	origOSC := clipboardWriteOSC52
	defer func() {
		clipboardWriteAll = origSystem
		clipboardWriteOSC52 = origOSC
	}()

	clipboardWriteAll = func(string) error { return errors.New("exit status 1") }
	var copied string
	clipboardWriteOSC52 = func(text string) error {
		copied = text
		return nil
	}

	method, err := copyTextToClipboard("fallback")
	if err != nil {
		t.Fatalf("copy error: %v", err)
	}
	if method != clipboardMethodOSC52 || copied != "fallback" {
		t.Fatalf("method=%v copied=%q", method, copied)
	}
}

func TestCopyTextToClipboardCombinesErrors(t *testing.T) {
	origSystem := clipboardWriteAll
	origOSC := clipboardWriteOSC52
	defer func() {
		clipboardWriteAll = origSystem
		clipboardWriteOSC52 = origOSC
	}()

	clipboardWriteAll = func(string) error { return errors.New("no helper") }
	clipboardWriteOSC52 = func(string) error { return errors.New("no tty") }

	_, err := copyTextToClipboard("x")
	if err == nil {
		t.Fatalf("expected combined error")
	}
	if !strings.Contains(err.Error(), "no tty") {
		t.Fatalf("error = %v", err)
	}
}

func TestShouldAttemptOSC52(t *testing.T) {
	t.Setenv("MARS_DISABLE_OSC52", "")
	t.Setenv("TERM", "xterm-256color")
	if !shouldAttemptOSC52() {
		t.Fatalf("OSC52 should be attempted for a real terminal")
	}

	t.Setenv("TERM", "dumb")
	if shouldAttemptOSC52() {
		t.Fatalf("OSC52 should be skipped for TERM=dumb")
	}

	t.Setenv("TERM", "xterm-256color")
	t.Setenv("MARS_DISABLE_OSC52", "1")
	if shouldAttemptOSC52() {
		t.Fatalf("OSC52 should honor the disable switch")
	}
}
