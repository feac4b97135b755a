package main

import (
	"bytes"
	"strings"
	"testing"
)

// runCommand executes the root command with canned stdin and captured output.
func runCommand(t *testing.T, input string, args ...string) string {
	t.Helper()
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetIn(strings.NewReader(input))
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	out := runCommand(t, "", "version")
	if !strings.Contains(out, "bankassist version") {
		t.Errorf("output = %q", out)
	}
}

func TestChatCommandQuits(t *testing.T) {
	out := runCommand(t, "quit\n", "chat")
	if !strings.Contains(out, "=== Banking Assistant ===") {
		t.Errorf("output = %q, want banner", out)
	}
	if !strings.Contains(out, "Goodbye!") {
		t.Errorf("output = %q, want goodbye on quit", out)
	}
}

func TestChatCommandCallerCommand(t *testing.T) {
	out := runCommand(t, "!caller 01712345678\nquit\n", "chat")
	if !strings.Contains(out, "Caller ID (mobile number) set to: 01712345678") {
		t.Errorf("output = %q, want caller confirmation", out)
	}
}
