package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadAndComposeDomains(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "account_prompts.json", `{"content": "You handle account queries."}`)
	writeFile(t, dir, "authentication_prompts.yaml", "system_prompt: You verify identities.\n")

	m, err := NewManager(dir, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if prompt, ok := m.DomainPrompt("account"); !ok || prompt != "You handle account queries." {
		t.Errorf("account prompt = %q, %v", prompt, ok)
	}
	if prompt, ok := m.DomainPrompt("authentication"); !ok || prompt != "You verify identities." {
		t.Errorf("authentication prompt = %q, %v", prompt, ok)
	}

	composed := m.Compose("account", "authentication")
	if composed != "You handle account queries.\n\nYou verify identities." {
		t.Errorf("composed = %q", composed)
	}
}

func TestContentWinsOverSystemPrompt(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "account_prompts.json", `{"content": "primary", "system_prompt": "secondary"}`)

	m, err := NewManager(dir, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if prompt, _ := m.DomainPrompt("account"); prompt != "primary" {
		t.Errorf("prompt = %q, want primary", prompt)
	}
}

func TestComposeFallsBack(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	composed := m.Compose("account", "authentication")
	if !strings.Contains(composed, "banking assistant") {
		t.Errorf("fallback prompt missing, got %q", composed)
	}
	if !strings.Contains(composed, "validate_account") {
		t.Errorf("fallback prompt should mention account validation, got %q", composed)
	}
}

func TestMissingDirectoryIsNotFatal(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if m.Compose("account") == "" {
		t.Error("compose should fall back, not return empty")
	}
}

func TestMalformedFileSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken_prompts.json", `{not json`)
	writeFile(t, dir, "account_prompts.json", `{"content": "ok"}`)

	m, err := NewManager(dir, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, ok := m.DomainPrompt("broken"); ok {
		t.Error("broken file should have been skipped")
	}
	if prompt, _ := m.DomainPrompt("account"); prompt != "ok" {
		t.Errorf("account prompt = %q", prompt)
	}
}
