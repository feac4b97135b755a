// Package prompts loads domain-specific system prompts from a config
// directory and composes them into a single system prompt.
package prompts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// fallbackPrompt is used when no domain prompt files are available.
const fallbackPrompt = "You are a banking assistant that helps users check their account balance information.\n" +
	"Follow a strict flow:\n" +
	"1. Ask for account number first\n" +
	"2. Immediately validate that the account number exists before asking for the PIN\n" +
	"3. Only after validating the account number, ask for the PIN\n" +
	"4. Then provide detailed account balance information including current balance, currency, account status, and last transaction date.\n\n" +
	"IMPORTANT: Always validate account number existence using the validate_account tool before asking for the PIN.\n" +
	"IMPORTANT: If an account number is not found, immediately inform the user and ask for a valid account number.\n" +
	"IMPORTANT: Always provide ALL information that is available in the account details, including last transaction date.\n\n" +
	"Be professional and friendly. Remember: your focus is on providing complete and accurate account information for standard deposit accounts."

// promptFile is the on-disk shape of a domain prompt. Content wins over
// SystemPrompt when both are present.
type promptFile struct {
	Content      string `json:"content" yaml:"content"`
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`
}

// Manager holds domain prompts loaded at startup. It is read-only after
// construction and safe for concurrent use.
type Manager struct {
	domains map[string]string
	logger  *slog.Logger
}

// NewManager loads every *.json, *.yaml and *.yml prompt file from dir. The
// domain is the first underscore-separated token of the filename. A missing
// directory is not an error; composition falls back to the built-in prompt.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{domains: make(map[string]string), logger: logger}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("prompt directory not found", "dir", dir)
			return m, nil
		}
		return nil, fmt.Errorf("read prompt directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		prompt, err := loadPromptFile(filepath.Join(dir, name), ext)
		if err != nil {
			logger.Error("loading prompt file failed", "file", name, "error", err)
			continue
		}
		if prompt == "" {
			logger.Warn("prompt file has no content", "file", name)
			continue
		}

		domain := strings.SplitN(strings.TrimSuffix(name, ext), "_", 2)[0]
		m.domains[domain] = prompt
		logger.Info("loaded domain prompt", "domain", domain, "file", name)
	}
	return m, nil
}

func loadPromptFile(path, ext string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	var pf promptFile
	if ext == ".json" {
		err = json.Unmarshal(data, &pf)
	} else {
		err = yaml.Unmarshal(data, &pf)
	}
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}

	if pf.Content != "" {
		return pf.Content, nil
	}
	return pf.SystemPrompt, nil
}

// DomainPrompt returns the prompt for a domain.
func (m *Manager) DomainPrompt(domain string) (string, bool) {
	prompt, ok := m.domains[domain]
	return prompt, ok
}

// Compose joins the prompts for the given domains in order, falling back to
// the built-in prompt when none of the domains have one.
func (m *Manager) Compose(domains ...string) string {
	var parts []string
	for _, domain := range domains {
		if prompt, ok := m.domains[domain]; ok {
			parts = append(parts, prompt)
		} else {
			m.logger.Warn("no prompt for domain", "domain", domain)
		}
	}
	if len(parts) == 0 {
		m.logger.Warn("no domain prompts found, using fallback prompt")
		return fallbackPrompt
	}
	return strings.Join(parts, "\n\n")
}
