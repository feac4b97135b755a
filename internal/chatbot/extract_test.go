package chatbot

import "testing"

func TestExtractPIN(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"my pin is 1234", "1234"},
		{"PIN: 5678", "5678"},
		{"pin 9012", "9012"},
		{"1234", "1234"},
		{"  1234  ", "1234"},
		{"1234 is my pin", "1234"},
		{"the code is 4321 please", "4321"},
		{"no digits here", ""},
		{"12345", ""},
		{"my number is 123", ""},
	}
	for _, tt := range tests {
		if got := ExtractPIN(tt.message); got != tt.want {
			t.Errorf("ExtractPIN(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestExtractPINPrefersExplicitPhrasing(t *testing.T) {
	// The first 4-digit run is the account fragment, not the PIN.
	if got := ExtractPIN("account 5678 and my pin is 1234"); got != "1234" {
		t.Errorf("ExtractPIN = %q, want 1234", got)
	}
}

func TestExtractLastFourDigits(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"the last four digits are 5678", "5678"},
		{"last 4 digits 4567", "4567"},
		{"my account ending in 6789", "6789"},
		{"it ends with 5678", "5678"},
		{"account number 5678", "5678"},
		{"5678", "5678"},
		{"hello there", ""},
		{"13110023456", ""},
	}
	for _, tt := range tests {
		if got := ExtractLastFourDigits(tt.message); got != tt.want {
			t.Errorf("ExtractLastFourDigits(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestContainsRestrictedKeyword(t *testing.T) {
	restricted := []string{
		"I want a credit card",
		"I need a LOAN",
		"what about a Mortgage?",
		"any good mutual fund options",
		"stock tips please",
	}
	for _, msg := range restricted {
		if !ContainsRestrictedKeyword(msg) {
			t.Errorf("ContainsRestrictedKeyword(%q) = false, want true", msg)
		}
	}

	allowed := []string{
		"what is my balance",
		"my account is blocked", // "bond" must not match inside other words
		"vagabonds are wandering",
		"he is stockholm based",
	}
	for _, msg := range allowed {
		if ContainsRestrictedKeyword(msg) {
			t.Errorf("ContainsRestrictedKeyword(%q) = true, want false", msg)
		}
	}
}
