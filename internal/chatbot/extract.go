package chatbot

import (
	"regexp"
	"strings"
)

// Explicit PIN phrasings are tried before any bare digit scan.
var pinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)pin\s+is\s+(\d{4})`),
	regexp.MustCompile(`(?i)pin:?\s*(\d{4})`),
	regexp.MustCompile(`(?i)my\s+pin\s+(?:is\s+)?(\d{4})`),
	regexp.MustCompile(`(?i)pin.*?(\d{4})`),
	regexp.MustCompile(`(?i)(\d{4}).*?pin`),
}

// genericFourDigits matches a standalone 4-digit run. Group 1 is the digits.
var genericFourDigits = regexp.MustCompile(`(?:^|\D)(\d{4})(?:\D|$)`)

var allDigits = regexp.MustCompile(`^\d+$`)

// ExtractPIN pulls a 4-digit PIN from the message. Explicit "pin is NNNN"
// phrasings win; a bare 4-digit message or any standalone 4-digit run is
// accepted as a fallback.
func ExtractPIN(message string) string {
	for _, p := range pinPatterns {
		if m := p.FindStringSubmatch(message); m != nil {
			return m[1]
		}
	}

	trimmed := strings.TrimSpace(message)
	if len(trimmed) == 4 && allDigits.MatchString(trimmed) {
		return trimmed
	}

	if m := genericFourDigits.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return ""
}

// Explicit account phrasings take precedence over the bare 4-digit scan so
// "account 12345678 pin 1234" style messages resolve the intended digits.
var lastFourPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)last\s+four\s+digits?\s+(?:is\s+|are\s+)?(\d{4})`),
	regexp.MustCompile(`(?i)last\s+4\s+digits?\s+(?:is\s+|are\s+)?(\d{4})`),
	regexp.MustCompile(`(?i)ending\s+in\s+(\d{4})`),
	regexp.MustCompile(`(?i)ends?\s+with\s+(\d{4})`),
	regexp.MustCompile(`(?i)account\s+\w+\s+(\d{4})`),
	regexp.MustCompile(`\b(\d{4})\b`),
}

// ExtractLastFourDigits pulls a last-4-digits account candidate from the
// message, or returns "" when the message carries none.
func ExtractLastFourDigits(message string) string {
	for _, p := range lastFourPatterns {
		if m := p.FindStringSubmatch(message); m != nil {
			return m[1]
		}
	}
	return ""
}

// RestrictedKeywords force a fixed refusal regardless of conversation state.
var RestrictedKeywords = []string{
	"credit card", "loan", "investment", "mortgage", "insurance",
	"wealth management", "stock", "trading", "mutual fund", "bond",
}

var restrictedPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(RestrictedKeywords))
	for i, kw := range RestrictedKeywords {
		patterns[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return patterns
}()

// ContainsRestrictedKeyword reports whether the text mentions a restricted
// product as a whole word.
func ContainsRestrictedKeyword(text string) bool {
	for _, p := range restrictedPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
