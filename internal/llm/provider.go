package llm

import (
	"os"
	"strings"
)

// Provider identifies which backend serves a configured model.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
)

// ParseModelString resolves the llm.model config value into a provider and a
// bare model name. The value may carry an explicit provider prefix, as in the
// default "anthropic/claude-sonnet-4-5" or "ollama/llama3"; without one, the
// provider is inferred from the model name and the environment.
func ParseModelString(model string) (Provider, string) {
	if i := strings.Index(model, "/"); i > 0 {
		prefix := strings.ToLower(model[:i])
		name := model[i+1:]
		switch prefix {
		case "ollama":
			return ProviderOllama, name
		case "openai":
			return ProviderOpenAI, name
		case "anthropic":
			return ProviderAnthropic, name
		}
	}
	return inferProvider(model), model
}

// inferProvider guesses the provider for an unprefixed model name. Well-known
// name families are matched first; otherwise the configured environment
// decides, with Anthropic as the final default.
func inferProvider(model string) Provider {
	lower := strings.ToLower(model)
	if strings.HasPrefix(lower, "claude") {
		return ProviderAnthropic
	}
	for _, prefix := range []string{"gpt-", "o1", "o3", "o4"} {
		if strings.HasPrefix(lower, prefix) {
			return ProviderOpenAI
		}
	}

	if os.Getenv("OLLAMA_HOST") != "" {
		return ProviderOllama
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return ProviderOpenAI
	}
	return ProviderAnthropic
}

// NewClientForModel builds the chat client for the llm.model config value and
// returns it with the bare model name. Provider credentials come from the
// environment, never from the config file:
//
//	ANTHROPIC_API_KEY  — Anthropic key (read by the SDK itself)
//	OPENAI_API_KEY     — OpenAI key
//	OPENAI_BASE_URL    — OpenAI-compatible gateway, e.g. a LiteLLM proxy
//	OLLAMA_HOST        — Ollama address (default http://localhost:11434)
func NewClientForModel(model string) (Client, string) {
	provider, modelName := ParseModelString(model)

	switch provider {
	case ProviderOllama:
		return NewOllamaClient(os.Getenv("OLLAMA_HOST")), modelName

	case ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
			return NewOpenAICompatibleClient(baseURL, apiKey), modelName
		}
		return NewOpenAIClient(apiKey), modelName

	default:
		return NewAnthropicClient(), modelName
	}
}
