package ai

import "strings"

// DefaultModels maps each provider to the model used when a request does
// not name one.
var DefaultModels = map[Provider]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-opus-latest",
	ProviderGemini:    "gemini-2.0-flash",
}

// DefaultModel is the pipeline-wide fallback when no model is requested.
const DefaultModel = "gpt-4o-mini"

// GetModelProvider classifies a model name by its vendor family prefix.
func GetModelProvider(model string) (Provider, error) {
	switch {
	case strings.HasPrefix(model, "gpt"):
		return ProviderOpenAI, nil
	case strings.HasPrefix(model, "claude"):
		return ProviderAnthropic, nil
	case strings.HasPrefix(model, "gemini"):
		return ProviderGemini, nil
	default:
		return "", &UnknownProviderError{Model: model}
	}
}
