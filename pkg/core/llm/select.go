package llm

import (
	"finagent/pkg/apperr"
	"finagent/pkg/config"
)

// NewFromConfig builds the Provider named by cfg.LLMProvider, grounded on
// the teacher's agent.Manager provider map but collapsed to the single
// active-provider selection this system's config actually exposes (no
// per-agent-type override, since there is only one agent here).
func NewFromConfig(cfg *config.Config) (Provider, error) {
	switch cfg.LLMProvider {
	case "ProviderX":
		return NewProviderXAdapter(cfg.LLMAPIKey, cfg.LLMModel), nil
	case "ProviderY":
		return NewProviderYAdapter(cfg.LLMAPIKey, cfg.LLMModel), nil
	case "ProviderZ":
		return NewProviderZAdapter(cfg.LLMAPIKey, cfg.LLMModel), nil
	default:
		return nil, apperr.ConfigurationError("unknown llm_provider %q", cfg.LLMProvider)
	}
}
