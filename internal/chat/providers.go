package chat

import (
	"context"

	"github.com/vinaysb/mindcare-navigator/internal/ai"
	"github.com/vinaysb/mindcare-navigator/internal/config"
)

// NewCascadeFromConfig registers every provider with a credential present
// and wires the cascade: credential-filtered priority order, the first two
// cloud providers as cross-falling primaries, and the configured fallback
// provider as the hop of last resort.
func NewCascadeFromConfig(cfg config.Config) *ai.Cascade {
	reg := ai.NewRegistry()

	if cfg.GroqAPIKey != "" {
		reg.Register("groq", func(ctx context.Context) (ai.Provider, error) {
			_ = ctx
			return ai.NewGroqProvider(cfg.GroqAPIKey), nil
		})
	}
	if cfg.GeminiAPIKey != "" {
		reg.Register("gemini", func(ctx context.Context) (ai.Provider, error) {
			_ = ctx
			return ai.NewGeminiProvider(cfg.GeminiAPIKey), nil
		})
	}
	if cfg.XAIAPIKey != "" {
		reg.Register("grok", func(ctx context.Context) (ai.Provider, error) {
			_ = ctx
			return ai.NewGrokProvider(cfg.XAIAPIKey), nil
		})
	}
	reg.Register("ollama", func(ctx context.Context) (ai.Provider, error) {
		_ = ctx
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	})

	order := cfg.ProviderOrder()
	var primaries []string
	for _, name := range order {
		if name == "ollama" {
			continue
		}
		primaries = append(primaries, name)
		if len(primaries) == 2 {
			break
		}
	}

	return ai.NewCascade(reg, order, primaries, cfg.FallbackProvider)
}
