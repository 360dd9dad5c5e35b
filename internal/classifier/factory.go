package classifier

import (
	"context"
	"log/slog"
	"strings"

	"jobtrail/internal/config"
	"jobtrail/internal/logging"
	"jobtrail/internal/services"
	"jobtrail/internal/services/llm"
)

// Provider names accepted in classifier.provider.
const (
	ProviderAuto       = "auto"
	ProviderHeuristic  = "heuristic"
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
)

// New selects a classifier from configuration. "auto" uses Gemini when a key
// is configured and the heuristic otherwise. An explicitly named provider
// without credentials fails with ErrConfiguration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Classifier, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "classifier", "new", "config required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	opts := ModelOptions{
		Timeout:      cfg.ClassifierTimeout(),
		MaxBodyChars: cfg.Classifier.MaxBodyChars,
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Classifier.Provider))
	if provider == "" || provider == ProviderAuto {
		if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
			logger.Info("no model credentials configured; using heuristic classifier")
			return NewHeuristic(logger), nil
		}
		provider = ProviderGemini
	}

	switch provider {
	case ProviderHeuristic:
		return NewHeuristic(logger), nil
	case ProviderGemini:
		completer, err := NewGeminiCompleter(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		return NewModel(completer, opts, logger), nil
	case ProviderOpenAI:
		completer, err := NewOpenAICompleter(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
		if err != nil {
			return nil, err
		}
		return NewModel(completer, opts, logger), nil
	case ProviderOpenRouter:
		llmCfg := cfg.GetLLM()
		if llmCfg.APIKey == "" {
			return nil, services.Wrap(services.ErrConfiguration, "classifier", "openrouter", "api key required", nil)
		}
		client := llm.NewClient(llm.Config{
			APIKey:         llmCfg.APIKey,
			BaseURL:        llmCfg.BaseURL,
			Model:          llmCfg.Model,
			Referer:        llmCfg.Referer,
			Title:          llmCfg.Title,
			TimeoutSeconds: llmCfg.TimeoutSeconds,
		})
		return NewModel(NewOpenRouterCompleter(client), opts, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "classifier", "new", "unknown provider "+provider, nil)
	}
}
