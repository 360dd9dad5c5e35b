package preflight

import (
	"context"

	"jobtrail/internal/classifier"
	"jobtrail/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Network checks only run for the providers that are configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckMailbox(cfg),
		CheckClassifier(cfg),
	}

	if cfg.Classifier.Provider == classifier.ProviderOpenRouter {
		results = append(results, CheckLLM(ctx, "OpenRouter LLM", cfg.GetLLM()))
	}
	return results
}
