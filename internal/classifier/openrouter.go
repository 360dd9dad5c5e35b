package classifier

import (
	"context"

	"jobtrail/internal/services/llm"
)

// OpenRouterCompleter adapts the llm client to the Completer contract.
type OpenRouterCompleter struct {
	client *llm.Client
}

// NewOpenRouterCompleter wraps client.
func NewOpenRouterCompleter(client *llm.Client) *OpenRouterCompleter {
	return &OpenRouterCompleter{client: client}
}

// Name identifies the provider.
func (o *OpenRouterCompleter) Name() string {
	return "openrouter"
}

// Complete sends a JSON-mode completion through OpenRouter.
func (o *OpenRouterCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	return o.client.CompleteJSON(ctx, system, prompt)
}
