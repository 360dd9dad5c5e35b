package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"jobtrail/internal/services"
)

// GeminiCompleter calls Google Gemini through the generative-ai-go client.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter dials the Gemini API with apiKey. Extra client options
// are appended after the key.
func NewGeminiCompleter(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*GeminiCompleter, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "classifier", "gemini", "api key required", nil)
	}
	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "classifier", "gemini", "create client", err)
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

// Name identifies the provider.
func (g *GeminiCompleter) Name() string {
	return "gemini"
}

// Complete runs a single JSON-mode generation.
func (g *GeminiCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return geminiText(resp)
}

// Close releases the underlying client.
func (g *GeminiCompleter) Close() error {
	return g.client.Close()
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("gemini generate: empty response")
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}
	return "", fmt.Errorf("gemini generate: no text candidates")
}
