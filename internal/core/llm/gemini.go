package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/nabilhamdi/waraqa/internal/core"
)

var _ core.CompletionGateway = (*GeminiGateway)(nil)

// GeminiGateway implements core.CompletionGateway against the Gemini API.
// It performs no retries; retry policy belongs to the caller.
type GeminiGateway struct {
	client    *genai.Client
	modelName string
}

func NewGeminiGateway(ctx context.Context, apiKey, modelName string) (*GeminiGateway, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash-exp"
	}
	return &GeminiGateway{client: cl, modelName: modelName}, nil
}

func (g *GeminiGateway) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Complete sends the prompt with the given temperature and output cap and
// returns the concatenated text parts of the first candidate.
func (g *GeminiGateway) Complete(ctx context.Context, prompt string, opts core.GenerationOptions) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(opts.Temperature)
	if opts.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(int32(opts.MaxOutputTokens))
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini generate: empty response")
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}
