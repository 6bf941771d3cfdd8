package llm

import (
	"context"
	"fmt"

	"github.com/nabilhamdi/waraqa/internal/core"
)

var _ core.CompletionGateway = (*MockGateway)(nil)

// MockGateway satisfies the completion contract without an API key.
// Selected at startup when GEMINI_API_KEY is unset, so the rest of the
// system runs unchanged in development and tests.
type MockGateway struct{}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Complete returns a deterministic canned answer echoing the settings it
// was called with, which makes wiring problems visible in dev.
func (m *MockGateway) Complete(ctx context.Context, prompt string, opts core.GenerationOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"This is a mock response (no GEMINI_API_KEY configured). Temperature %.2f, max %d tokens, prompt length %d characters.",
		opts.Temperature, opts.MaxOutputTokens, len(prompt),
	), nil
}
