package core

import "context"

// GenerationOptions carry the generation parameters derived from chat
// settings: creativity level 0-100 maps linearly to temperature 0.0-1.0,
// and output is capped at a fixed token budget.
type GenerationOptions struct {
	Temperature     float32
	MaxOutputTokens int
}

// CompletionGateway is the boundary to the external text-generation
// service. Implementations: Gemini when an API key is configured, a
// deterministic mock otherwise. Failures surface as ErrGenerationFailed.
type CompletionGateway interface {
	Complete(ctx context.Context, prompt string, opts GenerationOptions) (string, error)
}
