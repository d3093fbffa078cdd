package llm

import (
	"context"
)

type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TokenCounter is implemented by providers that can count tokens exactly
// for their active model. Callers fall back to a local approximation when
// the active client does not implement it or the call fails.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
