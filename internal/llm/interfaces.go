package llm

import "context"

// TurnPair is one prior user/assistant exchange injected as few-shot context.
type TurnPair struct {
	User      string
	Assistant string
}

// CompletionParams tunes a single generation call.
type CompletionParams struct {
	Temperature float64
	MaxTokens   int
}

// TextGenerator is the interface for chat-style text generation.
// Instructions carry the persona system prompt; history carries bounded
// few-shot turns; utterance is the new user message.
type TextGenerator interface {
	Complete(ctx context.Context, instructions string, history []TurnPair, utterance string, params CompletionParams) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
// EmbedBatch embeds texts in one provider call where the provider supports
// it; implementations that do not fall back to sequential single calls.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	GetModel() string
}
