package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// Embedder produces a fixed-length vector for arbitrary text. Used by
// the ingestion pipeline; the matching engine only reads stored vectors.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// EmbedText generates an embedding with the configured embedding model.
func (c *GeminiClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if c.config.EmbeddingModel == "" {
		return nil, fmt.Errorf("no embedding model configured")
	}

	model := c.client.EmbeddingModel(c.config.EmbeddingModel)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return resp.Embedding.Values, nil
}
