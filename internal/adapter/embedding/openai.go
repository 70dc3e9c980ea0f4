package embedding

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"kbase/internal/domain"
)

// Client embeds text through an OpenAI-compatible embeddings endpoint.
// Works against OpenAI itself or a local Ollama server.
type Client struct {
	api       *openai.Client
	model     string
	dimension int
	batchSize int
}

// NewOpenAIEmbedder creates an embedder for the OpenAI API, reading the key
// from the given environment variable.
func NewOpenAIEmbedder(apiKeyEnv, model string, dimension, batchSize int) (*Client, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	return newClient(apiKey, "https://api.openai.com/v1", model, dimension, batchSize), nil
}

// NewOllamaEmbedder creates an embedder against a local Ollama server, which
// speaks the OpenAI embeddings API and needs no real key.
func NewOllamaEmbedder(model, baseURL string, dimension, batchSize int) (*Client, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	return newClient("ollama", baseURL, model, dimension, batchSize), nil
}

func newClient(apiKey, baseURL, model string, dimension, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = 64
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{
		api:       openai.NewClientWithConfig(cfg),
		model:     model,
		dimension: dimension,
		batchSize: batchSize,
	}
}

// Embed generates one vector per input text, preserving input order. Any
// failure voids the whole batch.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: empty text at index %d", domain.ErrEmbedding, i)
		}
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += c.batchSize {
		end := i + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}

	return all, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", domain.ErrEmbedding, len(resp.Data), len(texts))
	}

	// Responses carry the input index; reorder to match input order.
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrEmbedding, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, nil
}

func (c *Client) Dimension() int {
	return c.dimension
}

func (c *Client) ModelName() string {
	return c.model
}
