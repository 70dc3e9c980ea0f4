// Package llm adapts an OpenAI-compatible chat completions endpoint to the
// generation port. The answer step is a single blocking call; everything
// interesting happens upstream in retrieval.
package llm

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a generation client. With an empty apiKeyEnv, or when the
// variable is unset, a placeholder key is used, which is what local Ollama
// servers expect.
func NewClient(model, baseURL, apiKeyEnv string) *Client {
	apiKey := "ollama"
	if apiKeyEnv != "" {
		if k := os.Getenv(apiKeyEnv); k != "" {
			apiKey = k
		}
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) ModelName() string {
	return c.model
}
