package cli

import (
	"fmt"

	"kbase/config"
	"kbase/internal/adapter/embedding"
	"kbase/internal/adapter/store"
	"kbase/internal/port"
)

// newEmbedder builds the configured embedding client. The "mock" provider is
// deterministic and offline, useful for dry runs without a model server.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "ollama":
		return embedding.NewOllamaEmbedder(e.Model, e.BaseURL, e.Dimension, e.BatchSize)
	case "openai":
		return embedding.NewOpenAIEmbedder(e.APIKeyEnv, e.Model, e.Dimension, e.BatchSize)
	case "mock":
		return embedding.NewMockEmbedder(e.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", e.Provider)
	}
}

func newStore(cfg *config.Config) *store.QdrantStore {
	return store.NewQdrantStore(store.QdrantConfig{
		URL:        cfg.Store.URL,
		APIKeyEnv:  cfg.Store.APIKeyEnv,
		Collection: cfg.Store.Collection,
		Distance:   cfg.Store.Distance,
	})
}
