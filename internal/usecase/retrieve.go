package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kbase/internal/domain"
	"kbase/internal/port"
)

// Retriever answers queries against the ingested knowledge base: it embeds
// the query, searches the vector store, and rebuilds ranked chunks from the
// stored payloads.
type Retriever struct {
	embedder port.Embedder
	store    port.VectorStore
	llm      port.LLM
	minScore float64
	log      *zap.Logger
}

func NewRetriever(embedder port.Embedder, store port.VectorStore, llm port.LLM, minScore float64, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		llm:      llm,
		minScore: minScore,
		log:      logger,
	}
}

// Retrieve returns up to topK chunks ranked by similarity, descending. An
// empty or missing collection yields an empty result; upstream failures are
// wrapped as domain.ErrRetrieval.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrRetrieval, err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: embedder returned no vector", domain.ErrRetrieval)
	}

	hits, err := r.store.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", domain.ErrRetrieval, err)
	}

	chunks := make([]domain.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		if r.minScore > 0 && hit.Score < r.minScore {
			continue
		}
		chunks = append(chunks, domain.ScoredChunk{
			Chunk: hit.Payload.Chunk(),
			Score: hit.Score,
		})
	}

	r.log.Debug("retrieved chunks",
		zap.String("query", query),
		zap.Int("results", len(chunks)))
	return chunks, nil
}

// Answer retrieves context for the query and asks the language model for an
// answer conditioned on it. The retrieved chunks are returned alongside the
// answer so callers can show sources.
func (r *Retriever) Answer(ctx context.Context, query string, topK int) (string, []domain.ScoredChunk, error) {
	chunks, err := r.Retrieve(ctx, query, topK)
	if err != nil {
		return "", nil, err
	}

	answer, err := r.llm.Generate(ctx, BuildPrompt(query, chunks))
	if err != nil {
		return "", chunks, fmt.Errorf("generate answer: %w", err)
	}
	return answer, chunks, nil
}

// BuildPrompt assembles the generation prompt from the query and the
// retrieved context, citing each chunk's source file and page.
func BuildPrompt(query string, chunks []domain.ScoredChunk) string {
	if len(chunks) == 0 {
		return fmt.Sprintf("Query: %s\n\nNo relevant information was found in the knowledge base. State clearly that you don't have enough information to answer.", query)
	}

	var b strings.Builder
	b.WriteString("You are an AI assistant that answers questions based on the provided context.\n")
	b.WriteString("If the answer is not available in the context, clearly state that you don't have enough information.\n\n")
	b.WriteString("Context:\n")

	for i, sc := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		source := sc.Chunk.Metadata["source_file"]
		if source == "" {
			source = sc.Chunk.SourcePath
		}
		b.WriteString("Source: ")
		b.WriteString(source)
		if sc.Chunk.Page > 0 {
			fmt.Fprintf(&b, ", Page: %d", sc.Chunk.Page)
		}
		b.WriteString("\nContent: ")
		b.WriteString(sc.Chunk.Text)
	}

	fmt.Fprintf(&b, "\n\nQuery: %s\n\nAnswer:", query)
	return b.String()
}
