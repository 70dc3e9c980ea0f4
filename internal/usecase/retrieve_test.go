package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbase/internal/adapter/embedding"
	"kbase/internal/adapter/store"
	"kbase/internal/domain"
	"kbase/internal/port"
)

// seedStore embeds the given texts with the mock embedder and upserts them as
// points, one source file per text.
func seedStore(t *testing.T, emb port.Embedder, s port.VectorStore, texts ...string) {
	t.Helper()
	ctx := context.Background()

	vectors, err := emb.Embed(ctx, texts)
	require.NoError(t, err)

	points := make([]port.Point, len(texts))
	for i, text := range texts {
		chunk := domain.Chunk{
			SourcePath: fmt.Sprintf("/data/texts/doc%d.txt", i),
			Index:      0,
			Text:       text,
			Metadata:   map[string]string{"source_file": fmt.Sprintf("doc%d.txt", i)},
		}
		points[i] = port.Point{
			ID:     PointID(chunk),
			Vector: vectors[i],
			Payload: domain.Payload{
				Text:       chunk.Text,
				SourcePath: chunk.SourcePath,
				ChunkIndex: chunk.Index,
				Metadata:   chunk.Metadata,
			},
		}
	}
	require.NoError(t, s.Upsert(ctx, points))
}

func TestRetrieveExactTextRanksFirst(t *testing.T) {
	emb := embedding.NewMockEmbedder(16)
	st := store.NewMemoryStore()
	seedStore(t, emb, st,
		"refunds are issued within 30 days of purchase",
		"shipping takes five to seven business days",
		"our office is open monday through friday")

	r := NewRetriever(emb, st, nil, 0, nil)
	chunks, err := r.Retrieve(context.Background(), "refunds are issued within 30 days of purchase", 3)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// The query text equals a stored chunk, so the deterministic embedder
	// gives it cosine similarity 1.0 and first rank.
	assert.Equal(t, "refunds are issued within 30 days of purchase", chunks[0].Chunk.Text)
	assert.InDelta(t, 1.0, chunks[0].Score, 1e-5)

	for i := 1; i < len(chunks); i++ {
		assert.GreaterOrEqual(t, chunks[i-1].Score, chunks[i].Score, "results must be score-descending")
	}
}

func TestRetrievePayloadRebuildsChunk(t *testing.T) {
	emb := embedding.NewMockEmbedder(16)
	st := store.NewMemoryStore()
	seedStore(t, emb, st, "the warranty covers manufacturing defects for two years")

	r := NewRetriever(emb, st, nil, 0, nil)
	chunks, err := r.Retrieve(context.Background(), "the warranty covers manufacturing defects for two years", 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	got := chunks[0].Chunk
	assert.Equal(t, "/data/texts/doc0.txt", got.SourcePath)
	assert.Equal(t, 0, got.Index)
	assert.Equal(t, "doc0.txt", got.Metadata["source_file"])
	assert.NotEmpty(t, got.Text, "chunk text must survive the store round trip")
}

func TestRetrieveEmptyQuery(t *testing.T) {
	r := NewRetriever(embedding.NewMockEmbedder(16), store.NewMemoryStore(), nil, 0, nil)

	chunks, err := r.Retrieve(context.Background(), "   \n ", 3)
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestRetrieveEmptyStore(t *testing.T) {
	r := NewRetriever(embedding.NewMockEmbedder(16), store.NewMemoryStore(), nil, 0, nil)

	chunks, err := r.Retrieve(context.Background(), "anything at all", 3)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrieveWrapsEmbedderFailure(t *testing.T) {
	r := NewRetriever(failingEmbedder{}, store.NewMemoryStore(), nil, 0, nil)

	_, err := r.Retrieve(context.Background(), "query", 3)
	require.ErrorIs(t, err, domain.ErrRetrieval)
}

func TestRetrieveWrapsStoreFailure(t *testing.T) {
	r := NewRetriever(embedding.NewMockEmbedder(16), failingStore{}, nil, 0, nil)

	_, err := r.Retrieve(context.Background(), "query", 3)
	require.ErrorIs(t, err, domain.ErrRetrieval)
}

func TestRetrieveMinScoreFilters(t *testing.T) {
	emb := embedding.NewMockEmbedder(16)
	st := store.NewMemoryStore()
	seedStore(t, emb, st,
		"return policy allows refunds within 30 days",
		"zzzzzzzz qqqqqq xxxxxx completely unrelated noise")

	strict := NewRetriever(emb, st, nil, 0.99, nil)
	chunks, err := strict.Retrieve(context.Background(), "return policy allows refunds within 30 days", 5)
	require.NoError(t, err)
	require.Len(t, chunks, 1, "only the exact match clears a 0.99 threshold")
	assert.Equal(t, "return policy allows refunds within 30 days", chunks[0].Chunk.Text)
}

func TestAnswerUsesRetrievedContext(t *testing.T) {
	emb := embedding.NewMockEmbedder(16)
	st := store.NewMemoryStore()
	seedStore(t, emb, st, "refunds are issued within 30 days of purchase")

	llm := &recordingLLM{reply: "You can get a refund within 30 days."}
	r := NewRetriever(emb, st, llm, 0, nil)

	answer, chunks, err := r.Answer(context.Background(), "refunds are issued within 30 days of purchase", 3)
	require.NoError(t, err)
	assert.Equal(t, "You can get a refund within 30 days.", answer)
	require.NotEmpty(t, chunks)

	assert.Contains(t, llm.prompt, "refunds are issued within 30 days of purchase")
	assert.Contains(t, llm.prompt, "Source: doc0.txt")
}

func TestBuildPromptWithContext(t *testing.T) {
	chunks := []domain.ScoredChunk{
		{
			Chunk: domain.Chunk{
				SourcePath: "/data/pdfs/manual.pdf",
				Page:       4,
				Text:       "press the reset button for five seconds",
				Metadata:   map[string]string{"source_file": "manual.pdf"},
			},
			Score: 0.91,
		},
		{
			Chunk: domain.Chunk{
				SourcePath: "/data/texts/faq.txt",
				Text:       "the device restarts automatically after a reset",
				Metadata:   map[string]string{"source_file": "faq.txt"},
			},
			Score: 0.84,
		},
	}

	prompt := BuildPrompt("how do I reset the device?", chunks)

	assert.Contains(t, prompt, "Source: manual.pdf, Page: 4")
	assert.Contains(t, prompt, "Source: faq.txt")
	assert.NotContains(t, prompt, "faq.txt, Page:", "unpaged sources carry no page citation")
	assert.Contains(t, prompt, "press the reset button for five seconds")
	assert.Contains(t, prompt, "Query: how do I reset the device?")
	assert.True(t, strings.HasSuffix(prompt, "Answer:"))
}

func TestBuildPromptWithoutContext(t *testing.T) {
	prompt := BuildPrompt("what is the meaning of life?", nil)

	assert.Contains(t, prompt, "Query: what is the meaning of life?")
	assert.Contains(t, prompt, "No relevant information was found")
}

type failingStore struct {
	port.VectorStore
}

func (failingStore) Search(context.Context, []float32, int) ([]port.SearchHit, error) {
	return nil, fmt.Errorf("%w: connection refused", domain.ErrStore)
}

type recordingLLM struct {
	reply  string
	prompt string
}

func (l *recordingLLM) Generate(_ context.Context, prompt string) (string, error) {
	l.prompt = prompt
	return l.reply, nil
}

func (l *recordingLLM) ModelName() string { return "recording" }
