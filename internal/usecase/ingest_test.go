package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbase/internal/adapter/embedding"
	"kbase/internal/adapter/fs"
	"kbase/internal/adapter/processor"
	"kbase/internal/adapter/store"
	"kbase/internal/adapter/tracker"
	"kbase/internal/domain"
	"kbase/internal/port"
)

type ingestEnv struct {
	dir      string
	store    *store.MemoryStore
	tracker  port.Tracker
	embedder port.Embedder
	ingestor *Ingestor
}

func newIngestEnv(t *testing.T) *ingestEnv {
	t.Helper()

	dir := t.TempDir()
	trk, err := tracker.NewBoltTracker(filepath.Join(t.TempDir(), "ingested.db"))
	require.NoError(t, err)
	t.Cleanup(func() { trk.Close() })

	env := &ingestEnv{
		dir:      dir,
		store:    store.NewMemoryStore(),
		tracker:  trk,
		embedder: embedding.NewMockEmbedder(16),
	}
	env.ingestor = env.build(t, env.embedder, env.tracker)
	return env
}

func (e *ingestEnv) build(t *testing.T, emb port.Embedder, trk port.Tracker) *Ingestor {
	t.Helper()
	return NewIngestor(IngestorOptions{
		Walker:    fs.NewWalker([]string{"**/*.txt", "**/*.md", "**/*.pdf"}, nil),
		Processor: processor.NewRegistry(processor.NewSplitter(50, 10)),
		Embedder:  emb,
		Store:     e.store,
		Tracker:   trk,
		Workers:   2,
	})
}

func (e *ingestEnv) writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (e *ingestEnv) run(t *testing.T) *IngestResult {
	t.Helper()
	res, err := e.ingestor.Run(context.Background(), []string{e.dir}, nil)
	require.NoError(t, err)
	return res
}

func TestIngestRunCounts(t *testing.T) {
	env := newIngestEnv(t)
	env.writeDoc(t, "a.txt", "solar panels convert sunlight into electricity.")
	env.writeDoc(t, "b.md", "wind turbines convert kinetic energy into power.")

	res := env.run(t)

	assert.Equal(t, 2, res.FilesIngested)
	assert.Equal(t, 0, res.FilesSkipped)
	assert.Equal(t, 0, res.FilesFailed)
	assert.Greater(t, res.ChunksUpserted, 0)

	count, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.ChunksUpserted, count)
}

func TestIngestSecondRunSkipsUnchanged(t *testing.T) {
	env := newIngestEnv(t)
	env.writeDoc(t, "a.txt", "stable content that does not change between runs.")

	first := env.run(t)
	require.Equal(t, 1, first.FilesIngested)

	second := env.run(t)
	assert.Equal(t, 0, second.FilesIngested)
	assert.Equal(t, 1, second.FilesSkipped)
	assert.Equal(t, 0, second.ChunksUpserted)

	count, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ChunksUpserted, count, "idempotent re-run must not grow the store")
}

func TestIngestModifiedFileReplacesStaleChunks(t *testing.T) {
	env := newIngestEnv(t)
	long := ""
	for i := 0; i < 10; i++ {
		long += fmt.Sprintf("paragraph %d about battery storage systems. ", i)
	}
	path := env.writeDoc(t, "doc.txt", long)

	first := env.run(t)
	require.Greater(t, first.ChunksUpserted, 1)

	// Shrink the file; the old points must be gone after re-ingestion.
	require.NoError(t, os.WriteFile(path, []byte("now a short note."), 0644))
	bumpMtime(t, path)

	second := env.run(t)
	require.Equal(t, 1, second.FilesIngested)

	count, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.ChunksUpserted, count, "stale chunks from the longer version must be deleted")
}

func TestIngestIsolatesPerFileFailures(t *testing.T) {
	env := newIngestEnv(t)
	env.writeDoc(t, "good.txt", "this file is perfectly fine.")
	env.writeDoc(t, "broken.pdf", "not actually a pdf")

	res := env.run(t)

	assert.Equal(t, 1, res.FilesIngested)
	assert.Equal(t, 1, res.FilesFailed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "broken.pdf")
}

func TestIngestEmbedderFailureIsRecoverable(t *testing.T) {
	env := newIngestEnv(t)
	env.writeDoc(t, "a.txt", "content that will fail to embed.")

	ing := env.build(t, failingEmbedder{}, env.tracker)
	res, err := ing.Run(context.Background(), []string{env.dir}, nil)
	require.NoError(t, err, "embedding failures are per-file, not fatal")
	assert.Equal(t, 1, res.FilesFailed)
	assert.Equal(t, 0, res.FilesIngested)

	// The file was never recorded, so a later run with a working embedder
	// picks it up.
	res = env.run(t)
	assert.Equal(t, 1, res.FilesIngested)
}

func TestIngestTrackerFailureIsFatal(t *testing.T) {
	env := newIngestEnv(t)
	env.writeDoc(t, "a.txt", "some content")
	env.writeDoc(t, "b.txt", "more content")

	ing := env.build(t, env.embedder, brokenTracker{})
	_, err := ing.Run(context.Background(), []string{env.dir}, nil)
	require.ErrorIs(t, err, domain.ErrTracker)
}

func TestIngestEmptyFileRecordedAndSkipped(t *testing.T) {
	env := newIngestEnv(t)
	env.writeDoc(t, "empty.txt", "   \n\t ")

	res := env.run(t)
	assert.Equal(t, 1, res.FilesSkipped)
	assert.Equal(t, 0, res.FilesFailed)

	// Recorded on the first run, so the second run skips it via the tracker.
	res = env.run(t)
	assert.Equal(t, 1, res.FilesSkipped)
}

func TestIngestMissingDirectoryYieldsEmptyResult(t *testing.T) {
	env := newIngestEnv(t)

	res, err := env.ingestor.Run(context.Background(), []string{filepath.Join(env.dir, "nope")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.FilesIngested+res.FilesSkipped+res.FilesFailed)
}

func TestIngestReset(t *testing.T) {
	env := newIngestEnv(t)
	env.writeDoc(t, "a.txt", "content to wipe and re-ingest.")

	first := env.run(t)
	require.Equal(t, 1, first.FilesIngested)

	require.NoError(t, env.ingestor.Reset(context.Background()))

	count, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	again := env.run(t)
	assert.Equal(t, 1, again.FilesIngested, "reset must forget fingerprints too")
}

func TestIngestProgressCallback(t *testing.T) {
	env := newIngestEnv(t)
	env.writeDoc(t, "a.txt", "one")
	env.writeDoc(t, "b.txt", "two")
	env.writeDoc(t, "c.txt", "three")

	var calls int
	var lastDone, lastTotal int
	_, err := env.ingestor.Run(context.Background(), []string{env.dir}, func(done, total int) {
		calls++
		lastDone, lastTotal = done, total
	})
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, lastDone)
	assert.Equal(t, 3, lastTotal)
}

func TestPointIDStableAndDistinct(t *testing.T) {
	a := domain.Chunk{SourcePath: "/data/a.txt", Page: 0, Index: 0}
	b := domain.Chunk{SourcePath: "/data/a.txt", Page: 0, Index: 1}
	c := domain.Chunk{SourcePath: "/data/a.txt", Page: 1, Index: 0}

	assert.Equal(t, PointID(a), PointID(a))
	assert.NotEqual(t, PointID(a), PointID(b))
	assert.NotEqual(t, PointID(a), PointID(c))
	assert.NotEqual(t, PointID(b), PointID(c))
}

func bumpMtime(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	newTime := info.ModTime().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, newTime, newTime))
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("%w: backend unavailable", domain.ErrEmbedding)
}
func (failingEmbedder) Dimension() int    { return 16 }
func (failingEmbedder) ModelName() string { return "failing" }

type brokenTracker struct{}

func (brokenTracker) Unchanged(string) (bool, error) {
	return false, fmt.Errorf("%w: database locked", domain.ErrTracker)
}
func (brokenTracker) Record(string) error { return errors.New("unreachable") }
func (brokenTracker) Clear() error        { return nil }
func (brokenTracker) Close() error        { return nil }
