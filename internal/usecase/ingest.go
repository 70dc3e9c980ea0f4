package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"kbase/internal/adapter/fs"
	"kbase/internal/domain"
	"kbase/internal/port"
)

// Ingestor coordinates the ingestion pipeline: discover files, skip unchanged
// ones via the tracker, chunk, embed, upsert, then record fingerprints.
// Files are processed by independent workers; a per-file failure never aborts
// the run, a tracker failure always does.
type Ingestor struct {
	walker    *fs.Walker
	processor port.Processor
	embedder  port.Embedder
	store     port.VectorStore
	tracker   port.Tracker
	log       *zap.Logger

	workers int
	retries uint64

	// Serializes tracker writes; workers run concurrently.
	trackerMu sync.Mutex
}

// IngestorOptions bundles the injected collaborators and tuning knobs.
type IngestorOptions struct {
	Walker    *fs.Walker
	Processor port.Processor
	Embedder  port.Embedder
	Store     port.VectorStore
	Tracker   port.Tracker
	Logger    *zap.Logger
	Workers   int
	Retries   int
}

func NewIngestor(opts IngestorOptions) *Ingestor {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Ingestor{
		walker:    opts.Walker,
		processor: opts.Processor,
		embedder:  opts.Embedder,
		store:     opts.Store,
		tracker:   opts.Tracker,
		log:       logger,
		workers:   workers,
		retries:   uint64(retries),
	}
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	FilesIngested  int
	FilesSkipped   int
	FilesFailed    int
	ChunksUpserted int
	Errors         []string
}

// Reset drops the collection and all fingerprints before a full
// re-ingestion. The store goes first: if the tracker clear then fails, the
// stale fingerprints are invalidated by hash mismatch on the next run,
// whereas the inverse order could leave files that are missing from the
// store but marked ingested.
func (g *Ingestor) Reset(ctx context.Context) error {
	if err := g.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear vector store: %w", err)
	}
	if err := g.tracker.Clear(); err != nil {
		return fmt.Errorf("clear tracker: %w", err)
	}
	g.log.Info("store and tracker cleared for full re-ingestion")
	return nil
}

// Run ingests every supported file under the given directories. The progress
// callback, when non-nil, is invoked after each file with (done, total).
func (g *Ingestor) Run(ctx context.Context, dirs []string, progress func(done, total int)) (*IngestResult, error) {
	var files []string
	for _, dir := range dirs {
		found, err := g.walker.Walk(dir)
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
		files = append(files, found...)
	}

	result := &IngestResult{}
	if len(files) == 0 {
		return result, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		done     int
		fatalErr error
		wg       sync.WaitGroup
	)

	jobs := make(chan string)
	for i := 0; i < g.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				chunks, skipped, err := g.ingestFile(ctx, path)

				mu.Lock()
				switch {
				case err != nil && errors.Is(err, domain.ErrTracker):
					// Losing fingerprint state risks duplicate or missed
					// ingestion; abort the whole run.
					if fatalErr == nil {
						fatalErr = err
						cancel()
					}
				case err != nil:
					result.FilesFailed++
					result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
					g.log.Warn("file ingestion failed", zap.String("path", path), zap.Error(err))
				case skipped:
					result.FilesSkipped++
				default:
					result.FilesIngested++
					result.ChunksUpserted += chunks
				}
				done++
				if progress != nil {
					progress(done, len(files))
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, path := range files {
		select {
		case jobs <- path:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if fatalErr != nil {
		return result, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// ingestFile runs the per-file pipeline. The returned error is per-file and
// recoverable unless it wraps domain.ErrTracker.
func (g *Ingestor) ingestFile(ctx context.Context, path string) (chunkCount int, skipped bool, err error) {
	unchanged, err := g.tracker.Unchanged(path)
	if err != nil {
		return 0, false, err
	}
	if unchanged {
		g.log.Debug("file unchanged, skipping", zap.String("path", path))
		return 0, true, nil
	}

	chunks, err := g.processor.Process(path)
	if err != nil {
		return 0, false, err
	}
	if len(chunks) == 0 {
		// Nothing to embed; record so the empty file is not revisited.
		g.log.Info("no text extracted, skipping", zap.String("path", path))
		return 0, true, g.record(path)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var vectors [][]float32
	err = g.retry(ctx, func() error {
		v, embErr := g.embedder.Embed(ctx, texts)
		if embErr != nil {
			return embErr
		}
		vectors = v
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	if len(vectors) != len(chunks) {
		return 0, false, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(chunks))
	}

	points := make([]port.Point, len(chunks))
	for i, c := range chunks {
		points[i] = port.Point{
			ID:     PointID(c),
			Vector: vectors[i],
			Payload: domain.Payload{
				Text:       c.Text,
				SourcePath: c.SourcePath,
				Page:       c.Page,
				ChunkIndex: c.Index,
				Metadata:   c.Metadata,
			},
		}
	}

	// Drop any stale points first so a document that shrank does not leave
	// orphaned chunks behind the fresh upsert.
	err = g.retry(ctx, func() error {
		return g.store.DeleteBySource(ctx, path)
	})
	if err != nil {
		return 0, false, err
	}

	err = g.retry(ctx, func() error {
		return g.store.Upsert(ctx, points)
	})
	if err != nil {
		return 0, false, err
	}

	if err := g.record(path); err != nil {
		return 0, false, err
	}

	g.log.Info("file ingested",
		zap.String("path", path),
		zap.Int("chunks", len(chunks)))
	return len(chunks), false, nil
}

func (g *Ingestor) record(path string) error {
	g.trackerMu.Lock()
	defer g.trackerMu.Unlock()
	return g.tracker.Record(path)
}

// retry runs op with bounded exponential backoff. Dimension mismatches are
// never retried; they need operator intervention.
func (g *Ingestor) retry(ctx context.Context, op func() error) error {
	wrapped := func() error {
		err := op()
		if err != nil && errors.Is(err, domain.ErrDimensionMismatch) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), g.retries), ctx)
	return backoff.Retry(wrapped, policy)
}

// PointID derives a stable point id from chunk identity, so re-ingesting the
// same chunk overwrites its previous point.
func PointID(c domain.Chunk) uint64 {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", c.SourcePath, c.Page, c.Index)))
	return binary.BigEndian.Uint64(h[:8])
}
