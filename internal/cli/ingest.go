package cli

import (
	"fmt"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"kbase/internal/adapter/fs"
	"kbase/internal/adapter/processor"
	"kbase/internal/adapter/tracker"
	"kbase/internal/usecase"
)

var ingestReset bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest new or modified documents into the knowledge base",
	Long: `Scan the configured data directories for PDF and plain-text documents,
chunk and embed anything new or modified, and upsert it into the vector store.
Unchanged files are skipped using the persisted fingerprint tracker.

Examples:
  kbase ingest           # Incremental ingestion
  kbase ingest --reset   # Drop the collection and all fingerprints first`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "destructive: clear the vector store and tracker before ingesting")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()
	log := GetLogger()

	trk, err := tracker.NewBoltTracker(cfg.Data.TrackerPath)
	if err != nil {
		return fmt.Errorf("failed to open tracker: %w", err)
	}
	defer trk.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	st := newStore(cfg)

	splitter := processor.NewSplitter(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	walker := fs.NewWalker([]string{"**/*.txt", "**/*.md", "**/*.pdf"}, nil)

	ing := usecase.NewIngestor(usecase.IngestorOptions{
		Walker:    walker,
		Processor: processor.NewRegistry(splitter),
		Embedder:  embedder,
		Store:     st,
		Tracker:   trk,
		Logger:    log,
		Workers:   cfg.Ingest.Workers,
		Retries:   cfg.Ingest.RetryAttempts,
	})

	if ingestReset {
		fmt.Println("Resetting vector store and tracker...")
		if err := ing.Reset(ctx); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
	}

	if err := st.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		return fmt.Errorf("collection setup failed: %w", err)
	}

	fmt.Printf("Scanning %s and %s...\n", cfg.Data.TextDir, cfg.Data.PDFDir)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var initialized bool

	progress := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if !initialized {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
			initialized = true
		}
		bar.Set(done)
	}

	result, err := ing.Run(ctx, []string{cfg.Data.TextDir, cfg.Data.PDFDir}, progress)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Files ingested: %d\n", result.FilesIngested)
	fmt.Printf("  Files skipped:  %d (unchanged)\n", result.FilesSkipped)
	fmt.Printf("  Files failed:   %d\n", result.FilesFailed)
	fmt.Printf("  Chunks upserted: %d\n", result.ChunksUpserted)

	if count, err := st.Count(ctx); err == nil {
		fmt.Printf("  Points in collection: %d\n", count)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	return nil
}
