package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kbase/internal/adapter/llm"
	"kbase/internal/domain"
	"kbase/internal/usecase"
)

var askTopK int

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask questions against the knowledge base interactively",
	Long: `Start an interactive loop that reads a question, retrieves the most
relevant chunks from the vector store, and prints an answer generated from
them. Type 'exit' or 'quit' (or press Ctrl-D) to end the session.`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()
	log := GetLogger()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	st := newStore(cfg)

	if err := st.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		return fmt.Errorf("collection setup failed: %w", err)
	}

	generator := llm.NewClient(cfg.Generation.Model, cfg.Generation.BaseURL, cfg.Generation.APIKeyEnv)
	retriever := usecase.NewRetriever(embedder, st, generator, cfg.Retrieve.MinScore, log)

	topK := cfg.Retrieve.TopK
	if askTopK > 0 {
		topK = askTopK
	}

	fmt.Printf("Knowledge base ready (model: %s). Type 'exit' or 'quit' to end the session.\n", generator.ModelName())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			fmt.Println("Please enter a query.")
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		answer, chunks, err := retriever.Answer(ctx, query, topK)
		if err != nil {
			if errors.Is(err, domain.ErrRetrieval) {
				fmt.Println("I could not answer that: the knowledge base is unavailable right now.")
			} else {
				fmt.Println("I could not generate an answer right now.")
			}
			log.Warn("query failed", zap.String("query", query), zap.Error(err))
			continue
		}

		if len(chunks) == 0 {
			fmt.Println("\nNo relevant information was found in the knowledge base.")
		}
		fmt.Printf("\n%s\n", answer)

		if len(chunks) > 0 {
			fmt.Println("\nSources:")
			for i, sc := range chunks {
				source := sc.Chunk.Metadata["source_file"]
				if source == "" {
					source = sc.Chunk.SourcePath
				}
				if sc.Chunk.Page > 0 {
					fmt.Printf("  [%d] %s p.%d (score %.3f)\n", i+1, source, sc.Chunk.Page, sc.Score)
				} else {
					fmt.Printf("  [%d] %s (score %.3f)\n", i+1, source, sc.Score)
				}
			}
		}
	}

	return scanner.Err()
}
