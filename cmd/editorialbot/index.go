package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/knoguchi/editorialbot/internal/config"
	"github.com/knoguchi/editorialbot/internal/corpus"
	"github.com/knoguchi/editorialbot/internal/ranker"
	"github.com/spf13/cobra"
)

var indexBatchSize int

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the corpus into the Qdrant collection",
	Long: `Embeds every editorial with the Ollama embedding model and rebuilds
QDRANT_COLLECTION from scratch. Required before serving with RANKER=qdrant.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().IntVar(&indexBatchSize, "batch-size", 32, "Editorials embedded per batch")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, _ := setupLogger(os.Stderr, cfg.LogLevel, cfg.LogFile)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a := &app{cfg: cfg, logger: logger}
	defer a.Close()

	source, err := a.corpusSource(ctx)
	if err != nil {
		return err
	}
	c, err := corpus.NewCache(source, logger).Get(ctx)
	if err != nil {
		return err
	}

	store, err := a.vectorStore()
	if err != nil {
		return err
	}
	emb := a.embedder()

	start := time.Now()
	n, err := ranker.IndexCorpus(ctx, emb, store, c, emb.Dimension(), indexBatchSize)
	if err != nil {
		return fmt.Errorf("indexed %d of %d editorials: %w", n, c.Len(), err)
	}
	count, err := store.Count(ctx)
	if err != nil {
		return err
	}

	logger.Info("indexed corpus",
		"collection", cfg.QdrantCollection,
		"model", emb.ModelName(),
		"dimension", emb.Dimension(),
		"documents", n,
		"points", count,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d editorials into %s\n", n, cfg.QdrantCollection)
	return nil
}
