package main

import (
	"context"
	"fmt"
	"os"

	"github.com/knoguchi/editorialbot/internal/config"
	"github.com/knoguchi/editorialbot/internal/corpus"
	"github.com/spf13/cobra"
)

var (
	importBackend string
	importReplace bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy the JSON corpus into a database",
	Long: `Reads editorials from CORPUS_PATH (or CORPUS_URL) and upserts them into
the PostgreSQL or SQLite store, keeping their order. Serve with
CORPUS_BACKEND=postgres or sqlite afterwards to answer from the database.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importBackend, "backend", "", "Target store: postgres or sqlite (default CORPUS_BACKEND)")
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "Delete stored editorials before importing")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if importBackend != "" {
		cfg.CorpusBackend = importBackend
	}
	if cfg.CorpusBackend != "postgres" && cfg.CorpusBackend != "sqlite" {
		return fmt.Errorf("import needs a database backend, got %q", cfg.CorpusBackend)
	}
	logger, _ := setupLogger(os.Stderr, cfg.LogLevel, cfg.LogFile)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a := &app{cfg: cfg, logger: logger}
	defer a.Close()

	source := a.fileSource()
	docs, err := source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source.Name(), err)
	}

	repo, err := a.repository(ctx)
	if err != nil {
		return err
	}
	if importReplace {
		if err := repo.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to clear stored editorials: %w", err)
		}
	}

	n, err := corpus.Import(ctx, repo, docs)
	if err != nil {
		return err
	}
	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}

	logger.Info("imported editorials", "source", source.Name(), "backend", cfg.CorpusBackend, "imported", n, "stored", total)
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d editorials into %s (%d stored)\n", n, cfg.CorpusBackend, total)
	return nil
}
