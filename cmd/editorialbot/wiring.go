package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/knoguchi/editorialbot/internal/config"
	"github.com/knoguchi/editorialbot/internal/corpus"
	"github.com/knoguchi/editorialbot/internal/embedder"
	"github.com/knoguchi/editorialbot/internal/llm"
	"github.com/knoguchi/editorialbot/internal/ranker"
	"github.com/knoguchi/editorialbot/internal/repository"
	"github.com/knoguchi/editorialbot/internal/repository/postgres"
	"github.com/knoguchi/editorialbot/internal/repository/sqlite"
	"github.com/knoguchi/editorialbot/internal/service"
	"github.com/knoguchi/editorialbot/internal/vectorstore"
)

// app holds the components built from the configuration and the functions
// that release them.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	corpus  *corpus.Cache
	qa      *service.QAService
	closers []func()
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newApp wires config into a ready QAService. The corpus is loaded lazily
// unless a ranker needs it up front. Without answering no completer is built
// and the service can only retrieve.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, answering bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	source, err := a.corpusSource(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.corpus = corpus.NewCache(source, logger)

	strategy, err := a.strategy(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var completer llm.Completer
	model := ""
	if answering {
		completer, err = a.completer(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		model = completer.Model()
	}

	a.qa = service.NewQAService(a.corpus, strategy, completer,
		service.WithTopK(cfg.TopK),
		service.WithGenerateOptions(llm.Options{
			MaxTokens:   cfg.MaxTokens,
			Temperature: llm.Temperature(cfg.Temperature),
		}),
		service.WithLogger(logger),
	)

	logger.Info("initialized question answering",
		"corpus_backend", cfg.CorpusBackend,
		"ranker", strategy.Name(),
		"llm_provider", cfg.LLMProvider,
		"model", model,
		"top_k", cfg.TopK,
	)
	return a, nil
}

// corpusSource picks where editorials are read from.
func (a *app) corpusSource(ctx context.Context) (corpus.Source, error) {
	switch a.cfg.CorpusBackend {
	case "postgres", "sqlite":
		repo, err := a.repository(ctx)
		if err != nil {
			return nil, err
		}
		return corpus.RepositorySource{Repo: repo, Label: a.cfg.CorpusBackend}, nil
	default:
		if a.cfg.CorpusURL != "" {
			return corpus.NewHTTPSource(a.cfg.CorpusURL), nil
		}
		return corpus.FileSource{Path: a.cfg.CorpusPath}, nil
	}
}

// fileSource ignores the configured backend and reads the JSON corpus.
func (a *app) fileSource() corpus.Source {
	if a.cfg.CorpusURL != "" {
		return corpus.NewHTTPSource(a.cfg.CorpusURL)
	}
	return corpus.FileSource{Path: a.cfg.CorpusPath}
}

// repository opens the configured editorial store.
func (a *app) repository(ctx context.Context) (repository.EditorialRepository, error) {
	switch a.cfg.CorpusBackend {
	case "postgres":
		db, err := postgres.New(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.onClose(db.Close)
		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		a.logger.Info("connected to PostgreSQL")
		return postgres.NewEditorialRepo(db), nil
	case "sqlite":
		repo, err := sqlite.Open(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = repo.Close() })
		a.logger.Info("opened SQLite database", "path", a.cfg.SQLitePath)
		return repo, nil
	default:
		return nil, fmt.Errorf("corpus backend %q has no repository", a.cfg.CorpusBackend)
	}
}

// embedder returns the Ollama embedder behind a query cache.
func (a *app) embedder() *embedder.Cached {
	inner := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL: a.cfg.OllamaURL,
		Model:   a.cfg.OllamaEmbeddingModel,
	})
	a.logger.Info("initialized Ollama embedder", "model", a.cfg.OllamaEmbeddingModel)
	return embedder.NewCached(inner, a.cfg.EmbedCacheBytes, a.logger)
}

// vectorStore connects to the Qdrant collection.
func (a *app) vectorStore() (*vectorstore.QdrantStore, error) {
	store, err := vectorstore.NewQdrantStore(a.cfg.QdrantGRPCURL, a.cfg.QdrantCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	a.onClose(func() { _ = store.Close() })
	return store, nil
}

func (a *app) strategy(ctx context.Context) (ranker.Strategy, error) {
	switch a.cfg.Ranker {
	case "embedding":
		c, err := a.corpus.Get(ctx)
		if err != nil {
			return nil, err
		}
		strategy, err := ranker.NewEmbedding(ctx, a.embedder(), c, a.logger)
		if err != nil {
			return nil, err
		}
		return strategy, nil
	case "qdrant":
		store, err := a.vectorStore()
		if err != nil {
			return nil, err
		}
		return ranker.NewIndexed(a.embedder(), store, a.logger), nil
	default:
		return ranker.Keyword{}, nil
	}
}

func (a *app) completer(ctx context.Context) (llm.Completer, error) {
	switch a.cfg.LLMProvider {
	case "ollama":
		return llm.NewOllamaClient(
			llm.WithBaseURL(a.cfg.OllamaURL),
			llm.WithModel(a.cfg.OllamaLLMModel),
		), nil
	case "gemini":
		client, err := llm.NewGeminiClient(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = client.Close() })
		return client, nil
	default:
		if a.cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return llm.NewAnthropicClient(a.cfg.AnthropicAPIKey,
			llm.WithAnthropicBaseURL(a.cfg.AnthropicURL),
			llm.WithAnthropicModel(a.cfg.AnthropicModel),
		), nil
	}
}

// Compile-time interface checks.
var (
	_ repository.EditorialRepository = (*postgres.EditorialRepo)(nil)
	_ repository.EditorialRepository = (*sqlite.EditorialRepo)(nil)
	_ vectorstore.Index              = (*vectorstore.QdrantStore)(nil)
	_ ranker.Embedder                = (*embedder.Cached)(nil)
	_ llm.Completer                  = (*llm.AnthropicClient)(nil)
	_ llm.Completer                  = (*llm.OllamaClient)(nil)
	_ llm.Completer                  = (*llm.GeminiClient)(nil)
	_ service.CorpusProvider         = (*corpus.Cache)(nil)
)
