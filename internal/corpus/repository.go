package corpus

import (
	"context"
	"fmt"

	"github.com/knoguchi/editorialbot/internal/repository"
)

// RepositorySource loads the corpus from an editorial repository.
type RepositorySource struct {
	Repo  repository.EditorialRepository
	Label string
}

// Name implements Source.
func (s RepositorySource) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "repository"
}

// Load implements Source.
func (s RepositorySource) Load(ctx context.Context) ([]Document, error) {
	rows, err := s.Repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, len(rows))
	for i, row := range rows {
		docs[i] = Document{Title: row.Title, FullText: row.FullText, URL: row.URL}
	}
	return docs, nil
}

// Import stores docs in repo, preserving their order as the stored position.
func Import(ctx context.Context, repo repository.EditorialRepository, docs []Document) (int, error) {
	rows := make([]*repository.Editorial, len(docs))
	for i, d := range docs {
		key := d.URL
		if key == "" {
			// Editorials without a URL are keyed by title.
			key = "title:" + d.Title
		}
		rows[i] = &repository.Editorial{
			ID:       repository.EditorialID(key),
			Position: i,
			Title:    d.Title,
			FullText: d.FullText,
			URL:      d.URL,
		}
	}
	if err := repo.Upsert(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to import corpus: %w", err)
	}
	return len(rows), nil
}
