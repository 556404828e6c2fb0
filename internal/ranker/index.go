package ranker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/knoguchi/editorialbot/internal/corpus"
	"github.com/knoguchi/editorialbot/internal/vectorstore"
)

// IndexCorpus embeds every document in c and writes the vectors to index,
// replacing whatever the collection held before. Documents are embedded in
// batches of batchSize.
func IndexCorpus(ctx context.Context, embedder Embedder, index vectorstore.Index, c *corpus.Corpus, dimension, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 32
	}
	if err := index.Recreate(ctx, dimension); err != nil {
		return 0, err
	}

	docs := c.Documents()
	indexed := 0
	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Text()
		}
		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return indexed, fmt.Errorf("failed to embed documents %d-%d: %w", start, end-1, err)
		}

		points := make([]vectorstore.Point, len(batch))
		for i, d := range batch {
			points[i] = vectorstore.Point{
				ID:       pointID(d).String(),
				Position: d.Index,
				Vector:   vectors[i],
				Title:    d.Title,
				URL:      d.URL,
			}
		}
		if err := index.Upsert(ctx, points); err != nil {
			return indexed, err
		}
		indexed += len(points)
	}
	return indexed, nil
}

func pointID(d corpus.Document) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(strconv.Itoa(d.Index)+"|"+d.URL))
}
