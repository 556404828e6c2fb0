package ranker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/knoguchi/editorialbot/internal/corpus"
	"github.com/knoguchi/editorialbot/internal/vectorstore"
)

// Strategy produces a shortlist for a question. Implementations honour the
// same contract as Rank: at most topK documents, best first, ties in corpus
// order, and no error return. Strategies that depend on remote services fall
// back to keyword ranking when those services fail.
type Strategy interface {
	Shortlist(ctx context.Context, query string, c *corpus.Corpus, topK int) []corpus.Document
	Name() string
}

// Keyword ranks by bag-of-words overlap.
type Keyword struct{}

// Name implements Strategy.
func (Keyword) Name() string { return "keyword" }

// Shortlist implements Strategy.
func (Keyword) Shortlist(_ context.Context, query string, c *corpus.Corpus, topK int) []corpus.Document {
	return Rank(query, c.Documents(), topK)
}

// Embedder turns text into dense vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedding ranks by cosine similarity between the query embedding and
// document embeddings computed once when the strategy is built.
type Embedding struct {
	embedder Embedder
	vectors  [][]float32 // indexed by corpus position
	logger   *slog.Logger
}

// NewEmbedding embeds every document in c. The resulting strategy must only
// be used with the same corpus.
func NewEmbedding(ctx context.Context, embedder Embedder, c *corpus.Corpus, logger *slog.Logger) (*Embedding, error) {
	if logger == nil {
		logger = slog.Default()
	}
	docs := c.Documents()
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text()
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed corpus: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	return &Embedding{embedder: embedder, vectors: vectors, logger: logger}, nil
}

// Name implements Strategy.
func (e *Embedding) Name() string { return "embedding" }

// Shortlist implements Strategy.
func (e *Embedding) Shortlist(ctx context.Context, query string, c *corpus.Corpus, topK int) []corpus.Document {
	docs := c.Documents()
	if topK <= 0 || len(docs) == 0 {
		return []corpus.Document{}
	}
	if len(e.vectors) != len(docs) {
		e.logger.Warn("embedding index does not match corpus, using keyword ranking",
			"vectors", len(e.vectors), "documents", len(docs))
		return Rank(query, docs, topK)
	}
	if len(Tokenize(query)) == 0 {
		return Rank(query, docs, topK)
	}

	qv, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("query embedding failed, using keyword ranking", "error", err)
		return Rank(query, docs, topK)
	}

	scores := make([]float64, len(docs))
	for i := range docs {
		scores[i] = cosine(qv, e.vectors[i])
	}
	return topByScore(docs, scores, topK)
}

// VectorIndex is a nearest-neighbour index over document embeddings.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, limit int) ([]vectorstore.Hit, error)
}

// Indexed ranks with an external vector index such as Qdrant.
type Indexed struct {
	embedder Embedder
	index    VectorIndex
	logger   *slog.Logger
}

// NewIndexed creates an index-backed strategy.
func NewIndexed(embedder Embedder, index VectorIndex, logger *slog.Logger) *Indexed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexed{embedder: embedder, index: index, logger: logger}
}

// Name implements Strategy.
func (x *Indexed) Name() string { return "qdrant" }

// Shortlist implements Strategy.
func (x *Indexed) Shortlist(ctx context.Context, query string, c *corpus.Corpus, topK int) []corpus.Document {
	docs := c.Documents()
	if topK <= 0 || len(docs) == 0 {
		return []corpus.Document{}
	}
	if len(Tokenize(query)) == 0 {
		return Rank(query, docs, topK)
	}

	qv, err := x.embedder.Embed(ctx, query)
	if err != nil {
		x.logger.Warn("query embedding failed, using keyword ranking", "error", err)
		return Rank(query, docs, topK)
	}

	// Fetch every point so that ties at the cutoff resolve by corpus
	// position rather than by the index's own order.
	hits, err := x.index.Search(ctx, qv, len(docs))
	if err != nil {
		x.logger.Warn("vector search failed, using keyword ranking", "error", err)
		return Rank(query, docs, topK)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})

	shortlist := make([]corpus.Document, 0, topK)
	seen := make(map[int]bool, len(hits))
	for _, h := range hits {
		doc, ok := c.At(h.Position)
		if !ok || seen[h.Position] {
			continue
		}
		seen[h.Position] = true
		shortlist = append(shortlist, doc)
		if len(shortlist) == topK {
			break
		}
	}
	return shortlist
}

// topByScore orders docs by score descending, corpus order ascending.
func topByScore(docs []corpus.Document, scores []float64, topK int) []corpus.Document {
	order := make([]int, len(docs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if len(order) > topK {
		order = order[:topK]
	}
	out := make([]corpus.Document, len(order))
	for i, idx := range order {
		out[i] = docs[idx]
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
