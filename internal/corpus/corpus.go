// Package corpus holds the in-memory editorial collection that questions are answered against.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Document is a single editorial. Index is its position in the corpus and is
// assigned when the corpus is built.
type Document struct {
	Index    int    `json:"-"`
	Title    string `json:"title"`
	FullText string `json:"full_text"`
	URL      string `json:"url"`
}

// Text returns the text used for ranking: title and body joined by a space.
func (d Document) Text() string {
	return d.Title + " " + d.FullText
}

// Corpus is an immutable, ordered set of documents.
type Corpus struct {
	docs []Document
}

// New builds a corpus from records, assigning indexes in input order.
func New(records []Document) *Corpus {
	docs := make([]Document, len(records))
	for i, r := range records {
		r.Index = i
		docs[i] = r
	}
	return &Corpus{docs: docs}
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.docs)
}

// Documents returns a copy of the documents in corpus order.
func (c *Corpus) Documents() []Document {
	if c == nil {
		return []Document{}
	}
	out := make([]Document, len(c.docs))
	copy(out, c.docs)
	return out
}

// At returns the document at index i.
func (c *Corpus) At(i int) (Document, bool) {
	if c == nil || i < 0 || i >= len(c.docs) {
		return Document{}, false
	}
	return c.docs[i], true
}

// Source supplies editorial records.
type Source interface {
	Load(ctx context.Context) ([]Document, error)
	Name() string
}

// Cache loads a corpus from a source on first use and holds it for the
// lifetime of the process.
type Cache struct {
	source Source
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
	corpus *Corpus
	err    error
}

// NewCache creates a read-through cache over source.
func NewCache(source Source, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{source: source, logger: logger}
}

// Get returns the cached corpus, loading it on the first call. A failed load
// is remembered and returned on every later call, except when it failed
// because ctx was cancelled or timed out; the next Get then tries again.
func (c *Cache) Get(ctx context.Context) (*Corpus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.corpus, c.err
	}

	records, err := c.source.Load(ctx)
	if err != nil {
		err = fmt.Errorf("failed to load corpus from %s: %w", c.source.Name(), err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		c.loaded, c.err = true, err
		return nil, err
	}

	c.loaded = true
	c.corpus = New(records)
	c.logger.Info("loaded editorial corpus",
		"source", c.source.Name(),
		"documents", c.corpus.Len(),
	)
	return c.corpus, nil
}
