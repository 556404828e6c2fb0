package embedder

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"

	"github.com/coocood/freecache"
)

// DefaultCacheBytes is the default size of the embedding cache.
const DefaultCacheBytes = 16 * 1024 * 1024

// Cached wraps an Embedder with an in-memory LRU of single-text embeddings.
// Repeated questions skip the round trip to the embedding model.
type Cached struct {
	Embedder
	cache  *freecache.Cache
	logger *slog.Logger
}

// NewCached wraps inner with a cache of the given size in bytes.
func NewCached(inner Embedder, sizeBytes int, logger *slog.Logger) *Cached {
	if sizeBytes <= 0 {
		sizeBytes = DefaultCacheBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		Embedder: inner,
		cache:    freecache.NewCache(sizeBytes),
		logger:   logger,
	}
}

// Embed returns the cached vector for text or computes and stores it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := []byte(c.ModelName() + "\x00" + text)
	if data, err := c.cache.Get(key); err == nil {
		return decodeVector(data), nil
	}

	vec, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(key, encodeVector(vec), 0); err != nil {
		c.logger.Debug("embedding not cached", "error", err)
	}
	return vec, nil
}

// HitRate reports the fraction of lookups served from the cache.
func (c *Cached) HitRate() float64 {
	return c.cache.HitRate()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}

var _ Embedder = (*Cached)(nil)
