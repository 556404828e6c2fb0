package ranker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/knoguchi/editorialbot/internal/corpus"
	"github.com/knoguchi/editorialbot/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axisEmbedder maps text onto three axes: economy, weather, schools.
type axisEmbedder struct {
	failQuery bool
}

func (e *axisEmbedder) vector(text string) []float32 {
	text = strings.ToLower(text)
	v := []float32{0, 0, 0}
	if strings.Contains(text, "econom") || strings.Contains(text, "budget") {
		v[0] = 1
	}
	if strings.Contains(text, "storm") || strings.Contains(text, "weather") {
		v[1] = 1
	}
	if strings.Contains(text, "school") || strings.Contains(text, "classroom") {
		v[2] = 1
	}
	return v
}

func (e *axisEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.failQuery {
		return nil, errors.New("embedder down")
	}
	return e.vector(text), nil
}

func (e *axisEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func sampleCorpus() *corpus.Corpus {
	return corpus.New([]corpus.Document{
		{Title: "Economy grows", FullText: "The economy grew", URL: "http://x/1"},
		{Title: "Weather", FullText: "Storm approaching coast", URL: "http://x/2"},
		{Title: "Budget talks", FullText: "Congress debates the budget", URL: "http://x/3"},
		{Title: "Schools", FullText: "Classrooms strike", URL: "http://x/4"},
	})
}

func TestKeyword_MatchesRank(t *testing.T) {
	c := sampleCorpus()
	got := Keyword{}.Shortlist(context.Background(), "storm coast", c, 2)
	assert.Equal(t, Rank("storm coast", c.Documents(), 2), got)
	assert.Equal(t, "keyword", Keyword{}.Name())
}

func TestEmbedding_RanksBySimilarityWithStableTies(t *testing.T) {
	ctx := context.Background()
	c := sampleCorpus()
	s, err := NewEmbedding(ctx, &axisEmbedder{}, c, nil)
	require.NoError(t, err)

	got := s.Shortlist(ctx, "what about the economy", c, 3)
	// Both economy documents have identical vectors; corpus order decides.
	assert.Equal(t, []string{"Economy grows", "Budget talks", "Weather"}, titles(got))
}

func TestEmbedding_FallsBackToKeyword(t *testing.T) {
	ctx := context.Background()
	c := sampleCorpus()
	emb := &axisEmbedder{}
	s, err := NewEmbedding(ctx, emb, c, nil)
	require.NoError(t, err)

	emb.failQuery = true
	got := s.Shortlist(ctx, "storm", c, 1)
	assert.Equal(t, []string{"Weather"}, titles(got))
}

func TestEmbedding_EmptyInputs(t *testing.T) {
	ctx := context.Background()
	c := sampleCorpus()
	s, err := NewEmbedding(ctx, &axisEmbedder{}, c, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Economy grows", "Weather"}, titles(s.Shortlist(ctx, "...", c, 2)))
	assert.Empty(t, s.Shortlist(ctx, "economy", c, 0))
	assert.Empty(t, s.Shortlist(ctx, "economy", corpus.New(nil), 3))
}

type fakeIndex struct {
	hits []vectorstore.Hit
	err  error
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, limit int) ([]vectorstore.Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	hits := append([]vectorstore.Hit(nil), f.hits...)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func TestIndexed_ReordersTiesByPosition(t *testing.T) {
	ctx := context.Background()
	c := sampleCorpus()
	idx := &fakeIndex{hits: []vectorstore.Hit{
		{Position: 2, Score: 0.9},
		{Position: 0, Score: 0.9},
		{Position: 3, Score: 0.1},
		{Position: 42, Score: 0.05}, // stale point, not in corpus
	}}
	s := NewIndexed(&axisEmbedder{}, idx, nil)

	got := s.Shortlist(ctx, "economy", c, 4)
	assert.Equal(t, []string{"Economy grows", "Budget talks", "Schools"}, titles(got))
	assert.Equal(t, "qdrant", s.Name())
}

func TestIndexed_TieAtCutoffKeepsCorpusOrder(t *testing.T) {
	ctx := context.Background()
	c := sampleCorpus()
	idx := &fakeIndex{hits: []vectorstore.Hit{
		{Position: 3, Score: 0.5},
		{Position: 2, Score: 0.5},
		{Position: 1, Score: 0.5},
		{Position: 0, Score: 0.5},
	}}
	s := NewIndexed(&axisEmbedder{}, idx, nil)

	got := s.Shortlist(ctx, "economy", c, 1)
	assert.Equal(t, []string{"Economy grows"}, titles(got))
}

func TestIndexed_FallsBackOnSearchError(t *testing.T) {
	ctx := context.Background()
	c := sampleCorpus()
	s := NewIndexed(&axisEmbedder{}, &fakeIndex{err: errors.New("qdrant unavailable")}, nil)

	got := s.Shortlist(ctx, "classrooms", c, 1)
	assert.Equal(t, []string{"Schools"}, titles(got))
}

type recordingIndex struct {
	fakeIndex
	dimension int
	points    []vectorstore.Point
}

func (r *recordingIndex) EnsureCollection(_ context.Context, dimension int) error {
	r.dimension = dimension
	return nil
}

func (r *recordingIndex) Recreate(_ context.Context, dimension int) error {
	r.dimension = dimension
	r.points = nil
	return nil
}

func (r *recordingIndex) Upsert(_ context.Context, points []vectorstore.Point) error {
	r.points = append(r.points, points...)
	return nil
}

func (r *recordingIndex) Count(context.Context) (uint64, error) {
	return uint64(len(r.points)), nil
}

func TestIndexCorpus(t *testing.T) {
	idx := &recordingIndex{}
	n, err := IndexCorpus(context.Background(), &axisEmbedder{}, idx, sampleCorpus(), 3, 3)
	require.NoError(t, err)

	assert.Equal(t, 4, n)
	assert.Equal(t, 3, idx.dimension)
	require.Len(t, idx.points, 4)
	for i, p := range idx.points {
		assert.Equal(t, i, p.Position)
		assert.NotEmpty(t, p.ID)
	}
	assert.NotEqual(t, idx.points[0].ID, idx.points[1].ID)
}
