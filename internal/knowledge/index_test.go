package knowledge

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vocabEmbedder is a deterministic Embedder for tests: each dimension
// counts occurrences of a vocabulary word, normalized to unit length.
type vocabEmbedder struct {
	vocab     []string
	docCalls  int
	queryCall int
	mu        sync.Mutex
}

func newVocabEmbedder() *vocabEmbedder {
	return &vocabEmbedder{
		vocab: []string{"helpline", "register", "deadline", "documents", "income"},
	}
}

func (e *vocabEmbedder) embed(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.vocab)+1)
	vec[len(e.vocab)] = 0.1 // avoid zero vectors
	for i, word := range e.vocab {
		vec[i] = float32(strings.Count(lower, word))
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func (e *vocabEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.docCalls++
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *vocabEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.queryCall++
	e.mu.Unlock()
	return e.embed(text), nil
}

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry_info.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const testCorpus = `The registry helpline is available at 0800-02345 during office hours.

To register, visit the nearest registration center with your family members.

The registration deadline is the end of April. Late submissions are not accepted.

Required documents include the national identity card of the head of household.`

func newTestService(t *testing.T, corpus string) (*Service, *vocabEmbedder) {
	t.Helper()
	embedder := newVocabEmbedder()
	svc, err := NewService(Config{
		CorpusPath:   writeCorpus(t, corpus),
		ChunkSize:    120,
		ChunkOverlap: 20,
	}, embedder, nil)
	require.NoError(t, err)
	return svc, embedder
}

func TestLoadCorpusErrors(t *testing.T) {
	_, err := LoadCorpus(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, ErrCorpusNotFound)

	_, err = LoadCorpus("corpus.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSplitCorpusOverlap(t *testing.T) {
	chunks, err := SplitCorpus(testCorpus, 120, 20)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c))
	}

	_, err = SplitCorpus("   \n\n  ", 120, 20)
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestQueryRetrievesHelplineChunk(t *testing.T) {
	svc, _ := newTestService(t, testCorpus)

	chunks, err := svc.Query(context.Background(), "What is the helpline number?", 2)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Contains(t, chunks[0].Text, "0800-02345")
}

func TestQueryIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, testCorpus)
	ctx := context.Background()

	first, err := svc.Query(ctx, "registration deadline", 3)
	require.NoError(t, err)

	second, err := svc.Query(ctx, "registration deadline", 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestQueryBuildsIndexOnce(t *testing.T) {
	svc, embedder := newTestService(t, testCorpus)
	ctx := context.Background()

	_, err := svc.Query(ctx, "documents", 1)
	require.NoError(t, err)
	_, err = svc.Query(ctx, "register", 1)
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.docCalls)
}

func TestQueryClampsK(t *testing.T) {
	svc, _ := newTestService(t, "Only one short paragraph about the helpline.")

	chunks, err := svc.Query(context.Background(), "helpline", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
}

func TestQueryEmptyQuery(t *testing.T) {
	svc, _ := newTestService(t, testCorpus)

	_, err := svc.Query(context.Background(), "", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestWarmFailsOnMissingCorpus(t *testing.T) {
	embedder := newVocabEmbedder()
	svc, err := NewService(Config{
		CorpusPath:   filepath.Join(t.TempDir(), "missing.txt"),
		ChunkSize:    120,
		ChunkOverlap: 20,
	}, embedder, nil)
	require.NoError(t, err)

	err = svc.Warm(context.Background())
	assert.ErrorIs(t, err, ErrCorpusNotFound)

	// Build failure is memoized: queries keep failing fast.
	_, err = svc.Query(context.Background(), "helpline", 3)
	assert.ErrorIs(t, err, ErrCorpusNotFound)
}
