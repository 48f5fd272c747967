// Package knowledge loads the registry knowledge base, splits it into
// overlapping chunks, and serves semantic retrieval over an in-memory
// vector index.
//
// The index is built once per process, lazily, behind a sync.Once: every
// caller shares the same build and a build failure is memoized as fatal.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("registrybot.knowledge")

var (
	// ErrInvalidConfig indicates invalid index configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyQuery indicates an empty retrieval query.
	ErrEmptyQuery = errors.New("query cannot be empty")
)

const collectionName = "registry_knowledge"

// seqKey is the metadata key carrying a chunk's position in the corpus.
const seqKey = "seq"

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunk is a retrieved slice of the knowledge corpus.
type Chunk struct {
	// Text is the chunk content.
	Text string
	// Seq is the chunk's position in the source corpus.
	Seq int
	// Score is the similarity to the query (higher = more similar).
	Score float32
}

// Config holds configuration for the knowledge service.
type Config struct {
	// CorpusPath is the knowledge base .txt file.
	CorpusPath string
	// ChunkSize is the target chunk length in characters.
	ChunkSize int
	// ChunkOverlap is the overlap between adjacent chunks.
	ChunkOverlap int
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.CorpusPath == "" {
		return fmt.Errorf("%w: corpus path required", ErrInvalidConfig)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidConfig)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be non-negative and smaller than chunk size", ErrInvalidConfig)
	}
	return nil
}

// Service builds and queries the knowledge index.
type Service struct {
	config   Config
	embedder Embedder
	logger   *zap.Logger

	once       sync.Once
	collection *chromem.Collection
	buildErr   error
}

// NewService creates a knowledge service. The index is not built until
// the first call to Warm or Query.
func NewService(config Config, embedder Embedder, logger *zap.Logger) (*Service, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &Service{
		config:   config,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// Warm builds the index if it has not been built yet. Concurrent callers
// share a single build.
func (s *Service) Warm(ctx context.Context) error {
	s.once.Do(func() {
		s.collection, s.buildErr = s.build(ctx)
	})
	return s.buildErr
}

// build loads, chunks, embeds, and indexes the corpus.
func (s *Service) build(ctx context.Context) (*chromem.Collection, error) {
	ctx, span := tracer.Start(ctx, "knowledge.build")
	defer span.End()

	start := time.Now()

	corpus, err := LoadCorpus(s.config.CorpusPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	chunks, err := SplitCorpus(corpus, s.config.ChunkSize, s.config.ChunkOverlap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	embeddings, err := s.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embedding corpus chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("chunk_%04d", i),
			Content:   chunk,
			Metadata:  map[string]string{seqKey: strconv.Itoa(i)},
			Embedding: embeddings[i],
		}
	}
	// Concurrency of 1: embeddings are already attached.
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("adding documents: %w", err)
	}

	span.SetAttributes(attribute.Int("chunks", len(chunks)))
	span.SetStatus(codes.Ok, "success")

	indexBuildDuration.Observe(time.Since(start).Seconds())
	indexChunks.Set(float64(len(chunks)))

	s.logger.Info("knowledge index built",
		zap.String("corpus", s.config.CorpusPath),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))

	return collection, nil
}

// embeddingFunc adapts the Embedder for chromem query embedding.
func (s *Service) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// Query returns the k chunks most similar to the query, ordered by
// descending similarity with ties broken by corpus order.
func (s *Service) Query(ctx context.Context, query string, k int) ([]Chunk, error) {
	ctx, span := tracer.Start(ctx, "knowledge.query")
	defer span.End()

	span.SetAttributes(attribute.Int("k", k))

	if query == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, k)
	}

	if err := s.Warm(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		queryTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	// chromem rejects result counts above the collection size.
	if count := s.collection.Count(); k > count {
		k = count
	}

	start := time.Now()
	results, err := s.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		queryTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("querying index: %w", err)
	}
	queryDuration.Observe(time.Since(start).Seconds())
	queryTotal.WithLabelValues("success").Inc()

	chunks := make([]Chunk, 0, len(results))
	for _, r := range results {
		seq, _ := strconv.Atoi(r.Metadata[seqKey])
		chunks = append(chunks, Chunk{
			Text:  r.Content,
			Seq:   seq,
			Score: r.Similarity,
		})
	}

	// chromem orders by similarity but leaves equal scores unordered;
	// pin ties to corpus order so retrieval stays deterministic.
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].Seq < chunks[j].Seq
	})

	span.SetAttributes(attribute.Int("results", len(chunks)))
	span.SetStatus(codes.Ok, "success")

	return chunks, nil
}
