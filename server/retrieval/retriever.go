// Package retrieval translates free-text queries into ranked context
// chunks via the embedding service and the vector store.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lamberr/ragline/plugin/ai"
	"github.com/lamberr/ragline/store"
)

// DefaultTopK is the number of chunks returned when the caller does not
// ask for a specific amount.
const DefaultTopK = 4

// Error marks a retrieval failure: the collection does not exist or the
// embedding/search call failed. It is propagated to the caller rather
// than swallowed; the agent decides whether to answer without context.
type Error struct {
	Collection string
	Op         string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("retrieval %s failed for collection %q: %v", e.Op, e.Collection, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Chunk is one retrieved context fragment, ranked by descending score.
type Chunk struct {
	Text     string
	Score    float32
	Metadata map[string]any
}

// Searcher is the minimal store capability the retriever needs.
type Searcher interface {
	GetCollection(ctx context.Context, name string) (*store.Collection, error)
	SearchChunksByVector(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.ChunkWithScore, error)
}

// Retriever embeds queries and searches collections. No caching happens
// at this layer: collections can be mutated between calls by independent
// uploads, so every call re-embeds and re-searches.
type Retriever struct {
	searcher  Searcher
	embedding ai.EmbeddingService
	timeout   time.Duration
}

// NewRetriever creates a retriever over the given store and embedding
// service.
func NewRetriever(searcher Searcher, embedding ai.EmbeddingService) (*Retriever, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher cannot be nil")
	}
	if embedding == nil {
		return nil, fmt.Errorf("embedding service cannot be nil")
	}
	return &Retriever{
		searcher:  searcher,
		embedding: embedding,
		timeout:   15 * time.Second,
	}, nil
}

// Search returns the top-k chunks of the collection ranked by cosine
// similarity to the query.
func (r *Retriever) Search(ctx context.Context, collection, query string, k int) ([]Chunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	found, err := r.searcher.GetCollection(ctx, collection)
	if err != nil {
		return nil, &Error{Collection: collection, Op: "lookup", Err: err}
	}
	if found == nil {
		return nil, &Error{Collection: collection, Op: "lookup", Err: fmt.Errorf("collection does not exist")}
	}

	vector, err := r.embedding.Embed(ctx, query)
	if err != nil {
		return nil, &Error{Collection: collection, Op: "embed", Err: err}
	}

	results, err := r.searcher.SearchChunksByVector(ctx, &store.VectorSearchOptions{
		CollectionName: collection,
		Embedding:      vector,
		Limit:          k,
	})
	if err != nil {
		return nil, &Error{Collection: collection, Op: "search", Err: err}
	}

	chunks := make([]Chunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, Chunk{
			Text:     result.Chunk.Content,
			Score:    result.Score,
			Metadata: result.Chunk.Metadata,
		})
	}

	slog.Debug("retrieval completed",
		"collection", collection,
		"k", k,
		"results", len(chunks))

	return chunks, nil
}
