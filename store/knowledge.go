package store

// Collection is a named knowledge collection holding document chunks.
type Collection struct {
	ID        int32
	Name      string
	CreatedTs int64
}

// Chunk is one embedded document fragment inside a collection.
type Chunk struct {
	ID             string // uuid assigned at upload time
	CollectionName string
	Content        string
	Metadata       map[string]any
	Embedding      []float32
	CreatedTs      int64
}

// ChunkWithScore is a chunk annotated with a similarity score.
type ChunkWithScore struct {
	Chunk *Chunk
	Score float32
}

// VectorSearchOptions controls a similarity search over a collection.
type VectorSearchOptions struct {
	CollectionName string
	Embedding      []float32
	Limit          int
}
