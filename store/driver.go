package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	// Collection model related methods.
	CreateCollection(ctx context.Context, name string) (*Collection, error)
	GetCollection(ctx context.Context, name string) (*Collection, error)

	// Chunk model related methods.
	UpsertChunks(ctx context.Context, chunks []*Chunk) error
	DeleteChunks(ctx context.Context, collectionName string, ids []string) (int64, error)

	// SearchChunksByVector performs cosine similarity search over a collection.
	SearchChunksByVector(ctx context.Context, opts *VectorSearchOptions) ([]*ChunkWithScore, error)

	// Conversation model related methods.
	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)

	// DocumentUpload model related methods.
	CreateDocumentUpload(ctx context.Context, create *DocumentUpload) (*DocumentUpload, error)
	ListDocumentUploads(ctx context.Context, find *FindDocumentUpload) ([]*DocumentUpload, error)
	RemoveUploadedDocIDs(ctx context.Context, collectionName string, ids []string) (int64, error)
}
