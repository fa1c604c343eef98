package store

import (
	"context"

	"github.com/lamberr/ragline/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Ping verifies the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.GetDB().PingContext(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) CreateCollection(ctx context.Context, name string) (*Collection, error) {
	return s.driver.CreateCollection(ctx, name)
}

func (s *Store) GetCollection(ctx context.Context, name string) (*Collection, error) {
	return s.driver.GetCollection(ctx, name)
}

func (s *Store) UpsertChunks(ctx context.Context, chunks []*Chunk) error {
	return s.driver.UpsertChunks(ctx, chunks)
}

func (s *Store) DeleteChunks(ctx context.Context, collectionName string, ids []string) (int64, error) {
	return s.driver.DeleteChunks(ctx, collectionName, ids)
}

func (s *Store) SearchChunksByVector(ctx context.Context, opts *VectorSearchOptions) ([]*ChunkWithScore, error) {
	return s.driver.SearchChunksByVector(ctx, opts)
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

func (s *Store) CreateDocumentUpload(ctx context.Context, create *DocumentUpload) (*DocumentUpload, error) {
	return s.driver.CreateDocumentUpload(ctx, create)
}

func (s *Store) ListDocumentUploads(ctx context.Context, find *FindDocumentUpload) ([]*DocumentUpload, error) {
	return s.driver.ListDocumentUploads(ctx, find)
}

func (s *Store) RemoveUploadedDocIDs(ctx context.Context, collectionName string, ids []string) (int64, error) {
	return s.driver.RemoveUploadedDocIDs(ctx, collectionName, ids)
}
