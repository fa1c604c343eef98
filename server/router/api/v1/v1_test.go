package v1

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lamberr/ragline/internal/profile"
	"github.com/lamberr/ragline/store"
)

// fakeDriver is an in-memory store.Driver for handler tests.
type fakeDriver struct {
	collections       map[string]*store.Collection
	chunks            map[string]*store.Chunk
	uploads           []*store.DocumentUpload
	conversations     []*store.Conversation
	createCollections int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		collections: make(map[string]*store.Collection),
		chunks:      make(map[string]*store.Chunk),
	}
}

func (d *fakeDriver) GetDB() *sql.DB { return nil }
func (d *fakeDriver) Close() error   { return nil }

func (d *fakeDriver) Migrate(_ context.Context) error { return nil }

func (d *fakeDriver) CreateCollection(_ context.Context, name string) (*store.Collection, error) {
	d.createCollections++
	if existing, ok := d.collections[name]; ok {
		return existing, nil
	}
	collection := &store.Collection{ID: int32(len(d.collections) + 1), Name: name}
	d.collections[name] = collection
	return collection, nil
}

func (d *fakeDriver) GetCollection(_ context.Context, name string) (*store.Collection, error) {
	return d.collections[name], nil
}

func (d *fakeDriver) UpsertChunks(_ context.Context, chunks []*store.Chunk) error {
	for _, chunk := range chunks {
		d.chunks[chunk.ID] = chunk
	}
	return nil
}

func (d *fakeDriver) DeleteChunks(_ context.Context, collectionName string, ids []string) (int64, error) {
	var deleted int64
	for _, id := range ids {
		chunk, ok := d.chunks[id]
		if !ok || chunk.CollectionName != collectionName {
			continue
		}
		delete(d.chunks, id)
		deleted++
	}
	return deleted, nil
}

func (d *fakeDriver) SearchChunksByVector(_ context.Context, _ *store.VectorSearchOptions) ([]*store.ChunkWithScore, error) {
	return nil, nil
}

func (d *fakeDriver) CreateConversation(_ context.Context, create *store.Conversation) (*store.Conversation, error) {
	d.conversations = append(d.conversations, create)
	return create, nil
}

func (d *fakeDriver) ListConversations(_ context.Context, _ *store.FindConversation) ([]*store.Conversation, error) {
	return d.conversations, nil
}

func (d *fakeDriver) CreateDocumentUpload(_ context.Context, create *store.DocumentUpload) (*store.DocumentUpload, error) {
	d.uploads = append(d.uploads, create)
	return create, nil
}

func (d *fakeDriver) ListDocumentUploads(_ context.Context, _ *store.FindDocumentUpload) ([]*store.DocumentUpload, error) {
	return d.uploads, nil
}

func (d *fakeDriver) RemoveUploadedDocIDs(_ context.Context, collectionName string, ids []string) (int64, error) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var modified int64
	for _, upload := range d.uploads {
		if upload.CollectionName != collectionName {
			continue
		}
		var kept []string
		for _, id := range upload.DocIDs {
			if !drop[id] {
				kept = append(kept, id)
			}
		}
		if len(kept) != len(upload.DocIDs) {
			upload.DocIDs = kept
			modified++
		}
	}
	return modified, nil
}

var _ store.Driver = (*fakeDriver)(nil)

func testProfile(t *testing.T) *profile.Profile {
	return &profile.Profile{
		Mode:      "dev",
		Port:      8000,
		DSN:       "test",
		UploadDir: t.TempDir(),
	}
}
