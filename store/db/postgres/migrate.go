package postgres

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Migrate bootstraps the schema. Statements are idempotent so the server
// can run this unconditionally at startup.
func (d *DB) Migrate(ctx context.Context) error {
	dim := d.profile.EmbeddingDimensions

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS kb_collection (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_ts BIGINT NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS kb_chunk (
			id UUID PRIMARY KEY,
			collection_name TEXT NOT NULL REFERENCES kb_collection (name) ON DELETE CASCADE,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d) NOT NULL,
			created_ts BIGINT NOT NULL
		)`, dim),
		`CREATE INDEX IF NOT EXISTS idx_kb_chunk_collection ON kb_chunk (collection_name)`,
		`CREATE TABLE IF NOT EXISTS conversation (
			id SERIAL PRIMARY KEY,
			sender_id TEXT NOT NULL,
			collection_name TEXT NOT NULL,
			query TEXT NOT NULL,
			response TEXT NOT NULL,
			created_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_sender ON conversation (sender_id, collection_name)`,
		`CREATE TABLE IF NOT EXISTS document_upload (
			id SERIAL PRIMARY KEY,
			collection_name TEXT NOT NULL,
			filename TEXT NOT NULL,
			doc_ids JSONB NOT NULL DEFAULT '[]',
			uploaded_ts BIGINT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migration statement failed: %.60s", stmt)
		}
	}
	return nil
}
