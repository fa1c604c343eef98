package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/lamberr/ragline/store"
)

// CreateCollection inserts a collection, ignoring duplicates.
// The second creation of the same name is a no-op and returns the
// existing row.
func (d *DB) CreateCollection(ctx context.Context, name string) (*store.Collection, error) {
	stmt := `
		INSERT INTO kb_collection (name, created_ts)
		VALUES (` + placeholders(2) + `)
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := d.db.ExecContext(ctx, stmt, name, time.Now().Unix()); err != nil {
		return nil, errors.Wrap(err, "failed to create collection")
	}
	return d.GetCollection(ctx, name)
}

// GetCollection returns the collection or nil when it does not exist.
func (d *DB) GetCollection(ctx context.Context, name string) (*store.Collection, error) {
	query := `SELECT id, name, created_ts FROM kb_collection WHERE name = ` + placeholder(1)

	var collection store.Collection
	err := d.db.QueryRowContext(ctx, query, name).Scan(
		&collection.ID,
		&collection.Name,
		&collection.CreatedTs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get collection")
	}
	return &collection, nil
}

// UpsertChunks inserts or replaces embedded chunks inside one transaction.
func (d *DB) UpsertChunks(ctx context.Context, chunks []*store.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt := `
		INSERT INTO kb_chunk (id, collection_name, content, metadata, embedding, created_ts)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (id)
		DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding
	`

	now := time.Now().Unix()
	for _, chunk := range chunks {
		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return errors.Wrap(err, "failed to marshal chunk metadata")
		}
		if chunk.CreatedTs == 0 {
			chunk.CreatedTs = now
		}
		_, err = tx.ExecContext(ctx, stmt,
			chunk.ID,
			chunk.CollectionName,
			chunk.Content,
			metadata,
			pgvector.NewVector(chunk.Embedding),
			chunk.CreatedTs,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to upsert chunk %s", chunk.ID)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit chunk upsert")
}

// DeleteChunks removes chunks by id within a collection.
func (d *DB) DeleteChunks(ctx context.Context, collectionName string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	stmt := `
		DELETE FROM kb_chunk
		WHERE collection_name = ` + placeholder(1) + `
			AND id = ANY(` + placeholder(2) + `)
	`
	result, err := d.db.ExecContext(ctx, stmt, collectionName, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete chunks")
	}
	return result.RowsAffected()
}

// SearchChunksByVector performs cosine similarity search using pgvector.
// The <=> operator computes cosine distance, so score = 1 - distance and
// ordering by distance ASC yields the most similar chunks first.
func (d *DB) SearchChunksByVector(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.ChunkWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 4
	}

	query := `
		SELECT
			id, collection_name, content, metadata, created_ts,
			1 - (embedding <=> ` + placeholder(1) + `) AS score
		FROM kb_chunk
		WHERE collection_name = ` + placeholder(2) + `
		ORDER BY embedding <=> ` + placeholder(3) + `
		LIMIT ` + placeholder(4)

	vector := pgvector.NewVector(opts.Embedding)
	rows, err := d.db.QueryContext(ctx, query, vector, opts.CollectionName, vector, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.ChunkWithScore{}
	for rows.Next() {
		var chunk store.Chunk
		var metadataBytes []byte
		var score float32

		err := rows.Scan(
			&chunk.ID,
			&chunk.CollectionName,
			&chunk.Content,
			&metadataBytes,
			&chunk.CreatedTs,
			&score,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan chunk")
		}
		if len(metadataBytes) > 0 {
			if err := json.Unmarshal(metadataBytes, &chunk.Metadata); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal chunk metadata")
			}
		}
		results = append(results, &store.ChunkWithScore{Chunk: &chunk, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
