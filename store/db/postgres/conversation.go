package postgres

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/lamberr/ragline/store"
)

// CreateConversation appends one query/response exchange.
func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `
		INSERT INTO conversation (sender_id, collection_name, query, response, created_ts)
		VALUES (` + placeholders(5) + `)
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		create.SenderID,
		create.CollectionName,
		create.Query,
		create.Response,
		create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}
	return create, nil
}

// ListConversations lists exchanges, newest first.
func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.SenderID != nil {
		where, args = append(where, "sender_id = "+placeholder(len(args)+1)), append(args, *find.SenderID)
	}
	if find.CollectionName != nil {
		where, args = append(where, "collection_name = "+placeholder(len(args)+1)), append(args, *find.CollectionName)
	}

	query := `
		SELECT id, sender_id, collection_name, query, response, created_ts
		FROM conversation
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit != nil {
		args = append(args, *find.Limit)
		query += " LIMIT " + placeholder(len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	defer rows.Close()

	list := []*store.Conversation{}
	for rows.Next() {
		var conversation store.Conversation
		err := rows.Scan(
			&conversation.ID,
			&conversation.SenderID,
			&conversation.CollectionName,
			&conversation.Query,
			&conversation.Response,
			&conversation.CreatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan conversation")
		}
		list = append(list, &conversation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateDocumentUpload records an uploaded document and its chunk ids.
func (d *DB) CreateDocumentUpload(ctx context.Context, create *store.DocumentUpload) (*store.DocumentUpload, error) {
	if create.UploadedTs == 0 {
		create.UploadedTs = time.Now().Unix()
	}

	docIDs, err := json.Marshal(create.DocIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal doc ids")
	}

	stmt := `
		INSERT INTO document_upload (collection_name, filename, doc_ids, uploaded_ts)
		VALUES (` + placeholders(4) + `)
		RETURNING id
	`
	err = d.db.QueryRowContext(ctx, stmt,
		create.CollectionName,
		create.Filename,
		docIDs,
		create.UploadedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document upload")
	}
	return create, nil
}

// ListDocumentUploads lists upload records, newest first.
func (d *DB) ListDocumentUploads(ctx context.Context, find *store.FindDocumentUpload) ([]*store.DocumentUpload, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.CollectionName != nil {
		where, args = append(where, "collection_name = "+placeholder(len(args)+1)), append(args, *find.CollectionName)
	}

	query := `
		SELECT id, collection_name, filename, doc_ids, uploaded_ts
		FROM document_upload
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY uploaded_ts DESC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list document uploads")
	}
	defer rows.Close()

	list := []*store.DocumentUpload{}
	for rows.Next() {
		var upload store.DocumentUpload
		var docIDBytes []byte
		err := rows.Scan(
			&upload.ID,
			&upload.CollectionName,
			&upload.Filename,
			&docIDBytes,
			&upload.UploadedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan document upload")
		}
		if len(docIDBytes) > 0 {
			if err := json.Unmarshal(docIDBytes, &upload.DocIDs); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal doc ids")
			}
		}
		list = append(list, &upload)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// RemoveUploadedDocIDs drops the given ids from every upload record of the
// collection. Returns the number of records touched.
func (d *DB) RemoveUploadedDocIDs(ctx context.Context, collectionName string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	uploads, err := d.ListDocumentUploads(ctx, &store.FindDocumentUpload{CollectionName: &collectionName})
	if err != nil {
		return 0, err
	}

	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}

	stmt := `UPDATE document_upload SET doc_ids = ` + placeholder(1) + ` WHERE id = ` + placeholder(2)

	var modified int64
	for _, upload := range uploads {
		kept := make([]string, 0, len(upload.DocIDs))
		for _, id := range upload.DocIDs {
			if !remove[id] {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(upload.DocIDs) {
			continue
		}
		docIDs, err := json.Marshal(kept)
		if err != nil {
			return modified, errors.Wrap(err, "failed to marshal doc ids")
		}
		if _, err := d.db.ExecContext(ctx, stmt, docIDs, upload.ID); err != nil {
			return modified, errors.Wrap(err, "failed to update document upload")
		}
		modified++
	}
	return modified, nil
}
