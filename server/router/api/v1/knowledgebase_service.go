package v1

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lamberr/ragline/plugin/chunk"
	"github.com/lamberr/ragline/store"
)

type createCollectionResponse struct {
	Message string `json:"message"`
}

type uploadDocsResponse struct {
	Message string   `json:"message"`
	DocIDs  []string `json:"doc_ids"`
}

type deleteDocsRequest struct {
	IDs []string `json:"ids"`
}

type deleteDocsResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}

// createCollection creates a named collection. Creating one that already
// exists is a success, not a conflict.
func (s *APIV1Service) createCollection(c echo.Context) error {
	ctx := c.Request().Context()
	name := strings.TrimSpace(c.QueryParam("collection_name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "collection_name is required"})
	}

	existing, err := s.Store.GetCollection(ctx, name)
	if err != nil {
		slog.Error("failed to look up collection", "collection", name, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to create collection"})
	}
	if existing != nil {
		return c.JSON(http.StatusOK, createCollectionResponse{
			Message: fmt.Sprintf("collection %q already exists", name),
		})
	}

	if _, err := s.Store.CreateCollection(ctx, name); err != nil {
		slog.Error("failed to create collection", "collection", name, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to create collection"})
	}
	return c.JSON(http.StatusOK, createCollectionResponse{
		Message: fmt.Sprintf("collection %q created", name),
	})
}

// uploadDocs ingests one file into a collection: spool to disk, extract
// text, split, embed, upsert. The spool file is removed on every path.
func (s *APIV1Service) uploadDocs(c echo.Context) error {
	ctx := c.Request().Context()

	collectionName := strings.TrimSpace(c.FormValue("collection_name"))
	if collectionName == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "collection_name is required"})
	}
	chunkSize := formInt(c, "chunk_size", chunk.DefaultChunkSize, 1)
	chunkOverlap := formInt(c, "chunk_overlap", chunk.DefaultChunkOverlap, 0)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "file is required"})
	}

	collection, err := s.Store.GetCollection(ctx, collectionName)
	if err != nil {
		slog.Error("failed to look up collection", "collection", collectionName, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to upload documents"})
	}
	if collection == nil {
		return c.JSON(http.StatusNotFound, errorResponse{
			Message: fmt.Sprintf("collection %q does not exist", collectionName),
		})
	}

	tempPath, err := s.spoolUpload(fileHeader)
	if err != nil {
		slog.Error("failed to spool upload", "filename", fileHeader.Filename, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to upload documents"})
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil {
			slog.Warn("failed to remove spooled upload", "path", tempPath, "error", err)
		}
	}()

	file, err := os.Open(tempPath)
	if err != nil {
		slog.Error("failed to reopen spooled upload", "path", tempPath, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to upload documents"})
	}
	defer file.Close()

	text, err := s.Preprocessor.Extract(fileHeader.Filename, file)
	if err != nil {
		if errors.Is(err, chunk.ErrUnsupportedFileType) {
			return c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
		}
		slog.Error("failed to extract document text", "filename", fileHeader.Filename, "error", err)
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "file could not be parsed"})
	}

	splitter := chunk.NewSplitter(
		chunk.WithChunkSize(chunkSize),
		chunk.WithChunkOverlap(chunkOverlap),
	)
	texts := splitter.Split(text)
	if len(texts) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "file produced no chunks"})
	}

	embeddings, err := s.EmbeddingService.EmbedBatch(ctx, texts)
	if err != nil {
		slog.Error("failed to embed document chunks", "filename", fileHeader.Filename, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to upload documents"})
	}
	if len(embeddings) != len(texts) {
		slog.Error("embedding count mismatch", "chunks", len(texts), "embeddings", len(embeddings))
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to upload documents"})
	}

	chunks := make([]*store.Chunk, 0, len(texts))
	docIDs := make([]string, 0, len(texts))
	for i, content := range texts {
		id := uuid.NewString()
		docIDs = append(docIDs, id)
		chunks = append(chunks, &store.Chunk{
			ID:             id,
			CollectionName: collectionName,
			Content:        content,
			Metadata: map[string]any{
				"source":      fileHeader.Filename,
				"chunk_index": i,
			},
			Embedding: embeddings[i],
		})
	}

	if err := s.Store.UpsertChunks(ctx, chunks); err != nil {
		slog.Error("failed to store document chunks", "collection", collectionName, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to upload documents"})
	}

	if _, err := s.Store.CreateDocumentUpload(ctx, &store.DocumentUpload{
		CollectionName: collectionName,
		Filename:       fileHeader.Filename,
		DocIDs:         docIDs,
	}); err != nil {
		// The chunks are already searchable; losing the upload record
		// only degrades bookkeeping.
		slog.Error("failed to record document upload", "collection", collectionName, "error", err)
	}

	return c.JSON(http.StatusOK, uploadDocsResponse{
		Message: fmt.Sprintf("stored %d chunks from %q in collection %q", len(chunks), fileHeader.Filename, collectionName),
		DocIDs:  docIDs,
	})
}

type documentUploadView struct {
	ID             int32    `json:"id"`
	CollectionName string   `json:"collection_name"`
	Filename       string   `json:"filename"`
	DocIDs         []string `json:"doc_ids"`
	UploadedTs     int64    `json:"uploaded_ts"`
}

// listDocumentUploads returns the upload records of a collection.
func (s *APIV1Service) listDocumentUploads(c echo.Context) error {
	find := &store.FindDocumentUpload{}
	if collectionName := strings.TrimSpace(c.QueryParam("collection_name")); collectionName != "" {
		find.CollectionName = &collectionName
	}

	uploads, err := s.Store.ListDocumentUploads(c.Request().Context(), find)
	if err != nil {
		slog.Error("failed to list document uploads", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to list documents"})
	}

	views := make([]documentUploadView, 0, len(uploads))
	for _, upload := range uploads {
		views = append(views, documentUploadView{
			ID:             upload.ID,
			CollectionName: upload.CollectionName,
			Filename:       upload.Filename,
			DocIDs:         upload.DocIDs,
			UploadedTs:     upload.UploadedTs,
		})
	}
	return c.JSON(http.StatusOK, views)
}

// deleteDocs removes the given chunk ids from a collection.
func (s *APIV1Service) deleteDocs(c echo.Context) error {
	ctx := c.Request().Context()
	collectionName := strings.TrimSpace(c.QueryParam("collection_name"))
	if collectionName == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "collection_name is required"})
	}

	var req deleteDocsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid request body"})
	}
	if len(req.IDs) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "ids cannot be empty"})
	}

	deleted, err := s.Store.DeleteChunks(ctx, collectionName, req.IDs)
	if err != nil {
		slog.Error("failed to delete chunks", "collection", collectionName, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to delete documents"})
	}
	if _, err := s.Store.RemoveUploadedDocIDs(ctx, collectionName, req.IDs); err != nil {
		slog.Warn("failed to prune upload records", "collection", collectionName, "error", err)
	}

	return c.JSON(http.StatusOK, deleteDocsResponse{
		Message:      fmt.Sprintf("deleted %d chunks from collection %q", deleted, collectionName),
		DeletedCount: deleted,
	})
}

// spoolUpload copies the multipart part to a temp file under the upload
// dir and returns its path. The caller removes the file.
func (s *APIV1Service) spoolUpload(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open multipart file: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.Profile.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	pattern := "upload-*" + filepath.Ext(fileHeader.Filename)
	dst, err := os.CreateTemp(s.Profile.UploadDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return dst.Name(), nil
}

// formInt parses an optional numeric form field, falling back for
// missing, malformed or below-minimum values. Zero is a valid overlap,
// so the floor is the caller's to choose.
func formInt(c echo.Context, name string, fallback, min int) int {
	raw := strings.TrimSpace(c.FormValue(name))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		return fallback
	}
	return n
}
