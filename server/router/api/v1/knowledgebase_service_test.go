package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/lamberr/ragline/store"
)

type fixedEmbedder struct {
	dimensions int
}

func (e *fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, e.dimensions), nil
}

func (e *fixedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dimensions)
	}
	return out, nil
}

func (e *fixedEmbedder) Dimensions() int { return e.dimensions }

func newKnowledgebaseService(t *testing.T) (*APIV1Service, *fakeDriver) {
	t.Helper()
	driver := newFakeDriver()
	service := NewAPIV1Service(testProfile(t), store.New(driver, nil), &fakeAgent{}, &fixedEmbedder{dimensions: 3})
	return service, driver
}

func newFormContext(method, target string, body *bytes.Buffer, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func multipartUpload(t *testing.T, collectionName, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("collection_name", collectionName))
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestCreateCollectionIsIdempotent(t *testing.T) {
	service, driver := newKnowledgebaseService(t)

	for i := 0; i < 2; i++ {
		c, rec := newFormContext(http.MethodPost, "/knowledgebases/create_collection?collection_name=policies", &bytes.Buffer{}, echo.MIMEApplicationJSON)
		require.NoError(t, service.createCollection(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	require.Len(t, driver.collections, 1)
	require.Equal(t, 1, driver.createCollections, "second call is gated by the existence check")
}

func TestCreateCollectionRequiresName(t *testing.T) {
	service, _ := newKnowledgebaseService(t)

	c, rec := newFormContext(http.MethodPost, "/knowledgebases/create_collection", &bytes.Buffer{}, echo.MIMEApplicationJSON)
	require.NoError(t, service.createCollection(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDocs(t *testing.T) {
	service, driver := newKnowledgebaseService(t)
	driver.collections["policies"] = &store.Collection{ID: 1, Name: "policies"}

	content := "Data is retained for 30 days.\n\nBackups rotate weekly."
	body, contentType := multipartUpload(t, "policies", "policy.txt", content)

	c, rec := newFormContext(http.MethodPost, "/knowledgebases/upload_docs", body, contentType)
	require.NoError(t, service.uploadDocs(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp uploadDocsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.DocIDs)
	require.Len(t, driver.chunks, len(resp.DocIDs))

	for _, chunk := range driver.chunks {
		require.Equal(t, "policies", chunk.CollectionName)
		require.Equal(t, "policy.txt", chunk.Metadata["source"])
		require.Len(t, chunk.Embedding, 3)
	}

	require.Len(t, driver.uploads, 1)
	require.Equal(t, "policy.txt", driver.uploads[0].Filename)
	require.ElementsMatch(t, resp.DocIDs, driver.uploads[0].DocIDs)
}

func TestUploadDocsUnknownCollection(t *testing.T) {
	service, _ := newKnowledgebaseService(t)

	body, contentType := multipartUpload(t, "ghost", "policy.txt", "content")
	c, rec := newFormContext(http.MethodPost, "/knowledgebases/upload_docs", body, contentType)
	require.NoError(t, service.uploadDocs(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadDocsUnsupportedFileType(t *testing.T) {
	service, driver := newKnowledgebaseService(t)
	driver.collections["policies"] = &store.Collection{ID: 1, Name: "policies"}

	body, contentType := multipartUpload(t, "policies", "slides.pptx", "binary")
	c, rec := newFormContext(http.MethodPost, "/knowledgebases/upload_docs", body, contentType)
	require.NoError(t, service.uploadDocs(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDocsEmptyFile(t *testing.T) {
	service, driver := newKnowledgebaseService(t)
	driver.collections["policies"] = &store.Collection{ID: 1, Name: "policies"}

	body, contentType := multipartUpload(t, "policies", "empty.txt", "   ")
	c, rec := newFormContext(http.MethodPost, "/knowledgebases/upload_docs", body, contentType)
	require.NoError(t, service.uploadDocs(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFormIntAllowsZeroOverlap(t *testing.T) {
	newCtx := func(form url.Values) echo.Context {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/knowledgebases/upload_docs", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()
		return e.NewContext(req, rec)
	}

	c := newCtx(url.Values{"chunk_overlap": {"0"}})
	require.Equal(t, 0, formInt(c, "chunk_overlap", 50, 0), "zero overlap is a valid choice, not unset")

	c = newCtx(url.Values{"chunk_overlap": {"-5"}})
	require.Equal(t, 50, formInt(c, "chunk_overlap", 50, 0))

	c = newCtx(url.Values{})
	require.Equal(t, 50, formInt(c, "chunk_overlap", 50, 0))

	c = newCtx(url.Values{"chunk_size": {"0"}})
	require.Equal(t, 1000, formInt(c, "chunk_size", 1000, 1), "a zero chunk size stays invalid")

	c = newCtx(url.Values{"chunk_size": {"not-a-number"}})
	require.Equal(t, 1000, formInt(c, "chunk_size", 1000, 1))
}

func TestDeleteDocs(t *testing.T) {
	service, driver := newKnowledgebaseService(t)
	driver.collections["policies"] = &store.Collection{ID: 1, Name: "policies"}
	driver.chunks["id-1"] = &store.Chunk{ID: "id-1", CollectionName: "policies"}
	driver.chunks["id-2"] = &store.Chunk{ID: "id-2", CollectionName: "policies"}
	driver.chunks["id-3"] = &store.Chunk{ID: "id-3", CollectionName: "other"}
	driver.uploads = append(driver.uploads, &store.DocumentUpload{
		CollectionName: "policies",
		Filename:       "policy.txt",
		DocIDs:         []string{"id-1", "id-2"},
	})

	body := strings.NewReader(`{"ids":["id-1","id-3"]}`)
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/knowledgebases/delete_docs?collection_name=policies", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, service.deleteDocs(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp deleteDocsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(1), resp.DeletedCount, "chunks in other collections are untouched")

	require.NotContains(t, driver.chunks, "id-1")
	require.Contains(t, driver.chunks, "id-2")
	require.Contains(t, driver.chunks, "id-3")
	require.Equal(t, []string{"id-2"}, driver.uploads[0].DocIDs)
}

func TestDeleteDocsRequiresIDs(t *testing.T) {
	service, _ := newKnowledgebaseService(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/knowledgebases/delete_docs?collection_name=policies", strings.NewReader(`{"ids":[]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, service.deleteDocs(e.NewContext(req, rec)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
