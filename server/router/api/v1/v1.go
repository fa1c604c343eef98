// Package v1 implements the REST API surface.
package v1

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/lamberr/ragline/internal/profile"
	"github.com/lamberr/ragline/plugin/ai"
	"github.com/lamberr/ragline/plugin/chunk"
	"github.com/lamberr/ragline/store"
)

// QueryAgent is the orchestration entrypoint the query service calls.
type QueryAgent interface {
	Ask(ctx context.Context, query, senderID, collectionName string) (string, error)
}

// APIV1Service bundles the handlers and their shared dependencies.
type APIV1Service struct {
	Profile          *profile.Profile
	Store            *store.Store
	Agent            QueryAgent
	EmbeddingService ai.EmbeddingService
	Preprocessor     *chunk.Preprocessor
}

// NewAPIV1Service creates the v1 API service.
func NewAPIV1Service(profile *profile.Profile, store *store.Store, agent QueryAgent, embedding ai.EmbeddingService) *APIV1Service {
	return &APIV1Service{
		Profile:          profile,
		Store:            store,
		Agent:            agent,
		EmbeddingService: embedding,
		Preprocessor:     chunk.NewPreprocessor(),
	}
}

// Register mounts all v1 routes on the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	queries := e.Group("/queries")
	queries.POST("/ask", s.askQuery)
	queries.GET("/history", s.listConversations)

	knowledgebases := e.Group("/knowledgebases")
	knowledgebases.POST("/create_collection", s.createCollection)
	knowledgebases.POST("/upload_docs", s.uploadDocs)
	knowledgebases.GET("/list_docs", s.listDocumentUploads)
	knowledgebases.DELETE("/delete_docs", s.deleteDocs)
}
