package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/lamberr/ragline/server/retrieval"
)

// ContextSearcher is the retrieval capability behind the query tool.
type ContextSearcher interface {
	Search(ctx context.Context, collection, query string, k int) ([]retrieval.Chunk, error)
}

// RetrievalTool exposes the knowledge-base retriever as the query_tool.
// Each tool instance is bound to one collection for the duration of an
// agent call.
type RetrievalTool struct {
	searcher   ContextSearcher
	collection string
	topK       int
}

// NewRetrievalTool creates a retrieval tool bound to a collection.
func NewRetrievalTool(searcher ContextSearcher, collection string) (*RetrievalTool, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher cannot be nil")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection cannot be empty")
	}
	return &RetrievalTool{
		searcher:   searcher,
		collection: collection,
		topK:       retrieval.DefaultTopK,
	}, nil
}

func (t *RetrievalTool) Name() string {
	return "query_tool"
}

func (t *RetrievalTool) Description() string {
	return "Use this tool when you need to answer questions about the context provided."
}

func (t *RetrievalTool) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"query": {
				Type:        jsonschema.String,
				Description: "The question to look up in the knowledge base",
			},
		},
		Required: []string{"query"},
	}
}

type retrievalInput struct {
	Query string `json:"query"`
}

func (t *RetrievalTool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var input retrievalInput
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid retrieval arguments: %w", err)
	}
	if input.Query == "" {
		return "", fmt.Errorf("query is required")
	}

	chunks, err := t.searcher.Search(ctx, t.collection, input.Query, t.topK)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "No relevant context found.", nil
	}

	var sb strings.Builder
	for _, chunk := range chunks {
		sb.WriteString(chunk.Text)
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

var _ Tool = (*RetrievalTool)(nil)
