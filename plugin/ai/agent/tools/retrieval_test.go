package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lamberr/ragline/server/retrieval"
)

type fakeSearcher struct {
	chunks        []retrieval.Chunk
	err           error
	gotCollection string
	gotQuery      string
	gotK          int
}

func (s *fakeSearcher) Search(_ context.Context, collection, query string, k int) ([]retrieval.Chunk, error) {
	s.gotCollection = collection
	s.gotQuery = query
	s.gotK = k
	return s.chunks, s.err
}

func TestRetrievalToolJoinsChunks(t *testing.T) {
	searcher := &fakeSearcher{chunks: []retrieval.Chunk{
		{Text: "Data is retained for 30 days.", Score: 0.9},
		{Text: "Backups are encrypted at rest.", Score: 0.7},
	}}
	tool, err := NewRetrievalTool(searcher, "policies")
	require.NoError(t, err)
	require.Equal(t, "query_tool", tool.Name())

	output, err := tool.Call(context.Background(), json.RawMessage(`{"query":"retention"}`))
	require.NoError(t, err)
	require.Equal(t, "Data is retained for 30 days.\n\nBackups are encrypted at rest.", output)

	require.Equal(t, "policies", searcher.gotCollection)
	require.Equal(t, "retention", searcher.gotQuery)
	require.Equal(t, retrieval.DefaultTopK, searcher.gotK)
}

func TestRetrievalToolEmptyResult(t *testing.T) {
	tool, err := NewRetrievalTool(&fakeSearcher{}, "policies")
	require.NoError(t, err)

	output, err := tool.Call(context.Background(), json.RawMessage(`{"query":"anything"}`))
	require.NoError(t, err)
	require.Equal(t, "No relevant context found.", output)
}

func TestRetrievalToolPropagatesSearchError(t *testing.T) {
	boom := errors.New("collection missing")
	tool, err := NewRetrievalTool(&fakeSearcher{err: boom}, "policies")
	require.NoError(t, err)

	_, err = tool.Call(context.Background(), json.RawMessage(`{"query":"anything"}`))
	require.ErrorIs(t, err, boom)
}

func TestNewRetrievalToolValidation(t *testing.T) {
	_, err := NewRetrievalTool(nil, "policies")
	require.Error(t, err)

	_, err = NewRetrievalTool(&fakeSearcher{}, "")
	require.Error(t, err)
}
