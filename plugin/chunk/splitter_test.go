package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitterEmptyInput(t *testing.T) {
	s := NewSplitter()
	require.Nil(t, s.Split(""))
	require.Nil(t, s.Split("   \n\n  "))
}

func TestSplitterShortTextSingleChunk(t *testing.T) {
	s := NewSplitter()
	chunks := s.Split("A short paragraph that fits in one chunk.")
	require.Len(t, chunks, 1)
	require.Equal(t, "A short paragraph that fits in one chunk.", chunks[0])
}

func TestSplitterPrefersParagraphBoundaries(t *testing.T) {
	s := NewSplitter(WithChunkSize(40), WithChunkOverlap(0))
	text := "First paragraph stays whole.\n\nSecond paragraph stays whole too."

	chunks := s.Split(text)
	require.Len(t, chunks, 2)
	require.Equal(t, "First paragraph stays whole.", chunks[0])
	require.Equal(t, "Second paragraph stays whole too.", chunks[1])
}

func TestSplitterRespectsChunkSize(t *testing.T) {
	s := NewSplitter(WithChunkSize(100), WithChunkOverlap(20))
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 50)

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		require.LessOrEqual(t, len(chunk), 100)
		require.NotEmpty(t, chunk)
	}
}

func TestSplitterOverlapCarriesContext(t *testing.T) {
	s := NewSplitter(WithChunkSize(50), WithChunkOverlap(20))
	text := strings.Repeat("alpha beta gamma delta epsilon ", 10)

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		// The head of each chunk repeats words from the previous one.
		head := strings.Fields(chunks[i])[0]
		require.Contains(t, chunks[i-1], head)
	}
}

func TestSplitterHardSplitsUnbrokenText(t *testing.T) {
	s := NewSplitter(WithChunkSize(10), WithChunkOverlap(0))
	text := strings.Repeat("x", 35)

	chunks := s.Split(text)
	require.GreaterOrEqual(t, len(chunks), 4)
	for _, chunk := range chunks {
		require.LessOrEqual(t, len(chunk), 10)
	}
	require.Equal(t, 35, len(strings.Join(chunks, "")))
}

func TestSplitterDefaults(t *testing.T) {
	s := NewSplitter()
	require.Equal(t, DefaultChunkSize, s.chunkSize)
	require.Equal(t, DefaultChunkOverlap, s.chunkOverlap)

	// Overlap can never swallow the whole chunk.
	s = NewSplitter(WithChunkSize(100), WithChunkOverlap(200))
	require.Equal(t, 50, s.chunkOverlap)
}
