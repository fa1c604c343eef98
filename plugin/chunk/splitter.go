// Package chunk turns uploaded documents into overlapping text chunks
// sized for embedding.
package chunk

import (
	"strings"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is how many trailing characters of one chunk
	// reappear at the head of the next.
	DefaultChunkOverlap = 50
)

// separators in preference order: paragraph break, line break, word
// break, then hard character split as the last resort.
var separators = []string{"\n\n", "\n", " ", ""}

// Splitter splits text recursively along natural boundaries, falling
// back to finer separators only when a piece still exceeds the chunk
// size.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// SplitterOption configures a Splitter.
type SplitterOption func(*Splitter)

// WithChunkSize overrides the target chunk length.
func WithChunkSize(n int) SplitterOption {
	return func(s *Splitter) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithChunkOverlap overrides the inter-chunk overlap.
func WithChunkOverlap(n int) SplitterOption {
	return func(s *Splitter) {
		if n >= 0 {
			s.chunkOverlap = n
		}
	}
}

// NewSplitter creates a splitter with the default 1000/50 geometry.
func NewSplitter(opts ...SplitterOption) *Splitter {
	s := &Splitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.chunkOverlap >= s.chunkSize {
		s.chunkOverlap = s.chunkSize / 2
	}
	return s
}

// Split breaks text into chunks of at most the configured size, with
// consecutive chunks overlapping by the configured amount. Empty input
// yields no chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.splitText(text, separators)
}

func (s *Splitter) splitText(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	rest := seps
	for i, candidate := range seps {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	var goodSplits []string
	var chunks []string
	for _, piece := range splitWithSeparator(text, sep) {
		if len(piece) < s.chunkSize {
			goodSplits = append(goodSplits, piece)
			continue
		}
		if len(goodSplits) > 0 {
			chunks = append(chunks, s.mergeSplits(goodSplits, sep)...)
			goodSplits = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.splitText(piece, rest)...)
		}
	}
	if len(goodSplits) > 0 {
		chunks = append(chunks, s.mergeSplits(goodSplits, sep)...)
	}
	return chunks
}

// splitWithSeparator splits but keeps each piece meaningful: the empty
// separator means a per-character split.
func splitWithSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	var out []string
	for _, piece := range strings.Split(text, sep) {
		if piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

// mergeSplits greedily packs pieces into chunks up to chunkSize, then
// carries the overlap window forward into the next chunk.
func (s *Splitter) mergeSplits(splits []string, sep string) []string {
	sepLen := len(sep)

	var chunks []string
	var current []string
	total := 0

	join := func() string {
		return strings.TrimSpace(strings.Join(current, sep))
	}

	for _, piece := range splits {
		pieceLen := len(piece)
		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}
		if total+pieceLen+extra > s.chunkSize && len(current) > 0 {
			if chunk := join(); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// Drop leading pieces until what remains fits the overlap
			// budget and leaves room for the incoming piece.
			for len(current) > 0 &&
				(total > s.chunkOverlap || total+pieceLen+sepLen > s.chunkSize) {
				drop := len(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, piece)
		total += pieceLen
	}
	if chunk := join(); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}
