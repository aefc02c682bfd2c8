// Package splitter cuts document text into overlapping, size-bounded windows.
//
// Window ends are placed on the highest-priority separator that fits (paragraph, then
// line, then space), falling back to a hard cut at the size limit. Window starts are
// pulled back from end-overlap to the nearest word start, so consecutive windows always
// share at least the configured overlap. Chunks are the windows with edge whitespace
// trimmed, and a window never starts inside a whitespace run, so the only text two
// consecutive chunks can fail to share is whitespace. Lengths are counted in characters
// (runes).
package splitter

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"github.com/bull/docqa/internal/document"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of characters shared by consecutive chunks.
const DefaultChunkOverlap = 200

// DefaultSeparators are tried in order; "" means a hard character cut.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

var (
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	ErrInvalidOverlap   = errors.New("chunk overlap must be non-negative and smaller than chunk size")
)

// Span is one chunk of the source text. Start and End are rune offsets of the trimmed text.
type Span struct {
	Start int
	End   int
	Text  string
}

// Splitter splits text with a fixed separator priority.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithSeparators overrides DefaultSeparators.
func WithSeparators(seps []string) Option {
	return func(s *Splitter) {
		if len(seps) > 0 {
			s.separators = seps
		}
	}
}

// New creates a splitter. chunkSize must be positive and overlap must be smaller than chunkSize.
func New(chunkSize, overlap int, opts ...Option) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d, size %d", ErrInvalidOverlap, overlap, chunkSize)
	}
	s := &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ChunkSize returns the configured maximum chunk length.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// SplitText returns the chunks of text in order.
func (s *Splitter) SplitText(text string) []Span {
	runes := []rune(text)
	n := len(runes)

	var spans []Span
	emit := func(start, end int) {
		for start < end && unicode.IsSpace(runes[start]) {
			start++
		}
		for end > start && unicode.IsSpace(runes[end-1]) {
			end--
		}
		if start < end {
			spans = append(spans, Span{Start: start, End: end, Text: string(runes[start:end])})
		}
	}

	start, prevEnd := skipSpace(runes, 0), 0
	for start < n {
		if n-start <= s.chunkSize {
			emit(start, n)
			break
		}

		minEnd := max(start+s.overlap, prevEnd)
		end := s.findEnd(runes, minEnd, start+s.chunkSize, s.separators)
		emit(start, end)

		start = skipSpace(runes, s.findStart(runes, start, end))
		prevEnd = end
	}
	return spans
}

// skipSpace returns the first non-whitespace offset at or after i, or len(runes).
func skipSpace(runes []rune, i int) int {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}

// findEnd returns the end offset of a window whose hard limit is limit.
// The window ends right before the last occurrence of the first separator that
// appears after minEnd; separators are tried recursively in priority order.
func (s *Splitter) findEnd(runes []rune, minEnd, limit int, seps []string) int {
	if len(seps) == 0 || seps[0] == "" {
		return limit
	}

	sep := []rune(seps[0])
	for i := min(limit, len(runes)-len(sep)); i > minEnd; i-- {
		if hasPrefixAt(runes, i, sep) {
			return i
		}
	}

	return s.findEnd(runes, minEnd, limit, seps[1:])
}

// findStart returns the start of the window following [start, end).
// It is the last word start at or before end-overlap, or end-overlap itself when the
// overlap region sits inside a single word. It is always greater than start.
func (s *Splitter) findStart(runes []rune, start, end int) int {
	if s.overlap == 0 {
		return end
	}
	target := end - s.overlap
	for p := target; p > start; p-- {
		if unicode.IsSpace(runes[p-1]) && !unicode.IsSpace(runes[p]) {
			return p
		}
	}
	return target
}

func hasPrefixAt(runes []rune, i int, sep []rune) bool {
	if i < 0 || i+len(sep) > len(runes) {
		return false
	}
	for j, r := range sep {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}

// SplitDocuments splits every document and returns the chunks in input order.
// Each chunk inherits a copy of its parent's metadata plus chunk_index and start_index.
func (s *Splitter) SplitDocuments(docs []document.Document) []document.Document {
	var chunks []document.Document
	for _, doc := range docs {
		for i, span := range s.SplitText(doc.Content) {
			meta := doc.Metadata.With("chunk_index", strconv.Itoa(i))
			meta.Extra["start_index"] = strconv.Itoa(span.Start)
			chunks = append(chunks, document.Document{
				Content:  span.Text,
				Metadata: meta,
			})
		}
	}
	return chunks
}
