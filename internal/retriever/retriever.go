// Package retriever answers questions from an index: retrieve top-k chunks, stuff them into
// a system prompt and ask the chat model.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/bull/docqa/internal/document"
	"github.com/bull/docqa/internal/indexer"
	"github.com/bull/docqa/internal/llm"
	"github.com/bull/docqa/internal/storage"
)

// DefaultK is the number of chunks retrieved when k is not positive.
const DefaultK = 4

const (
	maxContextChunks  = 3
	maxSnippetRunes   = 300
	ruleWidth         = 60
	contextSeparator  = "\n\n"
	systemPromptIntro = "Use the following pieces of context to answer the question at the end. " +
		"If you don't know the answer based on the context, just say that you don't know, " +
		"don't try to make up an answer.\n\nContext: "
)

// Searcher is the part of an index the retriever needs.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]storage.ScoredChunk, error)
}

var _ Searcher = (*indexer.Index)(nil)

// Result is the answer to one question.
type Result struct {
	Answer  string
	Sources []string            // Deduplicated, in first-seen order
	Context []document.Document // Retrieved chunks, most similar first
}

// Retriever runs the retrieve-then-ask pipeline.
type Retriever struct {
	index Searcher
	chat  llm.ChatModel
	k     int
}

// New creates a retriever. k <= 0 means DefaultK.
func New(index Searcher, chat llm.ChatModel, k int) *Retriever {
	if k <= 0 {
		k = DefaultK
	}
	return &Retriever{index: index, chat: chat, k: k}
}

// K returns the number of chunks retrieved per question.
func (r *Retriever) K() int { return r.k }

// SystemPrompt builds the system message for the given context chunks.
func SystemPrompt(chunks []document.Document) string {
	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}
	return systemPromptIntro + strings.Join(contents, contextSeparator)
}

// Answer retrieves the top-k chunks for question and asks the chat model.
func (r *Retriever) Answer(ctx context.Context, question string) (*Result, error) {
	hits, err := r.index.SimilaritySearch(ctx, question, r.k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	chunks := make([]document.Document, len(hits))
	for i, h := range hits {
		chunks[i] = h.Document
	}

	answer, err := r.chat.Complete(ctx, SystemPrompt(chunks), question)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &Result{
		Answer:  answer,
		Sources: Sources(chunks),
		Context: chunks,
	}, nil
}

// Sources returns the distinct sources of chunks in first-seen order.
func Sources(chunks []document.Document) []string {
	seen := make(map[string]bool, len(chunks))
	var sources []string
	for _, c := range chunks {
		src := c.Metadata.SourceOrUnknown()
		if seen[src] {
			continue
		}
		seen[src] = true
		sources = append(sources, src)
	}
	return sources
}

// FormatResponse renders a result for the terminal. At most three context chunks are
// shown, each truncated to 300 characters.
func FormatResponse(result *Result, showContext bool) string {
	rule := strings.Repeat("=", ruleWidth)
	var out []string

	out = append(out, rule, "ANSWER:", rule, result.Answer, "")

	if len(result.Sources) > 0 {
		out = append(out, rule, "SOURCES:", rule)
		for i, src := range result.Sources {
			out = append(out, fmt.Sprintf("%d. %s", i+1, src))
		}
		out = append(out, "")
	}

	if showContext && len(result.Context) > 0 {
		out = append(out, rule, "RETRIEVED CONTEXT:", rule)
		for i, c := range result.Context[:min(len(result.Context), maxContextChunks)] {
			out = append(out,
				fmt.Sprintf("\n[Chunk %d from %s]", i+1, c.Metadata.SourceOrUnknown()),
				strings.Repeat("-", ruleWidth),
				truncate(c.Content, maxSnippetRunes),
			)
		}
	}

	return strings.Join(out, "\n")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
