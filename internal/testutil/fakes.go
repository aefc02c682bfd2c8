// Package testutil provides deterministic stand-ins for the embedding and chat APIs.
package testutil

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// HashDimension is the vector size produced by HashEmbedder.
const HashDimension = 64

// HashEmbedder embeds text as a bag of lowercase words hashed into HashDimension buckets,
// so texts sharing words are similar.
type HashEmbedder struct {
	mu    sync.Mutex
	Calls int
	Texts int
	Err   error
}

// Embed implements embedding.Embedder.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.Calls++
	e.Texts += len(texts)
	err := e.Err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = HashVector(text)
	}
	return out, nil
}

// HashVector returns the bag-of-words vector for text.
func HashVector(text string) []float32 {
	v := make([]float32, HashDimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%HashDimension]++
	}
	return v
}

// ChatCall records one Complete invocation.
type ChatCall struct {
	System string
	User   string
}

// ScriptedChat answers with Answer, or with AnswerFunc when set, and records calls.
type ScriptedChat struct {
	mu         sync.Mutex
	Answer     string
	AnswerFunc func(system, user string) string
	Err        error
	Calls      []ChatCall
}

// Complete implements llm.ChatModel.
func (c *ScriptedChat) Complete(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, ChatCall{System: system, User: user})
	if c.Err != nil {
		return "", c.Err
	}
	if c.AnswerFunc != nil {
		return c.AnswerFunc(system, user), nil
	}
	return c.Answer, nil
}

// LastCall returns the most recent call, or the zero value.
func (c *ScriptedChat) LastCall() ChatCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Calls) == 0 {
		return ChatCall{}
	}
	return c.Calls[len(c.Calls)-1]
}
