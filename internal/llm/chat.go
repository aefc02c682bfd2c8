// Package llm wraps the chat-completion model that synthesises answers.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-3.5-turbo"

// ErrEmptyResponse is returned when the model answers with no choices.
var ErrEmptyResponse = errors.New("chat completion returned no choices")

// ChatModel answers a user message under a system prompt.
type ChatModel interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAIChat calls the chat-completion API deterministically (temperature 0).
type OpenAIChat struct {
	client *openai.Client
	model  string
}

// NewOpenAIChat creates a chat model. Empty model means DefaultModel.
func NewOpenAIChat(client *openai.Client, model string) *OpenAIChat {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIChat{client: client, model: model}
}

// Model returns the chat model name.
func (c *OpenAIChat) Model() string { return c.model }

// Complete implements ChatModel. Errors are not retried.
func (c *OpenAIChat) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
