package embedding

import (
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrMissingAPIKey is returned when the client is built without an API key.
var ErrMissingAPIKey = errors.New("OpenAI API key is empty")

// Client wraps the OpenAI client shared by embedding generation and chat completion.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client with an explicit key. baseURL may be empty to use
// the vendor endpoint, or point at any OpenAI-compatible server.
// The SDK's own retries are disabled; callers decide what to retry.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., chat completion).
func (c *Client) Client() *openai.Client {
	return c.client
}
