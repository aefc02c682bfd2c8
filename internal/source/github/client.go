// Package github loads documents from a GitHub repository directory.
package github

import (
	"log/slog"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// maxRateLimitWait caps a single secondary rate limit sleep. Longer waits fail the request
// instead of stalling the question loop.
const maxRateLimitWait = 2 * time.Minute

// Client is a go-github client whose transport sleeps through secondary rate limits.
type Client struct {
	*github.Client
}

// NewClient builds a client for the given token; empty means anonymous access, which
// GitHub limits to 60 requests an hour. Rate limit waits are logged at Warn.
func NewClient(token string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	onLimit := func(cc *github_ratelimit.CallbackContext) {
		attrs := []any{}
		if cc.Request != nil {
			attrs = append(attrs, "url", cc.Request.URL.String())
		}
		if cc.SleepUntil != nil {
			attrs = append(attrs, "until", cc.SleepUntil.Format(time.RFC3339))
		}
		logger.Warn("github rate limit hit, waiting", attrs...)
	}
	onTooLong := func(*github_ratelimit.CallbackContext) {
		logger.Warn("github rate limit wait too long, giving up", "max_wait", maxRateLimitWait)
	}

	httpClient, err := github_ratelimit.NewRateLimitWaiterClient(nil,
		github_ratelimit.WithLimitDetectedCallback(onLimit),
		github_ratelimit.WithSingleSleepLimit(maxRateLimitWait, onTooLong),
	)
	if err != nil {
		return nil, err
	}

	gh := github.NewClient(httpClient)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	return &Client{Client: gh}, nil
}
