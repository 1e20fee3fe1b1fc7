// Package github implements the FeedClient and EnrichClient ports using the
// go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.FeedClient   = (*Client)(nil)
	_ driven.EnrichClient = (*Client)(nil)
)

const eventsPerPage = 100

// Client implements the FeedClient and EnrichClient ports using the go-github
// library.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching, so an unchanged feed
//     costs nothing against the rate budget)
//  2. go-github-ratelimit (secondary rate limit middleware)
//  3. go-github (GitHub REST API client)
//
// An empty token is accepted: the public events feed is readable
// unauthenticated at a reduced rate limit.
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)

	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// FetchEvents retrieves the latest page of public events from the feed and
// maps them to domain events. Rate-limit responses are converted into
// *driven.RateLimitError carrying the server's retry hint so the poller can
// back off without treating the failure as fatal.
func (c *Client) FetchEvents(ctx context.Context) ([]model.Event, error) {
	opts := &gh.ListOptions{PerPage: eventsPerPage}

	events, resp, err := c.gh.Activity.ListEvents(ctx, opts)
	if err != nil {
		return nil, translateRateLimit(err, "listing public events")
	}

	logRateLimit(resp, "events", len(events))

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		mapped, ok := mapEvent(ev)
		if !ok {
			continue
		}
		out = append(out, mapped)
	}

	return out, nil
}

// mapEvent converts a go-github Event to a domain model Event. Events without
// an ID are unusable for deduplication and are dropped.
func mapEvent(ev *gh.Event) (model.Event, bool) {
	if ev.GetID() == "" {
		return model.Event{}, false
	}

	var payload []byte
	if ev.RawPayload != nil {
		payload = *ev.RawPayload
	}

	return model.Event{
		ID:        ev.GetID(),
		Type:      ev.GetType(),
		RepoName:  ev.GetRepo().GetName(),
		Actor:     ev.GetActor().GetLogin(),
		CreatedAt: ev.GetCreatedAt().Time,
		Payload:   payload,
	}, true
}

// translateRateLimit converts go-github rate-limit error types into the port's
// RateLimitError so the application layer does not import go-github. Other
// errors are wrapped with operation context.
func translateRateLimit(err error, op string) error {
	var rle *gh.RateLimitError
	if errors.As(err, &rle) {
		wait := time.Until(rle.Rate.Reset.Time)
		if wait < 0 {
			wait = 0
		}
		return &driven.RateLimitError{RetryAfter: wait}
	}

	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		var wait time.Duration
		if abuse.RetryAfter != nil {
			wait = *abuse.RetryAfter
		}
		return &driven.RateLimitError{RetryAfter: wait}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"endpoint", endpoint,
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
