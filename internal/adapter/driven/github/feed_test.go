package github_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	githubadapter "github.com/ericfisherdev/gitpulse/internal/adapter/driven/github"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

func newTestClient(t *testing.T, handler http.Handler) *githubadapter.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := githubadapter.NewClientWithHTTPClient(srv.Client(), srv.URL+"/")
	require.NoError(t, err)

	return client
}

func TestFetchEvents(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{
				"id": "41234567890",
				"type": "PushEvent",
				"actor": {"login": "octocat"},
				"repo": {"name": "octocat/hello-world"},
				"payload": {"size": 1, "ref": "refs/heads/main"},
				"created_at": "2026-08-30T12:00:00Z"
			},
			{
				"type": "WatchEvent",
				"actor": {"login": "ghost"},
				"repo": {"name": "ghost/empty"},
				"payload": {}
			}
		]`)
	})

	client := newTestClient(t, handler)

	events, err := client.FetchEvents(context.Background())
	require.NoError(t, err)

	// The second event has no ID and is dropped.
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "41234567890", ev.ID)
	assert.Equal(t, "PushEvent", ev.Type)
	assert.Equal(t, "octocat/hello-world", ev.RepoName)
	assert.Equal(t, "octocat", ev.Actor)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), ev.CreatedAt)
	assert.JSONEq(t, `{"size": 1, "ref": "refs/heads/main"}`, string(ev.Payload))
}

func TestFetchEventsEmptyFeed(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	})

	client := newTestClient(t, handler)

	events, err := client.FetchEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFetchEventsRateLimited(t *testing.T) {
	reset := time.Now().Add(90 * time.Second).Unix()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
	})

	client := newTestClient(t, handler)

	_, err := client.FetchEvents(context.Background())
	require.Error(t, err)

	var rle *driven.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Greater(t, rle.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, rle.RetryAfter, 2*time.Minute)
}

func TestFetchEventsServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	client := newTestClient(t, handler)

	_, err := client.FetchEvents(context.Background())
	require.Error(t, err)

	var rle *driven.RateLimitError
	assert.False(t, errors.As(err, &rle), "server errors must not classify as rate limits")
}
