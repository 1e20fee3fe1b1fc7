// Package driven defines the outbound port interfaces the application core
// depends on. Adapters under internal/adapter/driven implement them.
package driven

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// FeedClient fetches batches of new activity events from the external feed.
// Implementations are expected to issue conditional requests so an unchanged
// feed short-circuits cheaply.
type FeedClient interface {
	FetchEvents(ctx context.Context) ([]model.Event, error)
}

// RateLimitError indicates the upstream rejected a call for rate-limit
// reasons. RetryAfter carries the server-provided wait hint when one was
// present; zero means the caller should fall back to its own backoff.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}
