package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

const (
	probeAttempts = 3
	probeInterval = 2 * time.Second
)

// Select probes the configured Redis backend once at startup and returns the
// queue the process will use for its entire lifetime. The choice is one-way:
// a probe failure falls back permanently to the in-process queue, and the
// durability loss is announced loudly because queued jobs will not survive a
// crash there.
func Select(ctx context.Context, redisURL string) driven.JobQueue {
	if redisURL == "" {
		slog.Warn("no redis configured, using in-process job queue; queued jobs will not survive a restart")
		return NewMemory()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Error("invalid redis URL, falling back to in-process job queue", "error", err)
		return NewMemory()
	}

	client := redis.NewClient(opts)

	for attempt := 1; attempt <= probeAttempts; attempt++ {
		if err := client.Ping(ctx).Err(); err == nil {
			slog.Info("durable job queue selected", "backend", "redis")
			return NewRedis(client)
		} else if attempt < probeAttempts {
			slog.Warn("redis probe failed, retrying",
				"attempt", attempt,
				"error", err,
			)
			select {
			case <-ctx.Done():
				_ = client.Close()
				slog.Warn("startup canceled during redis probe, using in-process job queue")
				return NewMemory()
			case <-time.After(probeInterval):
			}
		}
	}

	_ = client.Close()
	slog.Warn("redis unreachable after probe budget, using in-process job queue; queued jobs will not survive a restart",
		"attempts", probeAttempts,
	)
	return NewMemory()
}
