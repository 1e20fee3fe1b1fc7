package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.JobQueue = (*Redis)(nil)

const jobsKey = "gitpulse:summary:jobs"

// Redis is the durable queue backend. Jobs are JSON-encoded entries in a
// Redis list; multiple pipeline processes may share it.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed queue from an already-connected client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Push appends a job at the tail of the list.
func (r *Redis) Push(ctx context.Context, job model.SummaryJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.EventID, err)
	}

	if err := r.client.RPush(ctx, jobsKey, data).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", job.EventID, err)
	}

	return nil
}

// Pop blocks up to popWait for the head job, returning nil, nil when none
// arrived in time.
func (r *Redis) Pop(ctx context.Context) (*model.SummaryJob, error) {
	result, err := r.client.BLPop(ctx, popWait, jobsKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop job: %w", err)
	}

	// BLPop returns [key, value].
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply of %d elements", len(result))
	}

	var job model.SummaryJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}

	return &job, nil
}

// Length returns the number of queued jobs.
func (r *Redis) Length(ctx context.Context) (int, error) {
	n, err := r.client.LLen(ctx, jobsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return int(n), nil
}

// Clear removes all queued jobs and returns how many were removed.
func (r *Redis) Clear(ctx context.Context) (int, error) {
	n, err := r.client.LLen(ctx, jobsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length before clear: %w", err)
	}

	if err := r.client.Del(ctx, jobsKey).Err(); err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}

	return int(n), nil
}

// Durable reports true: jobs survive a process restart.
func (r *Redis) Durable() bool {
	return true
}
