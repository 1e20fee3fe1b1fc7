// Package queue implements the JobQueue port with a Redis-backed durable
// backend and an in-process fallback.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.JobQueue = (*Memory)(nil)

// popWait bounds how long Pop blocks waiting for a job before returning
// none, keeping the consuming loop responsive to shutdown.
const popWait = 1 * time.Second

// Memory is the in-process FIFO fallback backend. Jobs do not survive a
// process restart.
type Memory struct {
	mu    sync.Mutex
	jobs  []model.SummaryJob
	ready chan struct{}
}

// NewMemory creates an empty in-process queue.
func NewMemory() *Memory {
	return &Memory{ready: make(chan struct{}, 1)}
}

// Push appends a job at the tail.
func (m *Memory) Push(_ context.Context, job model.SummaryJob) error {
	m.mu.Lock()
	m.jobs = append(m.jobs, job)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}

	return nil
}

// Pop removes and returns the head job. When the queue is empty it waits up
// to popWait for one to arrive, then returns nil, nil.
func (m *Memory) Pop(ctx context.Context) (*model.SummaryJob, error) {
	if job := m.tryPop(); job != nil {
		return job, nil
	}

	timer := time.NewTimer(popWait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case <-m.ready:
		return m.tryPop(), nil
	}
}

func (m *Memory) tryPop() *model.SummaryJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.jobs) == 0 {
		return nil
	}

	job := m.jobs[0]
	m.jobs = m.jobs[1:]
	return &job
}

// Length returns the number of queued jobs.
func (m *Memory) Length(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs), nil
}

// Clear removes all queued jobs and returns how many were removed.
func (m *Memory) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := len(m.jobs)
	m.jobs = nil
	return removed, nil
}

// Durable reports false: jobs queued here are lost on crash.
func (m *Memory) Durable() bool {
	return false
}
