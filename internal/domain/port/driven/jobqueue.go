package driven

import (
	"context"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// JobQueue is the FIFO queue of summarization jobs. Pop blocks for a bounded
// wait and returns nil, nil when no job became ready, keeping the consuming
// loop responsive to shutdown. A requeue after a transient failure re-enters
// at the tail, not the head.
type JobQueue interface {
	Push(ctx context.Context, job model.SummaryJob) error
	Pop(ctx context.Context) (*model.SummaryJob, error)
	Length(ctx context.Context) (int, error)
	Clear(ctx context.Context) (int, error)

	// Durable reports whether jobs survive a process restart. The in-process
	// fallback backend returns false; queued jobs are lost on crash there.
	Durable() bool
}
