package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

const (
	// interJobPause spaces successive completion calls apart so a burst of
	// requests does not hammer the completion endpoint.
	interJobPause = 500 * time.Millisecond
	// rateLimitCooldown is how long the worker sleeps after the completion
	// endpoint rejects a call for rate limiting. The job goes back to the
	// tail of the queue first.
	rateLimitCooldown = 30 * time.Second
)

// Worker drains the summary job queue one job at a time: build the prompt,
// call the completion endpoint, parse, store first-writer-wins, broadcast.
type Worker struct {
	queue       driven.JobQueue
	completer   driven.Completer
	summaries   driven.SummaryStore
	coordinator *Coordinator
	notifier    *Notifier

	mu         sync.Mutex
	processing map[string]struct{}
}

// NewWorker creates a summary worker.
func NewWorker(
	queue driven.JobQueue,
	completer driven.Completer,
	summaries driven.SummaryStore,
	coordinator *Coordinator,
	notifier *Notifier,
) *Worker {
	return &Worker{
		queue:       queue,
		completer:   completer,
		summaries:   summaries,
		coordinator: coordinator,
		notifier:    notifier,
		processing:  make(map[string]struct{}),
	}
}

// Start runs the drain loop until the context is canceled.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("summary worker started")

	for {
		if ctx.Err() != nil {
			slog.Info("summary worker stopped")
			return
		}

		job, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("summary worker stopped")
				return
			}
			slog.Error("popping summary job failed", "error", err)
			sleep(ctx, interJobPause)
			continue
		}
		if job == nil {
			continue
		}

		if !w.markProcessing(job.EventID) {
			// A duplicate of a job already being processed. Drop it.
			continue
		}

		cooldown := w.processJob(ctx, job)
		w.unmarkProcessing(job.EventID)

		if cooldown > 0 {
			sleep(ctx, cooldown)
		} else {
			sleep(ctx, interJobPause)
		}
	}
}

// processJob handles one job and returns an extra cooldown to apply before
// the next pop, or zero.
func (w *Worker) processJob(ctx context.Context, job *model.SummaryJob) time.Duration {
	existing, err := w.summaries.GetByEventID(ctx, job.EventID)
	if err != nil {
		slog.Error("summary lookup failed", "event", job.EventID, "error", err)
		w.coordinator.JobFailed(job.EventID)
		return 0
	}
	if existing != nil {
		slog.Debug("summary already stored, skipping job", "event", job.EventID)
		w.coordinator.JobDone(job.EventID)
		return 0
	}

	system, user := BuildPrompt(job)

	raw, err := w.completer.Complete(ctx, system, user)
	if err != nil {
		var rle *driven.RateLimitError
		if errors.As(err, &rle) {
			// Transient. Requeue at the tail and cool down.
			if pushErr := w.queue.Push(ctx, *job); pushErr != nil {
				slog.Error("requeueing rate-limited job failed",
					"event", job.EventID, "error", pushErr)
				w.coordinator.JobFailed(job.EventID)
				return rateLimitCooldown
			}
			wait := rateLimitCooldown
			if rle.RetryAfter > wait {
				wait = rle.RetryAfter
			}
			slog.Warn("completion rate limited, job requeued",
				"event", job.EventID, "cooldown", wait.Round(time.Second))
			return wait
		}

		slog.Error("completion failed", "event", job.EventID, "error", err)
		w.coordinator.JobFailed(job.EventID)
		return 0
	}

	summary, err := ParseSummary(job.EventID, raw)
	if err != nil {
		slog.Error("unusable completion", "event", job.EventID, "error", err)
		w.coordinator.JobFailed(job.EventID)
		return 0
	}

	inserted, err := w.summaries.Insert(ctx, *summary)
	if err != nil {
		slog.Error("storing summary failed", "event", job.EventID, "error", err)
		w.coordinator.JobFailed(job.EventID)
		return 0
	}
	if !inserted {
		// Another writer won. Keep theirs.
		slog.Debug("summary already stored by another writer", "event", job.EventID)
		w.coordinator.JobDone(job.EventID)
		return 0
	}

	w.coordinator.JobDone(job.EventID)
	w.notifier.Broadcast(KindNewSummary, summary)

	slog.Info("summary stored",
		"event", job.EventID,
		"classification", string(summary.Classification),
		"confidence", summary.Confidence,
	)
	return 0
}

func (w *Worker) markProcessing(eventID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.processing[eventID]; ok {
		return false
	}
	w.processing[eventID] = struct{}{}
	return true
}

func (w *Worker) unmarkProcessing(eventID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.processing, eventID)
}

// sleep waits for d or until ctx is canceled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
