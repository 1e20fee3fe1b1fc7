package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Summary request outcomes returned by RequestSummary.
const (
	// RequestStored means a summary already exists for the event.
	RequestStored = "stored-summary"
	// RequestGenerating means a job was enqueued now or was already pending.
	RequestGenerating = "generating"
	// RequestBudgetExhausted means the axis's per-run summary budget is spent.
	RequestBudgetExhausted = "budget-exhausted"
)

// Coordinator gates summary generation behind per-axis budgets and tracks
// which events have a summary pending so duplicate requests for the same
// event do not double-spend a budget. Budgets count paid completion calls:
// a charge is taken when a job is enqueued and is never refunded, except
// when the enqueue itself fails before any call could happen. Reset restores
// both budgets in full.
type Coordinator struct {
	events    driven.EventStore
	summaries driven.SummaryStore
	queue     driven.JobQueue
	notifier  *Notifier
	enricher  *EnrichService
	budget    int

	mu      sync.Mutex
	spent   map[model.Category]int
	pending map[string]struct{}
}

// NewCoordinator creates a Coordinator. budget is the per-axis ceiling on
// summarization calls for one process run.
func NewCoordinator(
	events driven.EventStore,
	summaries driven.SummaryStore,
	queue driven.JobQueue,
	notifier *Notifier,
	enricher *EnrichService,
	budget int,
) *Coordinator {
	return &Coordinator{
		events:    events,
		summaries: summaries,
		queue:     queue,
		notifier:  notifier,
		enricher:  enricher,
		budget:    budget,
		spent:     make(map[model.Category]int),
		pending:   make(map[string]struct{}),
	}
}

// RequestSummary asks for a summary of the given event. It returns one of
// the Request* status strings, plus the existing summary when one is already
// stored.
func (c *Coordinator) RequestSummary(ctx context.Context, eventID string) (string, *model.Summary, error) {
	existing, err := c.summaries.GetByEventID(ctx, eventID)
	if err != nil {
		return "", nil, fmt.Errorf("looking up summary for %s: %w", eventID, err)
	}
	if existing != nil {
		// Consistency repair: a crash between store and callback can leave
		// a stale pending mark behind.
		c.mu.Lock()
		delete(c.pending, eventID)
		c.mu.Unlock()
		return RequestStored, existing, nil
	}

	scored, err := c.events.GetByID(ctx, eventID)
	if err != nil {
		return "", nil, fmt.Errorf("looking up event %s: %w", eventID, err)
	}
	if scored == nil {
		return "", nil, fmt.Errorf("event %s: %w", eventID, driven.ErrNotFound)
	}

	axis := scored.Category.BudgetAxis()

	c.mu.Lock()
	if _, inFlight := c.pending[eventID]; inFlight {
		c.mu.Unlock()
		return RequestGenerating, nil, nil
	}
	if c.spent[axis] >= c.budget {
		c.mu.Unlock()
		return RequestBudgetExhausted, nil, nil
	}
	c.spent[axis]++
	c.pending[eventID] = struct{}{}
	c.mu.Unlock()

	var rc *model.RepoContext
	if c.enricher != nil && scored.Event.RepoName != "" {
		rc = c.enricher.Fetch(ctx, scored.Event.RepoName)
	}

	job := newSummaryJob(scored, rc)
	if err := c.queue.Push(ctx, *job); err != nil {
		// No completion call could have happened; refund the charge.
		c.mu.Lock()
		c.spent[axis]--
		delete(c.pending, eventID)
		c.mu.Unlock()
		return "", nil, fmt.Errorf("enqueueing summary job for %s: %w", eventID, err)
	}

	slog.Info("summary job enqueued",
		"event", eventID,
		"axis", string(axis),
		"spent", c.Spent(axis),
		"budget", c.budget,
	)

	return RequestGenerating, nil, nil
}

// JobDone is called by the worker when a summary has been stored (or found
// already stored). The pending mark is cleared.
func (c *Coordinator) JobDone(eventID string) {
	c.mu.Lock()
	delete(c.pending, eventID)
	c.mu.Unlock()
}

// JobFailed is called by the worker when a job fails terminally. Only the
// pending mark is cleared: the budget stays charged because the paid call
// may already have happened. A later request for the same event enqueues a
// fresh job against whatever budget remains.
func (c *Coordinator) JobFailed(eventID string) {
	c.mu.Lock()
	delete(c.pending, eventID)
	c.mu.Unlock()
}

// Spent returns the budget units charged on the given axis this run.
func (c *Coordinator) Spent(axis model.Category) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spent[axis]
}

// Budget returns the per-axis summary budget.
func (c *Coordinator) Budget() int {
	return c.budget
}

// Pending returns the number of events with a summary currently in flight.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Reset clears stored events and summaries, drains the job queue, restores
// both budgets, empties the pending marks, and broadcasts a reset
// notification. Partial failures are reported but do not stop the remaining
// steps.
func (c *Coordinator) Reset(ctx context.Context) error {
	var firstErr error

	if err := c.summaries.Reset(ctx); err != nil {
		firstErr = fmt.Errorf("resetting summaries: %w", err)
		slog.Error("reset: clearing summaries failed", "error", err)
	}
	if err := c.events.Reset(ctx); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("resetting events: %w", err)
		}
		slog.Error("reset: clearing events failed", "error", err)
	}

	dropped, err := c.queue.Clear(ctx)
	if err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("clearing job queue: %w", err)
		}
		slog.Error("reset: clearing job queue failed", "error", err)
	}

	c.mu.Lock()
	c.spent = make(map[model.Category]int)
	c.pending = make(map[string]struct{})
	c.mu.Unlock()

	c.notifier.Broadcast(KindReset, nil)

	slog.Info("pipeline reset", "dropped_jobs", dropped)
	return firstErr
}

// newSummaryJob builds the queue payload for a scored event.
func newSummaryJob(scored *model.ScoredEvent, rc *model.RepoContext) *model.SummaryJob {
	return &model.SummaryJob{
		EventID:     scored.Event.ID,
		Event:       scored.Event,
		Security:    scored.Security,
		Quality:     scored.Quality,
		Category:    scored.Category,
		Context:     rc,
		ContextRisk: scored.ContextRisk,
	}
}
