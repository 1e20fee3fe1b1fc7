// Package application contains use-case orchestration services.
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
	// seenCeiling bounds the in-memory seen set; once exceeded it is trimmed
	// to the most recent seenTrimTo IDs. The set is not a durability
	// guarantee: a restart loses it and the record store deduplicates by
	// primary key.
	seenCeiling = 10000
	seenTrimTo  = 5000

	// sweepEveryCycles is how often (in poll cycles) the enricher cache is
	// swept for expired entries.
	sweepEveryCycles = 20
)

// PollService orchestrates periodic feed polling, deduplication, enrichment,
// scoring, and categorization, forwarding scored events to the record store
// and the fan-out notifier.
type PollService struct {
	feed     driven.FeedClient
	scorer   driven.Scorer
	enricher *EnrichService
	events   driven.EventStore
	notifier *Notifier
	interval time.Duration
	backoff  *Backoff
	seen     *seenSet
	cycles   int
}

// NewPollService creates a new PollService with all required dependencies.
func NewPollService(
	feed driven.FeedClient,
	scorer driven.Scorer,
	enricher *EnrichService,
	events driven.EventStore,
	notifier *Notifier,
	interval time.Duration,
) *PollService {
	return &PollService{
		feed:     feed,
		scorer:   scorer,
		enricher: enricher,
		events:   events,
		notifier: notifier,
		interval: interval,
		backoff:  NewBackoff(backoffFloor, backoffCeiling),
		seen:     newSeenSet(seenCeiling, seenTrimTo),
	}
}

// Start begins the polling loop and blocks until the context is canceled.
// Failures never terminate the loop: rate limits and errors transition to a
// bounded, jittered backoff wait and the loop retries indefinitely.
func (s *PollService) Start(ctx context.Context) {
	for {
		wait := s.interval

		if err := s.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				slog.Info("poll service stopped")
				return
			}
			wait = s.waitAfterFailure(err)
		} else {
			s.backoff.Reset()
		}

		select {
		case <-ctx.Done():
			slog.Info("poll service stopped")
			return
		case <-time.After(wait):
		}
	}
}

// waitAfterFailure computes how long to wait before the next poll attempt.
// A server-provided retry hint takes priority over the internal backoff.
func (s *PollService) waitAfterFailure(err error) time.Duration {
	var rle *driven.RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter > 0 {
		wait := JitterHint(rle.RetryAfter)
		slog.Warn("feed rate limited, honoring retry hint", "wait", wait.Round(time.Second))
		return wait
	}

	wait := s.backoff.Next()
	slog.Warn("poll cycle failed, backing off",
		"error", err,
		"wait", wait.Round(time.Second),
	)
	return wait
}

// pollOnce runs a single poll cycle: fetch, dedupe, then process all fresh
// items concurrently.
func (s *PollService) pollOnce(ctx context.Context) error {
	start := time.Now()

	items, err := s.feed.FetchEvents(ctx)
	if err != nil {
		return err
	}

	fresh := make([]model.Event, 0, len(items))
	for _, ev := range items {
		if s.seen.Add(ev.ID) {
			fresh = append(fresh, ev)
		}
	}

	var wg sync.WaitGroup
	for _, ev := range fresh {
		wg.Add(1)
		go func(ev model.Event) {
			defer wg.Done()
			s.processEvent(ctx, ev)
		}(ev)
	}
	wg.Wait()

	s.cycles++
	if s.enricher != nil && s.cycles%sweepEveryCycles == 0 {
		if evicted := s.enricher.Sweep(); evicted > 0 {
			slog.Debug("enrichment cache swept", "evicted", evicted)
		}
	}

	slog.Info("poll cycle complete",
		"fetched", len(items),
		"fresh", len(fresh),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

// processEvent enriches, scores, and categorizes one event, then persists and
// broadcasts it. The two scorer axes run concurrently and both are awaited
// before categorization. Scoring failures degrade to an unscored axis; store
// failures are logged and the event is dropped from this cycle (the feed
// overlap plus store idempotency will usually recover it).
func (s *PollService) processEvent(ctx context.Context, ev model.Event) {
	var rc *model.RepoContext
	if s.enricher != nil && ev.RepoName != "" {
		rc = s.enricher.Fetch(ctx, ev.RepoName)
	}

	var (
		wg       sync.WaitGroup
		security *model.ScoreResult
		quality  *model.ScoreResult
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		result, err := s.scorer.ScoreSecurity(ctx, ev, rc)
		if err != nil {
			slog.Warn("security scoring failed", "event", ev.ID, "error", err)
			return
		}
		security = result
	}()
	go func() {
		defer wg.Done()
		result, err := s.scorer.ScoreCodeQuality(ctx, ev)
		if err != nil {
			slog.Warn("code-quality scoring failed", "event", ev.ID, "error", err)
			return
		}
		quality = result
	}()
	wg.Wait()

	category := model.Categorize(security, quality)

	scored := model.ScoredEvent{
		Event:       ev,
		Security:    security,
		Quality:     quality,
		Category:    category,
		ContextRisk: ContextualRisk(rc),
		ObservedAt:  time.Now(),
	}

	if err := s.events.Insert(ctx, scored); err != nil {
		slog.Error("store event failed", "event", ev.ID, "error", err)
		return
	}

	s.notifier.Broadcast(KindNewEvent, scored)

	if category != model.CategoryNormal {
		slog.Info("event flagged",
			"event", ev.ID,
			"category", string(category),
			"repo", ev.RepoName,
			"type", ev.Type,
		)
	}
}

// seenSet is the bounded set of recently observed event IDs, used only for
// intra-process duplicate suppression across poll cycles. It is owned by the
// poll loop and accessed from a single goroutine.
type seenSet struct {
	ids     map[string]struct{}
	order   []string
	ceiling int
	trimTo  int
}

func newSeenSet(ceiling, trimTo int) *seenSet {
	return &seenSet{
		ids:     make(map[string]struct{}, ceiling),
		ceiling: ceiling,
		trimTo:  trimTo,
	}
}

// Add records an ID and reports whether it was new. Once the set exceeds its
// ceiling it is trimmed to the most recent trimTo IDs.
func (s *seenSet) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}

	s.ids[id] = struct{}{}
	s.order = append(s.order, id)

	if len(s.order) > s.ceiling {
		drop := s.order[:len(s.order)-s.trimTo]
		for _, old := range drop {
			delete(s.ids, old)
		}
		s.order = append([]string(nil), s.order[len(s.order)-s.trimTo:]...)
	}

	return true
}

func (s *seenSet) Len() int {
	return len(s.order)
}
