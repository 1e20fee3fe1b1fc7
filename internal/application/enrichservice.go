package application

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

const (
	enrichTTL = 10 * time.Minute

	// pointFloor is the safety floor for the enrichment API's point budget.
	// Below it, enrichment calls are skipped rather than risking exhausting
	// the budget the feed itself needs.
	pointFloor = 200

	// budgetStaleAfter bounds how long a low-budget observation keeps
	// enrichment disabled. The upstream budget resets on its own schedule;
	// once our observation is this old we optimistically probe again.
	budgetStaleAfter = time.Hour
)

type cachedContext struct {
	rc        *model.RepoContext
	fetchedAt time.Time
}

// EnrichService augments events with repository context. Enrichment is
// best-effort throughout: a cache miss with a depleted point budget, or any
// fetch failure, yields no context rather than blocking or failing ingestion.
type EnrichService struct {
	client driven.EnrichClient
	ttl    time.Duration
	floor  int
	now    func() time.Time

	mu         sync.Mutex
	cache      map[string]cachedContext
	remaining  int
	observedAt time.Time
}

// NewEnrichService creates an EnrichService with an empty cache and an
// optimistic point budget (no observation yet).
func NewEnrichService(client driven.EnrichClient) *EnrichService {
	return &EnrichService{
		client:    client,
		ttl:       enrichTTL,
		floor:     pointFloor,
		now:       time.Now,
		cache:     make(map[string]cachedContext),
		remaining: math.MaxInt,
	}
}

// Fetch returns the repository context for repoName, from cache when fresh.
// It returns nil when the point budget is below the safety floor or the
// fetch fails; callers proceed without context.
func (s *EnrichService) Fetch(ctx context.Context, repoName string) *model.RepoContext {
	s.mu.Lock()
	if entry, ok := s.cache[repoName]; ok && s.now().Sub(entry.fetchedAt) < s.ttl {
		s.mu.Unlock()
		return entry.rc
	}

	if s.remaining < s.floor && s.now().Sub(s.observedAt) < budgetStaleAfter {
		s.mu.Unlock()
		slog.Debug("enrichment skipped, point budget low",
			"repo", repoName,
			"remaining", s.remaining,
		)
		return nil
	}
	s.mu.Unlock()

	rc, remaining, err := s.client.FetchRepoContext(ctx, repoName)

	s.mu.Lock()
	defer s.mu.Unlock()

	var rle *driven.RateLimitError
	switch {
	case err == nil:
		s.remaining = remaining
		s.observedAt = s.now()
	case errors.As(err, &rle):
		s.remaining = 0
		s.observedAt = s.now()
	}

	if err != nil {
		slog.Debug("enrichment failed", "repo", repoName, "error", err)
		return nil
	}

	s.cache[repoName] = cachedContext{rc: rc, fetchedAt: s.now()}
	return rc
}

// Sweep evicts cache entries older than the TTL and returns how many were
// removed. The poller triggers it periodically by cycle count.
func (s *EnrichService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted int
	cutoff := s.now().Add(-s.ttl)
	for name, entry := range s.cache {
		if entry.fetchedAt.Before(cutoff) {
			delete(s.cache, name)
			evicted++
		}
	}

	return evicted
}

// ContextualRisk derives a [0,1] risk score from repository context. The
// weights mirror the signals the scorer's feature extractor cares about:
// young, unpopular, archived, or unprotected repositories with flaky checks
// and few contributors score higher.
func ContextualRisk(rc *model.RepoContext) float64 {
	if rc == nil {
		return 0
	}

	var risk float64
	if rc.AgeDays < 30 {
		risk += 0.25
	}
	if rc.Stars < 10 {
		risk += 0.15
	}
	if rc.IsArchived {
		risk += 0.15
	}
	if !rc.HasBranchProtection {
		risk += 0.20
	}
	risk += 0.15 * clamp01(rc.CheckFailureRate)
	if rc.UniqueContributors > 0 && rc.UniqueContributors < 3 {
		risk += 0.10
	}

	return clamp01(risk)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
