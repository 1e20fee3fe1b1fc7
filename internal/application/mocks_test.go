package application_test

import (
	"context"
	"sync"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// --- Mock implementations shared across application tests ---

type mockFeed struct {
	fetch func(ctx context.Context) ([]model.Event, error)
}

func (m *mockFeed) FetchEvents(ctx context.Context) ([]model.Event, error) {
	return m.fetch(ctx)
}

type mockScorer struct {
	security func(ctx context.Context, ev model.Event, rc *model.RepoContext) (*model.ScoreResult, error)
	quality  func(ctx context.Context, ev model.Event) (*model.ScoreResult, error)
}

func (m *mockScorer) ScoreSecurity(ctx context.Context, ev model.Event, rc *model.RepoContext) (*model.ScoreResult, error) {
	if m.security == nil {
		return nil, nil
	}
	return m.security(ctx, ev, rc)
}

func (m *mockScorer) ScoreCodeQuality(ctx context.Context, ev model.Event) (*model.ScoreResult, error) {
	if m.quality == nil {
		return nil, nil
	}
	return m.quality(ctx, ev)
}

type mockEventStore struct {
	mu        sync.Mutex
	inserts   []model.ScoredEvent
	insertErr error
	resets    int
}

func (m *mockEventStore) Insert(_ context.Context, ev model.ScoredEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserts = append(m.inserts, ev)
	return nil
}

func (m *mockEventStore) GetByID(_ context.Context, id string) (*model.ScoredEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.inserts {
		if m.inserts[i].Event.ID == id {
			ev := m.inserts[i]
			return &ev, nil
		}
	}
	return nil, nil
}

func (m *mockEventStore) ListRecent(_ context.Context, limit int) ([]model.ScoredEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.inserts) {
		limit = len(m.inserts)
	}
	return append([]model.ScoredEvent(nil), m.inserts[:limit]...), nil
}

func (m *mockEventStore) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.inserts)), nil
}

func (m *mockEventStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts = nil
	m.resets++
	return nil
}

func (m *mockEventStore) insertedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.inserts))
	for i, ev := range m.inserts {
		ids[i] = ev.Event.ID
	}
	return ids
}

type mockSummaryStore struct {
	mu        sync.Mutex
	summaries map[string]model.Summary
	insertErr error
	resets    int
}

func newMockSummaryStore() *mockSummaryStore {
	return &mockSummaryStore{summaries: make(map[string]model.Summary)}
}

func (m *mockSummaryStore) Insert(_ context.Context, s model.Summary) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return false, m.insertErr
	}
	if _, exists := m.summaries[s.EventID]; exists {
		return false, nil
	}
	m.summaries[s.EventID] = s
	return true, nil
}

func (m *mockSummaryStore) GetByEventID(_ context.Context, eventID string) (*model.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[eventID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *mockSummaryStore) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.summaries)), nil
}

func (m *mockSummaryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = make(map[string]model.Summary)
	m.resets++
	return nil
}

type mockQueue struct {
	mu      sync.Mutex
	jobs    []model.SummaryJob
	pushErr error
	durable bool
}

func (m *mockQueue) Push(_ context.Context, job model.SummaryJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pushErr != nil {
		return m.pushErr
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockQueue) Pop(_ context.Context) (*model.SummaryJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.jobs) == 0 {
		return nil, nil
	}
	job := m.jobs[0]
	m.jobs = m.jobs[1:]
	return &job, nil
}

func (m *mockQueue) Length(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs), nil
}

func (m *mockQueue) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.jobs)
	m.jobs = nil
	return n, nil
}

func (m *mockQueue) Durable() bool {
	return m.durable
}

func (m *mockQueue) length() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

type mockCompleter struct {
	complete func(ctx context.Context, system, user string) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return m.complete(ctx, system, user)
}
