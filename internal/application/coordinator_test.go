package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

func seedEvent(t *testing.T, store *mockEventStore, id string, category model.Category) {
	t.Helper()
	var security *model.ScoreResult
	if category == model.CategorySecurity || category == model.CategoryBoth {
		security = &model.ScoreResult{Score: 0.9, Flagged: true}
	}
	require.NoError(t, store.Insert(context.Background(), model.ScoredEvent{
		Event:      feedEvent(id, "octo/repo"),
		Security:   security,
		Category:   category,
		ObservedAt: time.Now(),
	}))
}

func TestRequestSummaryEnqueuesAndChargesAxis(t *testing.T) {
	events := &mockEventStore{}
	summaries := newMockSummaryStore()
	queue := &mockQueue{}
	seedEvent(t, events, "1", model.CategorySecurity)

	coord := application.NewCoordinator(events, summaries, queue, application.NewNotifier(), nil, 2)

	status, existing, err := coord.RequestSummary(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, application.RequestGenerating, status)
	assert.Nil(t, existing)
	assert.Equal(t, 1, coord.Spent(model.CategorySecurity))
	assert.Zero(t, coord.Spent(model.CategoryCodeQuality))
	assert.Equal(t, 1, coord.Pending())
	require.Equal(t, 1, queue.length())
}

func TestRequestSummaryReturnsStoredSummary(t *testing.T) {
	events := &mockEventStore{}
	summaries := newMockSummaryStore()
	queue := &mockQueue{}
	seedEvent(t, events, "1", model.CategorySecurity)

	inserted, err := summaries.Insert(context.Background(), model.Summary{
		EventID:  "1",
		Headline: "already summarized",
	})
	require.NoError(t, err)
	require.True(t, inserted)

	coord := application.NewCoordinator(events, summaries, queue, application.NewNotifier(), nil, 2)

	status, existing, err := coord.RequestSummary(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, application.RequestStored, status)
	require.NotNil(t, existing)
	assert.Equal(t, "already summarized", existing.Headline)
	assert.Zero(t, coord.Spent(model.CategorySecurity), "a stored summary costs nothing")
	assert.Zero(t, queue.length())
}

func TestRequestSummaryDuplicateDoesNotDoubleSpend(t *testing.T) {
	events := &mockEventStore{}
	summaries := newMockSummaryStore()
	queue := &mockQueue{}
	seedEvent(t, events, "1", model.CategorySecurity)

	coord := application.NewCoordinator(events, summaries, queue, application.NewNotifier(), nil, 5)

	for range 3 {
		status, _, err := coord.RequestSummary(context.Background(), "1")
		require.NoError(t, err)
		assert.Equal(t, application.RequestGenerating, status)
	}

	assert.Equal(t, 1, coord.Spent(model.CategorySecurity))
	assert.Equal(t, 1, queue.length(), "only one job enqueued for repeated requests")
}

func TestRequestSummaryBudgetExhaustedAtCeiling(t *testing.T) {
	events := &mockEventStore{}
	summaries := newMockSummaryStore()
	queue := &mockQueue{}

	const budget = 10
	for i := 1; i <= budget+1; i++ {
		seedEvent(t, events, fmt.Sprintf("sec-%d", i), model.CategorySecurity)
	}

	coord := application.NewCoordinator(events, summaries, queue, application.NewNotifier(), nil, budget)

	for i := 1; i <= budget; i++ {
		status, _, err := coord.RequestSummary(context.Background(), fmt.Sprintf("sec-%d", i))
		require.NoError(t, err)
		require.Equal(t, application.RequestGenerating, status)
	}

	// The request past the ceiling is refused and leaves no trace.
	status, _, err := coord.RequestSummary(context.Background(), fmt.Sprintf("sec-%d", budget+1))
	require.NoError(t, err)
	assert.Equal(t, application.RequestBudgetExhausted, status)
	assert.Equal(t, budget, queue.length())
	assert.Equal(t, budget, coord.Pending())
}

func TestBudgetAxesAreIndependent(t *testing.T) {
	events := &mockEventStore{}
	summaries := newMockSummaryStore()
	queue := &mockQueue{}
	seedEvent(t, events, "sec", model.CategorySecurity)
	seedEvent(t, events, "qual", model.CategoryCodeQuality)

	coord := application.NewCoordinator(events, summaries, queue, application.NewNotifier(), nil, 1)

	status, _, err := coord.RequestSummary(context.Background(), "sec")
	require.NoError(t, err)
	require.Equal(t, application.RequestGenerating, status)

	// A spent security budget does not block the quality axis.
	status, _, err = coord.RequestSummary(context.Background(), "qual")
	require.NoError(t, err)
	assert.Equal(t, application.RequestGenerating, status)
	assert.Equal(t, 1, coord.Spent(model.CategorySecurity))
	assert.Equal(t, 1, coord.Spent(model.CategoryCodeQuality))
}

func TestDualFlaggedChargesSecurityAxis(t *testing.T) {
	events := &mockEventStore{}
	summaries := newMockSummaryStore()
	queue := &mockQueue{}
	seedEvent(t, events, "both", model.CategoryBoth)

	coord := application.NewCoordinator(events, summaries, queue, application.NewNotifier(), nil, 2)

	status, _, err := coord.RequestSummary(context.Background(), "both")
	require.NoError(t, err)
	require.Equal(t, application.RequestGenerating, status)
	assert.Equal(t, 1, coord.Spent(model.CategorySecurity))
	assert.Zero(t, coord.Spent(model.CategoryCodeQuality))
}

func TestRequestSummaryUnknownEvent(t *testing.T) {
	coord := application.NewCoordinator(&mockEventStore{}, newMockSummaryStore(), &mockQueue{}, application.NewNotifier(), nil, 1)

	_, _, err := coord.RequestSummary(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func TestRequestSummaryRollsBackOnPushFailure(t *testing.T) {
	events := &mockEventStore{}
	summaries := newMockSummaryStore()
	queue := &mockQueue{pushErr: errors.New("queue backend down")}
	seedEvent(t, events, "1", model.CategorySecurity)

	coord := application.NewCoordinator(events, summaries, queue, application.NewNotifier(), nil, 1)

	_, _, err := coord.RequestSummary(context.Background(), "1")
	require.Error(t, err)
	assert.Zero(t, coord.Spent(model.CategorySecurity), "failed enqueue refunds the charge")
	assert.Zero(t, coord.Pending())

	// The event can be requested again once the queue recovers.
	queue.pushErr = nil
	status, _, err := coord.RequestSummary(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, application.RequestGenerating, status)
}

func TestJobFailedKeepsChargeAndAllowsFreshRequest(t *testing.T) {
	events := &mockEventStore{}
	summaries := newMockSummaryStore()
	queue := &mockQueue{}
	seedEvent(t, events, "1", model.CategorySecurity)

	coord := application.NewCoordinator(events, summaries, queue, application.NewNotifier(), nil, 2)

	_, _, err := coord.RequestSummary(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, 1, coord.Spent(model.CategorySecurity))

	coord.JobFailed("1")
	assert.Equal(t, 1, coord.Spent(model.CategorySecurity), "the paid call stays charged")
	assert.Zero(t, coord.Pending())

	// A fresh request enqueues a new job against the remaining budget.
	_, _ = queue.Clear(context.Background())
	status, _, err := coord.RequestSummary(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, application.RequestGenerating, status)
	assert.Equal(t, 2, coord.Spent(model.CategorySecurity))
}

func TestResetClearsStateAndBroadcasts(t *testing.T) {
	events := &mockEventStore{}
	summaries := newMockSummaryStore()
	queue := &mockQueue{}
	notifier := application.NewNotifier()
	seedEvent(t, events, "1", model.CategorySecurity)

	coord := application.NewCoordinator(events, summaries, queue, notifier, nil, 1)

	_, _, err := coord.RequestSummary(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, 1, coord.Spent(model.CategorySecurity))

	sub, unsub := notifier.Subscribe()
	defer unsub()

	require.NoError(t, coord.Reset(context.Background()))

	assert.Zero(t, coord.Spent(model.CategorySecurity))
	assert.Zero(t, coord.Pending())
	assert.Zero(t, queue.length())
	assert.Equal(t, 1, events.resets)
	assert.Equal(t, 1, summaries.resets)

	select {
	case n := <-sub:
		assert.Equal(t, application.KindReset, n.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a reset notification")
	}
}
