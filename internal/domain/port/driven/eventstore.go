package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// ErrNotFound is returned by services when a referenced record does not
// exist. Stores themselves signal absence with a nil result and nil error.
var ErrNotFound = errors.New("not found")

// EventStore persists scored events. Insert is idempotent on the event ID:
// a process restart may re-observe events the in-memory seen set forgot, and
// the store deduplicates them by primary key.
type EventStore interface {
	Insert(ctx context.Context, ev model.ScoredEvent) error
	GetByID(ctx context.Context, id string) (*model.ScoredEvent, error)
	ListRecent(ctx context.Context, limit int) ([]model.ScoredEvent, error)
	Count(ctx context.Context) (int64, error)
	Reset(ctx context.Context) error
}
