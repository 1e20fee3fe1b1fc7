package driven

import (
	"context"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// SummaryStore persists completed summaries. Insert has first-writer-wins
// semantics on the event ID: it reports false, nil when a summary already
// existed and the new one was discarded.
type SummaryStore interface {
	Insert(ctx context.Context, s model.Summary) (bool, error)
	GetByEventID(ctx context.Context, eventID string) (*model.Summary, error)
	Count(ctx context.Context) (int64, error)
	Reset(ctx context.Context) error
}
