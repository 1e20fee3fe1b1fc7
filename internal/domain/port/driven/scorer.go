package driven

import (
	"context"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// Scorer evaluates one event against the two external scoring axes. Each
// method issues exactly one scorer call. Scoring failures degrade to an
// unscored event; they never fail ingestion.
type Scorer interface {
	ScoreSecurity(ctx context.Context, ev model.Event, rc *model.RepoContext) (*model.ScoreResult, error)
	ScoreCodeQuality(ctx context.Context, ev model.Event) (*model.ScoreResult, error)
}
