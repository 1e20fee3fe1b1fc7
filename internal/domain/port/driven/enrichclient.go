package driven

import (
	"context"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// EnrichClient fetches supplementary repository metadata from the secondary
// API. The returned int is the remaining point budget reported by the API
// after the call, which the enrichment service uses to gate further calls.
type EnrichClient interface {
	FetchRepoContext(ctx context.Context, repoName string) (*model.RepoContext, int, error)
}
