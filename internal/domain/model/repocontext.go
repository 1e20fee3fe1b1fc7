package model

import "time"

// RepoContext is a point-in-time snapshot of a repository's metadata, used to
// distinguish a low-profile practice repository from a high-profile target
// when risk is ambiguous. It is cached per repository name with a fixed TTL
// and is read-only to consumers.
type RepoContext struct {
	RepoName            string
	Stars               int
	AgeDays             float64
	IsArchived          bool
	HasBranchProtection bool
	UniqueContributors  int
	RecentCommitCount   int
	CheckFailureRate    float64
	FetchedAt           time.Time
}
