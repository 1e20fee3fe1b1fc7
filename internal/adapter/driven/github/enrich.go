package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

const recentWindow = 7 * 24 * time.Hour

// FetchRepoContext assembles a point-in-time snapshot of a repository from
// several API calls. Branch protection, contributor, commit, and check-run
// lookups are each best-effort: a failure leaves that field at its zero value
// rather than failing the snapshot. The returned int is the remaining core
// rate budget after the last call, which the enrichment service compares
// against its safety floor.
func (c *Client) FetchRepoContext(ctx context.Context, repoName string) (*model.RepoContext, int, error) {
	owner, repo, err := splitRepo(repoName)
	if err != nil {
		return nil, 0, err
	}

	repoInfo, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, remainingPoints(resp), translateRateLimit(err, fmt.Sprintf("fetching repository %s", repoName))
	}

	rc := &model.RepoContext{
		RepoName:   repoName,
		Stars:      repoInfo.GetStargazersCount(),
		IsArchived: repoInfo.GetArchived(),
		FetchedAt:  time.Now(),
	}
	if created := repoInfo.GetCreatedAt().Time; !created.IsZero() {
		rc.AgeDays = time.Since(created).Hours() / 24
	}

	remaining := remainingPoints(resp)
	defaultBranch := repoInfo.GetDefaultBranch()

	rc.HasBranchProtection, resp = c.fetchBranchProtection(ctx, owner, repo, defaultBranch)
	if resp != nil {
		remaining = remainingPoints(resp)
	}

	contributors, resp, err := c.gh.Repositories.ListContributors(ctx, owner, repo, &gh.ListContributorsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	})
	if err == nil {
		rc.UniqueContributors = len(contributors)
		remaining = remainingPoints(resp)
	}

	commits, resp, err := c.gh.Repositories.ListCommits(ctx, owner, repo, &gh.CommitsListOptions{
		Since:       time.Now().Add(-recentWindow),
		ListOptions: gh.ListOptions{PerPage: 100},
	})
	if err == nil {
		rc.RecentCommitCount = len(commits)
		remaining = remainingPoints(resp)
	}

	if defaultBranch != "" {
		failureRate, checkResp, err := c.fetchCheckFailureRate(ctx, owner, repo, defaultBranch)
		if err == nil {
			rc.CheckFailureRate = failureRate
			remaining = remainingPoints(checkResp)
		}
	}

	return rc, remaining, nil
}

// fetchBranchProtection reports whether the default branch has protection
// rules. A 404 (unprotected) or 403 (insufficient permissions) both count as
// no protection.
func (c *Client) fetchBranchProtection(ctx context.Context, owner, repo, branch string) (bool, *gh.Response) {
	if branch == "" {
		return false, nil
	}

	protection, resp, err := c.gh.Repositories.GetBranchProtection(ctx, owner, repo, branch)
	if err != nil {
		return false, resp
	}

	return protection != nil, resp
}

// fetchCheckFailureRate computes the fraction of completed check runs on the
// branch head that did not succeed.
func (c *Client) fetchCheckFailureRate(ctx context.Context, owner, repo, ref string) (float64, *gh.Response, error) {
	result, resp, err := c.gh.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, &gh.ListCheckRunsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	})
	if err != nil {
		return 0, resp, err
	}

	var completed, failed int
	for _, cr := range result.CheckRuns {
		if cr.GetStatus() != "completed" {
			continue
		}
		completed++
		switch cr.GetConclusion() {
		case "failure", "cancelled", "timed_out", "action_required":
			failed++
		}
	}

	if completed == 0 {
		return 0, resp, nil
	}

	return float64(failed) / float64(completed), resp, nil
}

// remainingPoints extracts the remaining core rate budget from a response,
// tolerating nil responses from failed calls.
func remainingPoints(resp *gh.Response) int {
	if resp == nil {
		return 0
	}
	return resp.Rate.Remaining
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
