// Package scorer implements the Scorer port against the external ML scoring
// service's HTTP API.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Scorer = (*Client)(nil)

const requestTimeout = 20 * time.Second

// Client calls the scoring service's two axis endpoints. Each call scores a
// single event; failures are returned to the caller, which treats the axis
// as unscored.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a scorer client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// scoreRequest is the request body for both scoring endpoints. The event is
// forwarded in the feed's raw shape; repo context is included only on the
// security axis when enrichment produced one.
type scoreRequest struct {
	Event       json.RawMessage `json:"event"`
	RepoContext *repoContext    `json:"repo_context,omitempty"`
}

// repoContext is the scorer's expected repo context shape.
type repoContext struct {
	Metadata struct {
		AgeDays    float64 `json:"age_days"`
		Stars      int     `json:"stars"`
		IsArchived bool    `json:"isArchived"`
	} `json:"metadata"`
	Security struct {
		HasBranchProtection bool `json:"hasBranchProtection"`
	} `json:"security"`
	Activity struct {
		UniqueContributors int `json:"uniqueContributors"`
		RecentCommitCount  int `json:"recentCommitCount"`
	} `json:"activity"`
	Checks struct {
		FailureRate float64 `json:"failureRate"`
	} `json:"checks"`
}

// scoreResponse is the common response shape of both endpoints.
type scoreResponse struct {
	EventID        string             `json:"event_id"`
	Score          float64            `json:"score"`
	IsAnomalous    *bool              `json:"is_anomalous,omitempty"`
	IsGoodPractice *bool              `json:"is_good_practice,omitempty"`
	Features       map[string]float64 `json:"features"`
}

// ScoreSecurity scores the event on the security axis. The verdict fires when
// the scorer marks the event anomalous.
func (c *Client) ScoreSecurity(ctx context.Context, ev model.Event, rc *model.RepoContext) (*model.ScoreResult, error) {
	resp, err := c.score(ctx, "/score", ev, rc)
	if err != nil {
		return nil, err
	}

	return &model.ScoreResult{
		Score:   resp.Score,
		Flagged: resp.IsAnomalous != nil && *resp.IsAnomalous,
		Signals: resp.Features,
	}, nil
}

// ScoreCodeQuality scores the event on the code-quality axis. The verdict
// fires when the scorer does NOT consider the event good practice.
func (c *Client) ScoreCodeQuality(ctx context.Context, ev model.Event) (*model.ScoreResult, error) {
	resp, err := c.score(ctx, "/score/code-quality", ev, nil)
	if err != nil {
		return nil, err
	}

	return &model.ScoreResult{
		Score:   resp.Score,
		Flagged: resp.IsGoodPractice != nil && !*resp.IsGoodPractice,
		Signals: resp.Features,
	}, nil
}

func (c *Client) score(ctx context.Context, path string, ev model.Event, rc *model.RepoContext) (*scoreResponse, error) {
	reqBody := scoreRequest{Event: feedShape(ev)}
	if rc != nil {
		reqBody.RepoContext = mapRepoContext(rc)
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scoring %s via %s: %w", ev.ID, path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("scorer returned %d for %s: %s", httpResp.StatusCode, ev.ID, data)
	}

	var resp scoreResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode score response for %s: %w", ev.ID, err)
	}

	return &resp, nil
}

// feedShape reconstructs the feed's wire shape for an event, which is what
// the scorer's feature extractors expect.
func feedShape(ev model.Event) json.RawMessage {
	wire := map[string]any{
		"id":         ev.ID,
		"type":       ev.Type,
		"repo":       map[string]any{"name": ev.RepoName},
		"actor":      map[string]any{"login": ev.Actor},
		"created_at": ev.CreatedAt.UTC().Format(time.RFC3339),
		"payload":    json.RawMessage(ev.Payload),
	}
	if len(ev.Payload) == 0 {
		wire["payload"] = json.RawMessage(`{}`)
	}

	data, err := json.Marshal(wire)
	if err != nil {
		// Every field above is marshalable; this cannot fail in practice.
		return json.RawMessage(fmt.Sprintf(`{"id": %q}`, ev.ID))
	}
	return data
}

func mapRepoContext(rc *model.RepoContext) *repoContext {
	out := &repoContext{}
	out.Metadata.AgeDays = rc.AgeDays
	out.Metadata.Stars = rc.Stars
	out.Metadata.IsArchived = rc.IsArchived
	out.Security.HasBranchProtection = rc.HasBranchProtection
	out.Activity.UniqueContributors = rc.UniqueContributors
	out.Activity.RecentCommitCount = rc.RecentCommitCount
	out.Checks.FailureRate = rc.CheckFailureRate
	return out
}
