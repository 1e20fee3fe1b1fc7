package scorer_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/gitpulse/internal/adapter/driven/scorer"
	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

func testEvent() model.Event {
	return model.Event{
		ID:        "e1",
		Type:      "PushEvent",
		RepoName:  "octocat/hello-world",
		Actor:     "octocat",
		CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Payload:   json.RawMessage(`{"size": 3}`),
	}
}

func TestScoreSecurity(t *testing.T) {
	var captured map[string]json.RawMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/score", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"event_id": "e1",
			"score": 0.87,
			"is_anomalous": true,
			"features": {"payload_size": 3, "actor_account_age": 12}
		}`)
	}))
	defer srv.Close()

	client := scorer.NewClient(srv.URL)

	rc := &model.RepoContext{RepoName: "octocat/hello-world", Stars: 5, AgeDays: 12}
	result, err := client.ScoreSecurity(context.Background(), testEvent(), rc)
	require.NoError(t, err)

	assert.InDelta(t, 0.87, result.Score, 0.001)
	assert.True(t, result.Flagged)
	assert.Equal(t, 3.0, result.Signals["payload_size"])

	// The request carries the event in feed wire shape plus repo context.
	var ev map[string]any
	require.NoError(t, json.Unmarshal(captured["event"], &ev))
	assert.Equal(t, "e1", ev["id"])
	assert.Equal(t, "PushEvent", ev["type"])
	require.Contains(t, captured, "repo_context")
}

func TestScoreCodeQualityVerdict(t *testing.T) {
	tests := []struct {
		name           string
		isGoodPractice bool
		wantFlagged    bool
	}{
		{"poor practice is flagged", false, true},
		{"good practice is not flagged", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/score/code-quality", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprintf(w, `{"event_id": "e1", "score": 0.5, "is_good_practice": %t, "features": {}}`, tt.isGoodPractice)
			}))
			defer srv.Close()

			client := scorer.NewClient(srv.URL)

			result, err := client.ScoreCodeQuality(context.Background(), testEvent())
			require.NoError(t, err)
			assert.Equal(t, tt.wantFlagged, result.Flagged)
		})
	}
}

func TestScoreServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error": "model not loaded"}`)
	}))
	defer srv.Close()

	client := scorer.NewClient(srv.URL)

	_, err := client.ScoreSecurity(context.Background(), testEvent(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
