package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// ScoreResponse is the JSON representation of one scoring axis result.
type ScoreResponse struct {
	Score   float64            `json:"score"`
	Flagged bool               `json:"flagged"`
	Signals map[string]float64 `json:"signals,omitempty"`
}

// EventResponse is the JSON representation of a scored event.
type EventResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Repository  string          `json:"repository"`
	Actor       string          `json:"actor"`
	CreatedAt   string          `json:"created_at"`
	ObservedAt  string          `json:"observed_at"`
	Category    string          `json:"category"`
	ContextRisk float64         `json:"context_risk"`
	Security    *ScoreResponse  `json:"security,omitempty"`
	Quality     *ScoreResponse  `json:"quality,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// SummaryResponse is the JSON representation of a stored summary.
type SummaryResponse struct {
	EventID        string   `json:"event_id"`
	Classification string   `json:"classification"`
	Confidence     float64  `json:"confidence"`
	Headline       string   `json:"headline"`
	RootCause      []string `json:"root_cause"`
	Impact         []string `json:"impact"`
	NextSteps      []string `json:"next_steps"`
	CreatedAt      string   `json:"created_at"`
}

// RequestSummaryResponse is the body returned by POST summary requests.
type RequestSummaryResponse struct {
	Status  string           `json:"status"`
	Summary *SummaryResponse `json:"summary,omitempty"`
}

// ResetResponse is the body returned by a successful pipeline reset.
type ResetResponse struct {
	Status string `json:"status"`
}

// StatsResponse carries pipeline counters. Budget spend is tracked per
// summarization axis.
type StatsResponse struct {
	Events           int64 `json:"events"`
	Summaries        int64 `json:"summaries"`
	QueuedJobs       int   `json:"queued_jobs"`
	PendingSummaries int   `json:"pending_summaries"`
	SecuritySpent    int   `json:"security_budget_spent"`
	QualitySpent     int   `json:"quality_budget_spent"`
	BudgetPerAxis    int   `json:"budget_per_axis"`
	DurableQueue     bool  `json:"durable_queue"`
	Subscribers      int   `json:"subscribers"`
}

// HealthResponse is the health check response body.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func toScoreResponse(r *model.ScoreResult) *ScoreResponse {
	if r == nil {
		return nil
	}
	return &ScoreResponse{Score: r.Score, Flagged: r.Flagged, Signals: r.Signals}
}

func toEventResponse(ev model.ScoredEvent) EventResponse {
	return EventResponse{
		ID:          ev.Event.ID,
		Type:        ev.Event.Type,
		Repository:  ev.Event.RepoName,
		Actor:       ev.Event.Actor,
		CreatedAt:   ev.Event.CreatedAt.UTC().Format(time.RFC3339),
		ObservedAt:  ev.ObservedAt.UTC().Format(time.RFC3339),
		Category:    string(ev.Category),
		ContextRisk: ev.ContextRisk,
		Security:    toScoreResponse(ev.Security),
		Quality:     toScoreResponse(ev.Quality),
		Payload:     ev.Event.Payload,
	}
}

func toSummaryResponse(s model.Summary) SummaryResponse {
	return SummaryResponse{
		EventID:        s.EventID,
		Classification: string(s.Classification),
		Confidence:     s.Confidence,
		Headline:       s.Headline,
		RootCause:      s.RootCause,
		Impact:         s.Impact,
		NextSteps:      s.NextSteps,
		CreatedAt:      s.CreatedAt.UTC().Format(time.RFC3339),
	}
}
