// Package model contains the core domain types for the ingestion and
// summarization pipeline.
package model

import (
	"encoding/json"
	"time"
)

// Event is a single activity record observed on the public feed. It is
// immutable once observed; downstream stages reference it but never mutate it.
type Event struct {
	ID        string
	Type      string
	RepoName  string
	Actor     string
	CreatedAt time.Time
	Payload   json.RawMessage
}

// ScoreResult is the outcome of one external scorer call for one axis.
// Score is in [0,1]; Flagged is the scorer's boolean verdict for that axis.
type ScoreResult struct {
	Score   float64
	Flagged bool
	Signals map[string]float64
}

// ScoredEvent is an Event after enrichment, scoring, and categorization.
// This is the shape persisted to the record store and broadcast to viewers.
type ScoredEvent struct {
	Event       Event
	Security    *ScoreResult // nil when the security scorer was unavailable.
	Quality     *ScoreResult // nil when the code-quality scorer was unavailable.
	Category    Category
	ContextRisk float64
	ObservedAt  time.Time
}
