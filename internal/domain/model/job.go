package model

// SummaryJob is one unit of summarization work. It carries everything the
// worker needs so the queue backend does not have to re-read the store.
// At most one job may be outstanding per event ID; a transiently failed job
// is requeued as-is at the tail of the queue.
type SummaryJob struct {
	EventID     string       `json:"event_id"`
	Event       Event        `json:"event"`
	Security    *ScoreResult `json:"security,omitempty"`
	Quality     *ScoreResult `json:"quality,omitempty"`
	Category    Category     `json:"category"`
	Context     *RepoContext `json:"context,omitempty"`
	ContextRisk float64      `json:"context_risk"`
}
