package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SummaryStore = (*SummaryRepo)(nil)

// SummaryRepo is the SQLite implementation of the SummaryStore port interface.
type SummaryRepo struct {
	db *DB
}

// NewSummaryRepo creates a new SummaryRepo backed by the given DB.
func NewSummaryRepo(db *DB) *SummaryRepo {
	return &SummaryRepo{db: db}
}

// Insert stores a summary with first-writer-wins semantics on the event ID.
// It reports false, nil when a summary already existed and this one was
// discarded, so concurrent duplicate attempts silently no-op.
func (r *SummaryRepo) Insert(ctx context.Context, s model.Summary) (bool, error) {
	const query = `
		INSERT INTO summaries (
			event_id, classification, confidence, headline,
			root_cause, impact, next_steps, raw_output, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING
	`

	rootCause, err := marshalBullets(s.RootCause)
	if err != nil {
		return false, fmt.Errorf("marshal root_cause: %w", err)
	}
	impact, err := marshalBullets(s.Impact)
	if err != nil {
		return false, fmt.Errorf("marshal impact: %w", err)
	}
	nextSteps, err := marshalBullets(s.NextSteps)
	if err != nil {
		return false, fmt.Errorf("marshal next_steps: %w", err)
	}

	raw := string(s.RawOutput)
	if raw == "" {
		raw = "{}"
	}

	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		s.EventID, string(s.Classification), s.Confidence, s.Headline,
		rootCause, impact, nextSteps, raw,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("insert summary for %s: %w", s.EventID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}

	return rows > 0, nil
}

// GetByEventID retrieves the summary for an event. Returns nil, nil if absent.
func (r *SummaryRepo) GetByEventID(ctx context.Context, eventID string) (*model.Summary, error) {
	const query = `
		SELECT event_id, classification, confidence, headline,
		       root_cause, impact, next_steps, raw_output, created_at
		FROM summaries
		WHERE event_id = ?
	`

	var s model.Summary
	var classification, rootCause, impact, nextSteps, raw, createdAt string

	err := r.db.Reader.QueryRowContext(ctx, query, eventID).Scan(
		&s.EventID, &classification, &s.Confidence, &s.Headline,
		&rootCause, &impact, &nextSteps, &raw, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary for %s: %w", eventID, err)
	}

	s.Classification = model.Classification(classification)
	s.RawOutput = []byte(raw)

	if err := json.Unmarshal([]byte(rootCause), &s.RootCause); err != nil {
		return nil, fmt.Errorf("unmarshal root_cause: %w", err)
	}
	if err := json.Unmarshal([]byte(impact), &s.Impact); err != nil {
		return nil, fmt.Errorf("unmarshal impact: %w", err)
	}
	if err := json.Unmarshal([]byte(nextSteps), &s.NextSteps); err != nil {
		return nil, fmt.Errorf("unmarshal next_steps: %w", err)
	}

	s.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &s, nil
}

// Count returns the number of stored summaries.
func (r *SummaryRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM summaries`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count summaries: %w", err)
	}
	return count, nil
}

// Reset deletes all stored summaries.
func (r *SummaryRepo) Reset(ctx context.Context) error {
	if _, err := r.db.Writer.ExecContext(ctx, `DELETE FROM summaries`); err != nil {
		return fmt.Errorf("reset summaries: %w", err)
	}
	return nil
}

func marshalBullets(bullets []string) (string, error) {
	if bullets == nil {
		bullets = []string{}
	}
	data, err := json.Marshal(bullets)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
