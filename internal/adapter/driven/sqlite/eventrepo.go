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
var _ driven.EventStore = (*EventRepo)(nil)

// EventRepo is the SQLite implementation of the EventStore port interface.
type EventRepo struct {
	db *DB
}

// NewEventRepo creates a new EventRepo backed by the given DB.
func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

const eventColumns = `
	id, type, repo_name, actor, category,
	security_score, security_flagged, security_signals,
	quality_score, quality_flagged, quality_signals,
	context_risk, payload, created_at, observed_at
`

// Insert stores a scored event. Duplicates by event ID are silently ignored:
// a restarted process may re-emit events its in-memory seen set forgot.
func (r *EventRepo) Insert(ctx context.Context, ev model.ScoredEvent) error {
	const query = `
		INSERT INTO events (
			id, type, repo_name, actor, category,
			security_score, security_flagged, security_signals,
			quality_score, quality_flagged, quality_signals,
			context_risk, payload, created_at, observed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	secScore, secFlagged, secSignals, err := encodeScore(ev.Security)
	if err != nil {
		return fmt.Errorf("encode security score for %s: %w", ev.Event.ID, err)
	}

	qualScore, qualFlagged, qualSignals, err := encodeScore(ev.Quality)
	if err != nil {
		return fmt.Errorf("encode quality score for %s: %w", ev.Event.ID, err)
	}

	payload := string(ev.Event.Payload)
	if payload == "" {
		payload = "{}"
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		ev.Event.ID, ev.Event.Type, ev.Event.RepoName, ev.Event.Actor, string(ev.Category),
		secScore, secFlagged, secSignals,
		qualScore, qualFlagged, qualSignals,
		ev.ContextRisk, payload,
		ev.Event.CreatedAt.UTC().Format(time.RFC3339), ev.ObservedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", ev.Event.ID, err)
	}

	return nil
}

// GetByID retrieves a single stored event. Returns nil, nil if absent.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.ScoredEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

	ev, err := scanEvent(r.db.Reader.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}

	return ev, nil
}

// ListRecent returns the most recently observed events, newest first.
func (r *EventRepo) ListRecent(ctx context.Context, limit int) ([]model.ScoredEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY observed_at DESC, id DESC LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var events []model.ScoredEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// Count returns the number of stored events.
func (r *EventRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// Reset deletes all stored events.
func (r *EventRepo) Reset(ctx context.Context) error {
	if _, err := r.db.Writer.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("reset events: %w", err)
	}
	return nil
}

// encodeScore flattens an optional ScoreResult into nullable columns plus a
// JSON signals blob.
func encodeScore(s *model.ScoreResult) (any, any, any, error) {
	if s == nil {
		return nil, nil, nil, nil
	}

	signals := s.Signals
	if signals == nil {
		signals = map[string]float64{}
	}
	signalsJSON, err := json.Marshal(signals)
	if err != nil {
		return nil, nil, nil, err
	}

	flagged := 0
	if s.Flagged {
		flagged = 1
	}

	return s.Score, flagged, string(signalsJSON), nil
}

func scanEvent(s scanner) (*model.ScoredEvent, error) {
	var ev model.ScoredEvent
	var category, payload string
	var createdAt, observedAt string
	var secScore, qualScore sql.NullFloat64
	var secFlagged, qualFlagged sql.NullInt64
	var secSignals, qualSignals sql.NullString

	err := s.Scan(
		&ev.Event.ID, &ev.Event.Type, &ev.Event.RepoName, &ev.Event.Actor, &category,
		&secScore, &secFlagged, &secSignals,
		&qualScore, &qualFlagged, &qualSignals,
		&ev.ContextRisk, &payload, &createdAt, &observedAt,
	)
	if err != nil {
		return nil, err
	}

	ev.Category = model.Category(category)
	ev.Event.Payload = []byte(payload)

	ev.Security, err = decodeScore(secScore, secFlagged, secSignals)
	if err != nil {
		return nil, fmt.Errorf("decode security score: %w", err)
	}

	ev.Quality, err = decodeScore(qualScore, qualFlagged, qualSignals)
	if err != nil {
		return nil, fmt.Errorf("decode quality score: %w", err)
	}

	ev.Event.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	ev.ObservedAt, err = parseTime(observedAt)
	if err != nil {
		return nil, fmt.Errorf("parse observed_at: %w", err)
	}

	return &ev, nil
}

func decodeScore(score sql.NullFloat64, flagged sql.NullInt64, signals sql.NullString) (*model.ScoreResult, error) {
	if !score.Valid {
		return nil, nil
	}

	result := &model.ScoreResult{
		Score:   score.Float64,
		Flagged: flagged.Valid && flagged.Int64 != 0,
	}

	if signals.Valid && signals.String != "" {
		if err := json.Unmarshal([]byte(signals.String), &result.Signals); err != nil {
			return nil, err
		}
	}

	return result, nil
}
