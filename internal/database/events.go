package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"backdrop-gallery/internal/analytics"
	"backdrop-gallery/internal/logging"
)

// ErrMissingAction is returned when an event has no action.
var ErrMissingAction = errors.New("event action is required")

// EventCount is the number of events seen for one action/label pair.
type EventCount struct {
	Action string `json:"action"`
	Label  string `json:"label"`
	Count  int64  `json:"count"`
	Value  int64  `json:"value"`
}

// Record stores e and returns its generated id.
func (d *Database) Record(ctx context.Context, e analytics.Event) (string, error) {
	if e.Action == "" {
		return "", ErrMissingAction
	}

	id := uuid.NewString()
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO events (id, action, category, label, value) VALUES (?, ?, ?, ?, ?)`,
		id, e.Action, e.Category, e.Label, e.Value)
	recordQuery("record_event", start, err)
	if err != nil {
		return "", fmt.Errorf("failed to record event: %w", err)
	}
	return id, nil
}

// Emit implements analytics.Sink. Failures are logged, never returned.
func (d *Database) Emit(ctx context.Context, e analytics.Event) {
	if _, err := d.Record(ctx, e); err != nil {
		logging.Warn("analytics event %s/%s not persisted: %v", e.Action, e.Label, err)
	}
}

// Counts aggregates stored events by action and label, busiest first.
func (d *Database) Counts(ctx context.Context) ([]EventCount, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT action, label, COUNT(*), COALESCE(SUM(value), 0)
		FROM events
		GROUP BY action, label
		ORDER BY COUNT(*) DESC, action, label`)
	if err != nil {
		recordQuery("event_counts", start, err)
		return nil, fmt.Errorf("failed to query event counts: %w", err)
	}
	defer rows.Close()

	counts := []EventCount{}
	for rows.Next() {
		var c EventCount
		if err := rows.Scan(&c.Action, &c.Label, &c.Count, &c.Value); err != nil {
			recordQuery("event_counts", start, err)
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts = append(counts, c)
	}
	err = rows.Err()
	recordQuery("event_counts", start, err)
	if err != nil {
		return nil, err
	}
	return counts, nil
}
