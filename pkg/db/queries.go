// Package db persists the gateway's append-only audit trail: one row per
// exchange response plus the session logon/logout events.
package db

import (
	"context"
	"errors"
	"fmt"
)

var ErrRecordIDRequired = errors.New("record id is required")

// InsertResponse appends a response record.
func (d *Database) InsertResponse(ctx context.Context, r ResponseRecord) error {
	if r.ID == "" {
		return ErrRecordIDRequired
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO responses (id, order_id, verdict, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, r.OrderID, r.Verdict, r.LatencyMs, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

// ListResponses returns the most recent response records, newest first.
func (d *Database) ListResponses(ctx context.Context, limit int) ([]ResponseRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, order_id, verdict, latency_ms, created_at
		FROM responses
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	var records []ResponseRecord
	for rows.Next() {
		var r ResponseRecord
		if err := rows.Scan(&r.ID, &r.OrderID, &r.Verdict, &r.LatencyMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ResponsesForOrder returns every response recorded for one order.
func (d *Database) ResponsesForOrder(ctx context.Context, orderID int64) ([]ResponseRecord, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, order_id, verdict, latency_ms, created_at
		FROM responses
		WHERE order_id = ?
		ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query responses for order: %w", err)
	}
	defer rows.Close()

	var records []ResponseRecord
	for rows.Next() {
		var r ResponseRecord
		if err := rows.Scan(&r.ID, &r.OrderID, &r.Verdict, &r.LatencyMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountResponsesByVerdict returns response totals keyed by verdict.
func (d *Database) CountResponsesByVerdict(ctx context.Context) (map[string]int, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT verdict, COUNT(*) FROM responses GROUP BY verdict
	`)
	if err != nil {
		return nil, fmt.Errorf("count responses: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var verdict string
		var n int
		if err := rows.Scan(&verdict, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[verdict] = n
	}
	return counts, rows.Err()
}

// InsertSessionEvent appends a logon/logout event.
func (d *Database) InsertSessionEvent(ctx context.Context, e SessionEvent) error {
	if e.ID == "" {
		return ErrRecordIDRequired
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO session_events (id, kind, username, created_at)
		VALUES (?, ?, ?, ?)
	`, e.ID, e.Kind, e.Username, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session event: %w", err)
	}
	return nil
}

// ListSessionEvents returns recorded session transitions, oldest first.
func (d *Database) ListSessionEvents(ctx context.Context, limit int) ([]SessionEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, kind, username, created_at
		FROM session_events
		ORDER BY created_at
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	var events []SessionEvent
	for rows.Next() {
		var e SessionEvent
		if err := rows.Scan(&e.ID, &e.Kind, &e.Username, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
