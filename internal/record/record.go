// Package record persists exchange responses: a plain-text audit log, a
// SQLite store, or both behind a fanout.
package record

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"order-gateway/internal/order"
	"order-gateway/pkg/db"
)

// Log appends one line per response to a text file.
type Log struct {
	mu   sync.Mutex
	file *os.File
}

// OpenLog opens (creating if needed) the append-only response log.
func OpenLog(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open response log: %w", err)
	}
	return &Log{file: f}, nil
}

// Record writes one line: timestamp | order id | verdict | latency.
func (l *Log) Record(_ context.Context, rec order.ResponseRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%s | OrderID: %d | Response: %s | Latency(ms): %.2f\n",
		rec.At.Format(time.RFC3339Nano), rec.OrderID, rec.Verdict,
		float64(rec.Latency.Microseconds())/1000.0)
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("write response log: %w", err)
	}
	return nil
}

// Close flushes and closes the log file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Store persists responses into SQLite.
type Store struct {
	db *db.Database
}

// NewStore wraps the database as a recorder.
func NewStore(database *db.Database) *Store {
	return &Store{db: database}
}

// Record inserts one response row.
func (s *Store) Record(ctx context.Context, rec order.ResponseRecord) error {
	return s.db.InsertResponse(ctx, db.ResponseRecord{
		ID:        uuid.NewString(),
		OrderID:   rec.OrderID,
		Verdict:   string(rec.Verdict),
		LatencyMs: float64(rec.Latency.Microseconds()) / 1000.0,
		CreatedAt: rec.At.UTC(),
	})
}

// Fanout records into every backend, returning the first error after trying
// all of them.
type Fanout []order.Recorder

// Record writes to each backend.
func (f Fanout) Record(ctx context.Context, rec order.ResponseRecord) error {
	var firstErr error
	for _, r := range f {
		if err := r.Record(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	_ order.Recorder = (*Log)(nil)
	_ order.Recorder = (*Store)(nil)
	_ order.Recorder = (Fanout)(nil)
)
