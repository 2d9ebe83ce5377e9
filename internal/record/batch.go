package record

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"order-gateway/internal/order"
	"order-gateway/pkg/db"
)

// BatchStore buffers response records and writes them in one transaction,
// either when the buffer fills or on a timer. Under burst traffic this keeps
// the hot path off the database.
type BatchStore struct {
	db       *db.Database
	mu       sync.Mutex
	buffer   []order.ResponseRecord
	maxSize  int
	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewBatchStore starts the background flusher. Close must be called to get
// the final flush.
func NewBatchStore(database *db.Database, maxSize int, interval time.Duration) *BatchStore {
	if maxSize <= 0 {
		maxSize = 50
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	b := &BatchStore{
		db:       database,
		buffer:   make([]order.ResponseRecord, 0, maxSize),
		maxSize:  maxSize,
		interval: interval,
		done:     make(chan struct{}),
	}

	b.wg.Add(1)
	go b.backgroundFlush()

	return b
}

// Record buffers one response. The write happens on the next flush.
func (b *BatchStore) Record(_ context.Context, rec order.ResponseRecord) error {
	b.mu.Lock()
	b.buffer = append(b.buffer, rec)
	shouldFlush := len(b.buffer) >= b.maxSize
	b.mu.Unlock()

	if shouldFlush {
		return b.Flush()
	}
	return nil
}

// Flush writes all buffered records inside a single transaction.
func (b *BatchStore) Flush() error {
	b.mu.Lock()
	if len(b.buffer) == 0 {
		b.mu.Unlock()
		return nil
	}
	recs := b.buffer
	b.buffer = make([]order.ResponseRecord, 0, b.maxSize)
	b.mu.Unlock()

	tx, err := b.db.DB.Begin()
	if err != nil {
		return err
	}
	for _, rec := range recs {
		_, err := tx.Exec(`
			INSERT INTO responses (id, order_id, verdict, latency_ms, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, uuid.NewString(), rec.OrderID, string(rec.Verdict), float64(rec.Latency.Microseconds())/1000.0, rec.At.UTC())
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Pending returns the number of buffered, unflushed records.
func (b *BatchStore) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}

func (b *BatchStore) backgroundFlush() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				log.Printf("batch store flush error: %v", err)
			}
		case <-b.done:
			if err := b.Flush(); err != nil {
				log.Printf("batch store final flush error: %v", err)
			}
			return
		}
	}
}

// Close stops the flusher after one final flush.
func (b *BatchStore) Close() error {
	close(b.done)
	b.wg.Wait()
	return nil
}

var _ order.Recorder = (*BatchStore)(nil)
