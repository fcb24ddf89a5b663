// Package retry persists future re-delivery requests for transient failures
// and drains them back through the processing pipeline with bounded, jittered
// exponential backoff.
package retry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quoteflow/webhookd/internal/webhook"
)

// Queue is the SQLite-backed retry queue. Entries live in the same durable
// store as the entity tables; the drain worker consumes and deletes them.
type Queue struct {
	db *sql.DB
}

// NewQueue wraps db with retry queue operations.
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue persists one retry entry.
func (q *Queue) Enqueue(ctx context.Context, e webhook.RetryEntry) error {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := q.db.ExecContext(ctx, `
INSERT INTO retry_queue(id, delivery_id, shop_domain, topic, payload, attempt, scheduled_at, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?);
`, id, e.DeliveryID, e.ShopDomain, e.Topic.String(), string(e.RawBody), e.Attempt,
		e.ScheduledAt.UTC().Format(time.RFC3339Nano), now)
	if err != nil {
		return fmt.Errorf("enqueue retry entry: %w", err)
	}
	return nil
}

// Dequeue claims and removes the oldest entry due at or before now. Returns
// (nil, nil) if nothing is due. Claiming deletes the row; if reprocessing
// fails retryably again, the scheduler writes a fresh entry with the next
// attempt count.
func (q *Queue) Dequeue(ctx context.Context, now time.Time) (*webhook.RetryEntry, error) {
	row := q.db.QueryRowContext(ctx, `
WITH due AS (
  SELECT id
  FROM retry_queue
  WHERE scheduled_at <= ?
  ORDER BY scheduled_at ASC, rowid ASC
  LIMIT 1
)
DELETE FROM retry_queue
WHERE id IN (SELECT id FROM due)
RETURNING id, delivery_id, shop_domain, topic, payload, attempt, scheduled_at;
`, now.UTC().Format(time.RFC3339Nano))

	var (
		e            webhook.RetryEntry
		topicS       string
		payload      sql.NullString
		scheduledAtS string
	)
	err := row.Scan(&e.ID, &e.DeliveryID, &e.ShopDomain, &topicS, &payload, &e.Attempt, &scheduledAtS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue retry entry: %w", err)
	}

	e.Topic = webhook.ParseTopic(topicS)
	if payload.Valid {
		e.RawBody = []byte(payload.String)
	}
	if t, err := time.Parse(time.RFC3339Nano, scheduledAtS); err == nil {
		e.ScheduledAt = t
	}
	return &e, nil
}

// Depth returns the number of pending retry entries.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM retry_queue;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("retry queue depth: %w", err)
	}
	return n, nil
}
