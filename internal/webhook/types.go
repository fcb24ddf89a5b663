package webhook

import (
	"context"
	"time"
)

// Delivery is the unit of work for one inbound webhook request (or one replay
// of it from the retry queue). It is immutable once constructed and owned by
// the processing call stack that created it.
type Delivery struct {
	Topic       Topic
	ShopDomain  string
	DeliveryID  string
	ReceivedAt  time.Time
	TriggeredAt time.Time
	RawBody     []byte
	Signature   string
	Attempt     int
}

// Outcome is the result of invoking a handler for one delivery.
//
// Success=false + Retryable=true means the delivery must be re-queued.
// Success=false + Retryable=false is terminal and must never be retried.
// Success=true + Processed=false means acknowledged but intentionally skipped
// (e.g. a topic with no registered handler).
type Outcome struct {
	Success   bool
	Processed bool
	Retryable bool
	Err       string
	Data      map[string]any
}

// Handled returns a successful, processed outcome carrying optional handler data.
func Handled(data map[string]any) Outcome {
	return Outcome{Success: true, Processed: true, Data: data}
}

// Skipped returns an acknowledged-but-not-processed outcome.
func Skipped(reason string) Outcome {
	return Outcome{Success: true, Processed: false, Data: map[string]any{"reason": reason}}
}

// TransientFailure classifies an error as retryable (downstream store failure).
func TransientFailure(err error) Outcome {
	return Outcome{Success: false, Retryable: true, Err: err.Error()}
}

// PermanentFailure classifies an error as terminal; no retry entry is created.
func PermanentFailure(err error) Outcome {
	return Outcome{Success: false, Retryable: false, Err: err.Error()}
}

// HandlerFunc processes one delivery. Implementations must be idempotent under
// re-delivery and must classify their own downstream errors; they never retry
// internally and never panic across the pipeline boundary.
type HandlerFunc func(ctx context.Context, d *Delivery) Outcome

// AuditRecord is one append-only row per processing attempt.
type AuditRecord struct {
	DeliveryID  string
	ShopDomain  string
	Topic       Topic
	Attempt     int
	Success     bool
	Processed   bool
	Retryable   bool
	Err         string
	PayloadHash string
	Duration    time.Duration
	At          time.Time
}

// RetryEntry is a persisted future re-delivery request. The drain worker
// consumes and deletes it, re-submitting the payload as a new Delivery with
// Attempt incremented.
type RetryEntry struct {
	ID          string
	DeliveryID  string
	ShopDomain  string
	Topic       Topic
	RawBody     []byte
	Attempt     int
	ScheduledAt time.Time
}

// DeliveryStats is the rolling processed/failed view served by the status
// endpoint.
type DeliveryStats struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// AuditLog records processing attempts and answers rolling stats queries.
// Record is best-effort: implementations log write failures themselves and
// never propagate them.
type AuditLog interface {
	Record(ctx context.Context, rec AuditRecord)
	Stats(ctx context.Context, shopDomain string, since time.Time) (DeliveryStats, error)
}

// RetryScheduler persists a future re-delivery for a retryable failure.
// Schedule is fire-and-forget relative to the HTTP response.
type RetryScheduler interface {
	Schedule(ctx context.Context, d *Delivery, o Outcome)
}
