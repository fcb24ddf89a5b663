package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/quoteflow/webhookd/internal/metrics"
	"github.com/quoteflow/webhookd/internal/webhook"
)

// Enqueuer persists retry entries. Satisfied by *Queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, e webhook.RetryEntry) error
}

// Scheduler computes backoff for retryable failures and persists the future
// re-delivery request.
type Scheduler struct {
	queue  Enqueuer
	logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewScheduler creates a scheduler writing to queue.
func NewScheduler(queue Enqueuer, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		queue:  queue,
		logger: logger.With("component", "retry"),
		now:    time.Now,
	}
}

// Schedule persists one retry entry for a retryable failure, with attempt
// incremented and scheduled_at pushed out by the jittered backoff. It is
// fire-and-forget relative to the HTTP response: a persistence failure is
// logged and the already-decided response status stands. No attempt ceiling
// is enforced here; stale-entry cleanup is an operational concern.
func (s *Scheduler) Schedule(ctx context.Context, d *webhook.Delivery, o webhook.Outcome) {
	delay := Delay(d.Attempt)
	entry := webhook.RetryEntry{
		DeliveryID:  d.DeliveryID,
		ShopDomain:  d.ShopDomain,
		Topic:       d.Topic,
		RawBody:     d.RawBody,
		Attempt:     d.Attempt + 1,
		ScheduledAt: s.now().UTC().Add(delay),
	}

	if err := s.queue.Enqueue(ctx, entry); err != nil {
		s.logger.Error("failed to persist retry entry",
			"delivery_id", d.DeliveryID,
			"topic", d.Topic.String(),
			"attempt", entry.Attempt,
			"error", err,
		)
		return
	}

	metrics.RetriesScheduled.Inc()
	s.logger.Info("retry scheduled",
		"delivery_id", d.DeliveryID,
		"topic", d.Topic.String(),
		"attempt", entry.Attempt,
		"delay", delay.String(),
		"last_error", o.Err,
	)
}
