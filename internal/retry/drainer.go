package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/quoteflow/webhookd/internal/webhook"
)

// Processor re-runs a delivery through the routing pipeline. Satisfied by
// *webhook.Pipeline.
type Processor interface {
	Process(ctx context.Context, d *webhook.Delivery) webhook.Outcome
}

// Drainer polls the retry queue and re-submits due entries through the
// pipeline. Entries are drained serially, one claim at a time, which bounds
// redelivery concurrency to one in-flight replay per process.
type Drainer struct {
	queue    *Queue
	pipeline Processor
	interval time.Duration
	logger   *slog.Logger
}

// NewDrainer creates a drain worker polling every interval.
func NewDrainer(queue *Queue, pipeline Processor, interval time.Duration, logger *slog.Logger) *Drainer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Drainer{
		queue:    queue,
		pipeline: pipeline,
		interval: interval,
		logger:   logger.With("component", "drainer"),
	}
}

// Start runs the drain loop until ctx is cancelled. This is a blocking call.
func (d *Drainer) Start(ctx context.Context) error {
	d.logger.Info("retry drain loop started", "interval", d.interval.String())
	defer d.logger.Info("retry drain loop stopped")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.drainDue(ctx)
		}
	}
}

// drainDue replays every entry due at tick time. Individual failures do not
// stop the loop; a failed replay either re-enters the queue via the scheduler
// (retryable) or terminates (permanent), so progress is always made.
func (d *Drainer) drainDue(ctx context.Context) {
	now := time.Now()
	for {
		entry, err := d.queue.Dequeue(ctx, now)
		if err != nil {
			d.logger.Error("failed to dequeue retry entry", "error", err)
			return
		}
		if entry == nil {
			return
		}

		delivery := &webhook.Delivery{
			Topic:       entry.Topic,
			ShopDomain:  entry.ShopDomain,
			DeliveryID:  entry.DeliveryID,
			ReceivedAt:  time.Now().UTC(),
			TriggeredAt: entry.ScheduledAt,
			RawBody:     entry.RawBody,
			Attempt:     entry.Attempt,
		}

		outcome := d.pipeline.Process(ctx, delivery)
		d.logger.Info("replayed retry entry",
			"delivery_id", entry.DeliveryID,
			"topic", entry.Topic.String(),
			"attempt", entry.Attempt,
			"success", outcome.Success,
		)
	}
}
