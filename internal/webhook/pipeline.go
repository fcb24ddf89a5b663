package webhook

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/zeebo/blake3"

	"github.com/quoteflow/webhookd/internal/metrics"
)

// Pipeline sequences routing, handling, auditing and retry scheduling for one
// delivery. It is shared by the HTTP ingestion controller and the retry drain
// worker so both paths obey the same contract: exactly one audit record per
// attempt, exactly one retry entry per retryable failure.
type Pipeline struct {
	router  *Router
	audit   AuditLog
	retries RetryScheduler
	logger  *slog.Logger
}

// NewPipeline wires the processing sequence. The router table must be fully
// built before this call; it is read-only afterwards.
func NewPipeline(router *Router, audit AuditLog, retries RetryScheduler, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		router:  router,
		audit:   audit,
		retries: retries,
		logger:  logger.With("component", "pipeline"),
	}
}

// Process runs one delivery to completion and returns its outcome. The audit
// write and the retry write are independent best-effort operations; neither
// alters the outcome.
func (p *Pipeline) Process(ctx context.Context, d *Delivery) Outcome {
	start := time.Now()
	metrics.DeliveriesReceived.Inc()

	handler, registered := p.router.Resolve(d.Topic)
	if !registered {
		// Routing gap, not an error: operators watch this log line for
		// topics the platform sends that nothing consumes yet.
		p.logger.Info("no handler for topic, acknowledging without processing",
			"topic", d.Topic.String(),
			"shop", d.ShopDomain,
			"delivery_id", d.DeliveryID,
		)
	}

	outcome := p.invoke(ctx, handler, d)
	took := time.Since(start)

	p.audit.Record(ctx, AuditRecord{
		DeliveryID:  d.DeliveryID,
		ShopDomain:  d.ShopDomain,
		Topic:       d.Topic,
		Attempt:     d.Attempt,
		Success:     outcome.Success,
		Processed:   outcome.Processed,
		Retryable:   outcome.Retryable,
		Err:         outcome.Err,
		PayloadHash: fingerprint(d.RawBody),
		Duration:    took,
		At:          time.Now().UTC(),
	})

	switch {
	case outcome.Success && outcome.Processed:
		metrics.DeliveriesProcessed.Inc()
	case outcome.Success:
		metrics.DeliveriesSkipped.Inc()
	default:
		metrics.DeliveriesFailed.Inc()
	}
	metrics.ProcessingDuration.Observe(took.Seconds())

	if !outcome.Success && outcome.Retryable {
		p.retries.Schedule(ctx, d, outcome)
	}

	if !outcome.Success {
		p.logger.Warn("delivery failed",
			"topic", d.Topic.String(),
			"shop", d.ShopDomain,
			"delivery_id", d.DeliveryID,
			"attempt", d.Attempt,
			"retryable", outcome.Retryable,
			"error", outcome.Err,
		)
	}
	return outcome
}

// invoke calls the handler with a panic backstop. Handlers are required to
// return errors as data; a panic here is a bug and is classified permanent so
// the same payload is not redelivered into the same crash.
func (p *Pipeline) invoke(ctx context.Context, handler HandlerFunc, d *Delivery) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("handler panic",
				"topic", d.Topic.String(),
				"delivery_id", d.DeliveryID,
				"panic", r,
			)
			outcome = PermanentFailure(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return handler(ctx, d)
}

// fingerprint returns a hex blake3 digest of the raw payload, stored on audit
// rows so operators can spot duplicate bodies when replaying.
func fingerprint(body []byte) string {
	sum := blake3.Sum256(body)
	return hex.EncodeToString(sum[:])
}
