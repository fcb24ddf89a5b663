package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// mockAudit records every audit write.
type mockAudit struct {
	records []AuditRecord
	stats   DeliveryStats
}

func (m *mockAudit) Record(_ context.Context, rec AuditRecord) {
	m.records = append(m.records, rec)
}

func (m *mockAudit) Stats(_ context.Context, _ string, _ time.Time) (DeliveryStats, error) {
	return m.stats, nil
}

// mockRetries records every scheduled retry.
type mockRetries struct {
	scheduled []*Delivery
}

func (m *mockRetries) Schedule(_ context.Context, d *Delivery, _ Outcome) {
	m.scheduled = append(m.scheduled, d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(routes map[Topic]HandlerFunc) (*Pipeline, *mockAudit, *mockRetries) {
	audit := &mockAudit{}
	retries := &mockRetries{}
	p := NewPipeline(NewRouter(routes), audit, retries, discardLogger())
	return p, audit, retries
}

func TestPipelineProcess_Success(t *testing.T) {
	p, audit, retries := newTestPipeline(map[Topic]HandlerFunc{
		TopicProductsCreate: func(_ context.Context, _ *Delivery) Outcome {
			return Handled(map[string]any{"product_id": "42"})
		},
	})

	d := &Delivery{Topic: TopicProductsCreate, DeliveryID: "wh-1", RawBody: []byte(`{}`)}
	o := p.Process(context.Background(), d)

	if !o.Success || !o.Processed {
		t.Errorf("outcome = %+v, want success+processed", o)
	}
	if len(audit.records) != 1 {
		t.Fatalf("audit records = %d, want exactly 1", len(audit.records))
	}
	rec := audit.records[0]
	if rec.DeliveryID != "wh-1" || !rec.Success || !rec.Processed {
		t.Errorf("audit record = %+v", rec)
	}
	if rec.PayloadHash == "" {
		t.Error("audit record should carry a payload hash")
	}
	if len(retries.scheduled) != 0 {
		t.Errorf("retries = %d, want 0", len(retries.scheduled))
	}
}

func TestPipelineProcess_UnknownTopicAudited(t *testing.T) {
	p, audit, retries := newTestPipeline(map[Topic]HandlerFunc{})

	o := p.Process(context.Background(), &Delivery{Topic: TopicUnknown, DeliveryID: "wh-2"})

	if !o.Success || o.Processed {
		t.Errorf("outcome = %+v, want acknowledged-but-skipped", o)
	}
	if len(audit.records) != 1 {
		t.Fatalf("audit records = %d, want 1 (skips are audited too)", len(audit.records))
	}
	if len(retries.scheduled) != 0 {
		t.Errorf("retries = %d, want 0", len(retries.scheduled))
	}
}

func TestPipelineProcess_RetryableFailureSchedulesOnce(t *testing.T) {
	p, audit, retries := newTestPipeline(map[Topic]HandlerFunc{
		TopicOrdersCreate: func(_ context.Context, _ *Delivery) Outcome {
			return TransientFailure(errors.New("store unavailable"))
		},
	})

	d := &Delivery{Topic: TopicOrdersCreate, DeliveryID: "wh-3", Attempt: 2}
	o := p.Process(context.Background(), d)

	if o.Success || !o.Retryable {
		t.Errorf("outcome = %+v, want retryable failure", o)
	}
	if len(retries.scheduled) != 1 {
		t.Fatalf("retries = %d, want exactly 1", len(retries.scheduled))
	}
	if retries.scheduled[0].Attempt != 2 {
		t.Errorf("scheduled delivery attempt = %d, want 2 (scheduler increments)", retries.scheduled[0].Attempt)
	}
	if len(audit.records) != 1 || audit.records[0].Retryable != true {
		t.Errorf("audit records = %+v", audit.records)
	}
}

func TestPipelineProcess_PermanentFailureNotScheduled(t *testing.T) {
	p, audit, retries := newTestPipeline(map[Topic]HandlerFunc{
		TopicOrdersCreate: func(_ context.Context, _ *Delivery) Outcome {
			return PermanentFailure(errors.New("payload without id"))
		},
	})

	o := p.Process(context.Background(), &Delivery{Topic: TopicOrdersCreate, DeliveryID: "wh-4"})

	if o.Success || o.Retryable {
		t.Errorf("outcome = %+v, want permanent failure", o)
	}
	if len(retries.scheduled) != 0 {
		t.Errorf("retries = %d, want 0", len(retries.scheduled))
	}
	if len(audit.records) != 1 {
		t.Errorf("audit records = %d, want 1", len(audit.records))
	}
}

func TestPipelineProcess_PanicBecomesPermanentFailure(t *testing.T) {
	p, audit, retries := newTestPipeline(map[Topic]HandlerFunc{
		TopicShopUpdate: func(_ context.Context, _ *Delivery) Outcome {
			panic("handler bug")
		},
	})

	o := p.Process(context.Background(), &Delivery{Topic: TopicShopUpdate, DeliveryID: "wh-5"})

	if o.Success {
		t.Error("panic should yield a failed outcome")
	}
	if o.Retryable {
		t.Error("panic should not be retried into the same crash")
	}
	if len(audit.records) != 1 {
		t.Errorf("audit records = %d, want 1", len(audit.records))
	}
	if len(retries.scheduled) != 0 {
		t.Errorf("retries = %d, want 0", len(retries.scheduled))
	}
}
