package audit

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoteflow/webhookd/internal/store"
	"github.com/quoteflow/webhookd/internal/webhook"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "audit_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRecordAndStats(t *testing.T) {
	l := newTestLogger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	l.Record(ctx, webhook.AuditRecord{
		DeliveryID: "wh-1", ShopDomain: "acme.example-platform.com",
		Topic: webhook.TopicProductsCreate, Success: true, Processed: true,
		Duration: 12 * time.Millisecond, At: now,
	})
	l.Record(ctx, webhook.AuditRecord{
		DeliveryID: "wh-2", ShopDomain: "acme.example-platform.com",
		Topic: webhook.TopicOrdersCreate, Success: false, Retryable: true,
		Err: "store down", At: now,
	})
	l.Record(ctx, webhook.AuditRecord{
		DeliveryID: "wh-3", ShopDomain: "other.example-platform.com",
		Topic: webhook.TopicShopUpdate, Success: true, Processed: true, At: now,
	})

	stats, err := l.Stats(ctx, "", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, webhook.DeliveryStats{Processed: 2, Failed: 1}, stats)

	stats, err = l.Stats(ctx, "acme.example-platform.com", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, webhook.DeliveryStats{Processed: 1, Failed: 1}, stats)
}

func TestStats_SkipsCountAsNeither(t *testing.T) {
	l := newTestLogger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Acknowledged routing gap: success without processing.
	l.Record(ctx, webhook.AuditRecord{
		DeliveryID: "wh-skip", ShopDomain: "acme.example-platform.com",
		Topic: webhook.TopicUnknown, Success: true, Processed: false, At: now,
	})
	l.Record(ctx, webhook.AuditRecord{
		DeliveryID: "wh-ok", ShopDomain: "acme.example-platform.com",
		Topic: webhook.TopicProductsCreate, Success: true, Processed: true, At: now,
	})

	stats, err := l.Stats(ctx, "acme.example-platform.com", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, webhook.DeliveryStats{Processed: 1, Failed: 0}, stats,
		"skips are neither processed nor failed")
}

func TestStats_WindowExcludesOldRecords(t *testing.T) {
	l := newTestLogger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	l.Record(ctx, webhook.AuditRecord{
		DeliveryID: "wh-old", Topic: webhook.TopicProductsCreate,
		Success: true, Processed: true, At: now.Add(-48 * time.Hour),
	})
	l.Record(ctx, webhook.AuditRecord{
		DeliveryID: "wh-new", Topic: webhook.TopicProductsCreate,
		Success: true, Processed: true, At: now,
	})

	stats, err := l.Stats(ctx, "", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, webhook.DeliveryStats{Processed: 1, Failed: 0}, stats)
}

func TestRecord_EveryAttemptAppends(t *testing.T) {
	l := newTestLogger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Same delivery id across attempts: rows append, never overwrite.
	for attempt := 0; attempt < 3; attempt++ {
		l.Record(ctx, webhook.AuditRecord{
			DeliveryID: "wh-1", Topic: webhook.TopicOrdersCreate,
			Attempt: attempt, Success: false, Retryable: true, At: now,
		})
	}

	stats, err := l.Stats(ctx, "", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Failed)
}
