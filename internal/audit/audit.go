// Package audit persists one append-only record per processing attempt.
// Records are written for observability and replay debugging; the hot path
// never reads them back.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quoteflow/webhookd/internal/webhook"
)

// Logger writes audit rows and serves the rolling stats query behind the
// status endpoint.
type Logger struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates an audit logger on db.
func New(db *sql.DB, logger *slog.Logger) *Logger {
	return &Logger{db: db, logger: logger.With("component", "audit")}
}

// Record appends one audit row. Auditing is best-effort: a write failure is
// logged to the diagnostic stream and never surfaces to the caller, so it can
// never turn a processed delivery into a failed request.
func (l *Logger) Record(ctx context.Context, rec webhook.AuditRecord) {
	at := rec.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx, `
INSERT INTO audit_log(
  id, delivery_id, shop_domain, topic, attempt, success, processed, retryable,
  error, payload_hash, duration_ms, created_at
)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, uuid.NewString(), rec.DeliveryID, rec.ShopDomain, rec.Topic.String(), rec.Attempt,
		boolInt(rec.Success), boolInt(rec.Processed), boolInt(rec.Retryable),
		nullable(rec.Err), rec.PayloadHash, rec.Duration.Milliseconds(),
		at.Format(time.RFC3339Nano))
	if err != nil {
		l.logger.Error("failed to write audit record",
			"delivery_id", rec.DeliveryID,
			"topic", rec.Topic.String(),
			"error", err,
		)
	}
}

// Stats returns processed/failed counts for attempts recorded since the given
// time, optionally filtered by shop domain.
func (l *Logger) Stats(ctx context.Context, shopDomain string, since time.Time) (webhook.DeliveryStats, error) {
	// Acknowledged skips carry success=1, processed=0 and count toward
	// neither column.
	query := `
SELECT
  COALESCE(SUM(processed), 0),
  COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
FROM audit_log
WHERE created_at >= ?`
	args := []any{since.UTC().Format(time.RFC3339Nano)}
	if shopDomain != "" {
		query += " AND shop_domain = ?"
		args = append(args, shopDomain)
	}

	var stats webhook.DeliveryStats
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&stats.Processed, &stats.Failed); err != nil {
		return webhook.DeliveryStats{}, fmt.Errorf("query audit stats: %w", err)
	}
	return stats, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
