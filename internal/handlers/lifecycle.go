package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quoteflow/webhookd/internal/webhook"
)

// AppUninstalled marks the shop uninstalled and leaves a retention-cleanup
// note for the out-of-band data-retention job. The note is best-effort: the
// uninstall status update is the authoritative side effect.
func (s *Set) AppUninstalled(ctx context.Context, d *webhook.Delivery) webhook.Outcome {
	if d.ShopDomain == "" {
		return webhook.PermanentFailure(fmt.Errorf("app/uninstalled delivery without shop domain"))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	err := s.store.Upsert(ctx, "shops", "shop_domain", d.ShopDomain, map[string]any{
		"status":         "uninstalled",
		"uninstalled_at": now,
		"updated_at":     now,
	})
	if err != nil {
		return webhook.TransientFailure(err)
	}

	// Fire-and-forget: the cleanup job is picked up out of band, and a failed
	// note must not fail an otherwise-applied uninstall. Keyed by shop domain
	// so redelivery refreshes the note instead of duplicating it.
	if err := s.store.Upsert(ctx, "retention_jobs", "shop_domain", d.ShopDomain, map[string]any{
		"requested_at": now,
	}); err != nil {
		s.logger.Warn("failed to record retention cleanup note",
			"shop", d.ShopDomain, "error", err)
	}

	return webhook.Handled(map[string]any{"shop_domain": d.ShopDomain, "status": "uninstalled"})
}

// AppScopesUpdate records the granted scope set for the shop.
func (s *Set) AppScopesUpdate(ctx context.Context, d *webhook.Delivery) webhook.Outcome {
	if d.ShopDomain == "" {
		return webhook.PermanentFailure(fmt.Errorf("app/scopes_update delivery without shop domain"))
	}

	var payload struct {
		Current []string `json:"current"`
	}
	if err := decode(d.RawBody, &payload); err != nil {
		return webhook.PermanentFailure(err)
	}

	scopes := strings.Join(payload.Current, ",")

	err := s.store.Upsert(ctx, "shops", "shop_domain", d.ShopDomain, map[string]any{
		"scopes":     scopes,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return webhook.TransientFailure(err)
	}
	return webhook.Handled(map[string]any{"shop_domain": d.ShopDomain, "scopes": scopes})
}
