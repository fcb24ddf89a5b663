package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/quoteflow/webhookd/internal/webhook"
)

type shopPayload struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Timezone string `json:"iana_timezone"`
	Plan     string `json:"plan_name"`
}

// ShopUpdate records shop-level configuration changes keyed by shop domain.
func (s *Set) ShopUpdate(ctx context.Context, d *webhook.Delivery) webhook.Outcome {
	if d.ShopDomain == "" {
		return webhook.PermanentFailure(fmt.Errorf("shop/update delivery without shop domain"))
	}

	var p shopPayload
	if err := decode(d.RawBody, &p); err != nil {
		return webhook.PermanentFailure(err)
	}

	err := s.store.Upsert(ctx, "shops", "shop_domain", d.ShopDomain, map[string]any{
		"name":       p.Name,
		"currency":   p.Currency,
		"timezone":   p.Timezone,
		"plan":       p.Plan,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return webhook.TransientFailure(err)
	}
	return webhook.Handled(map[string]any{"shop_domain": d.ShopDomain})
}
