package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quoteflow/webhookd/internal/webhook"
)

type productPayload struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Vendor      string      `json:"vendor"`
	ProductType string      `json:"product_type"`
	Status      string      `json:"status"`
}

// ProductUpsert handles products/create and products/update with one upsert
// keyed by the platform's external product id.
func (s *Set) ProductUpsert(ctx context.Context, d *webhook.Delivery) webhook.Outcome {
	var p productPayload
	if err := decode(d.RawBody, &p); err != nil {
		return webhook.PermanentFailure(err)
	}
	if p.ID.String() == "" {
		return webhook.PermanentFailure(fmt.Errorf("product payload without id"))
	}

	status := p.Status
	if status == "" {
		status = "active"
	}
	err := s.store.Upsert(ctx, "products", "external_id", p.ID.String(), map[string]any{
		"shop_domain":  d.ShopDomain,
		"title":        p.Title,
		"vendor":       p.Vendor,
		"product_type": p.ProductType,
		"status":       status,
		"updated_at":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return webhook.TransientFailure(err)
	}
	return webhook.Handled(map[string]any{"product_id": p.ID.String()})
}

// ProductDelete soft-deletes the product: status flag plus timestamp, never a
// physical row removal, so analytics keyed on the row survive.
func (s *Set) ProductDelete(ctx context.Context, d *webhook.Delivery) webhook.Outcome {
	var p productPayload
	if err := decode(d.RawBody, &p); err != nil {
		return webhook.PermanentFailure(err)
	}
	if p.ID.String() == "" {
		return webhook.PermanentFailure(fmt.Errorf("product payload without id"))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	err := s.store.Upsert(ctx, "products", "external_id", p.ID.String(), map[string]any{
		"shop_domain": d.ShopDomain,
		"status":      "deleted",
		"deleted_at":  now,
		"updated_at":  now,
	})
	if err != nil {
		return webhook.TransientFailure(err)
	}
	return webhook.Handled(map[string]any{"product_id": p.ID.String(), "status": "deleted"})
}
