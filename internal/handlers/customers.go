package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quoteflow/webhookd/internal/webhook"
)

type customerPayload struct {
	ID        json.Number `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
}

// CustomerUpsert handles customers/create and customers/update with one
// upsert keyed by the external customer id.
func (s *Set) CustomerUpsert(ctx context.Context, d *webhook.Delivery) webhook.Outcome {
	return s.writeCustomer(ctx, d, "active")
}

// CustomerDelete shares the upsert logic, with deletion represented as a
// status flag rather than a row removal.
func (s *Set) CustomerDelete(ctx context.Context, d *webhook.Delivery) webhook.Outcome {
	return s.writeCustomer(ctx, d, "deleted")
}

func (s *Set) writeCustomer(ctx context.Context, d *webhook.Delivery, status string) webhook.Outcome {
	var p customerPayload
	if err := decode(d.RawBody, &p); err != nil {
		return webhook.PermanentFailure(err)
	}
	if p.ID.String() == "" {
		return webhook.PermanentFailure(fmt.Errorf("customer payload without id"))
	}

	err := s.store.Upsert(ctx, "customers", "external_id", p.ID.String(), map[string]any{
		"shop_domain": d.ShopDomain,
		"email":       p.Email,
		"first_name":  p.FirstName,
		"last_name":   p.LastName,
		"status":      status,
		"updated_at":  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return webhook.TransientFailure(err)
	}
	return webhook.Handled(map[string]any{"customer_id": p.ID.String(), "status": status})
}
