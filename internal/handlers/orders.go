package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quoteflow/webhookd/internal/webhook"
)

type orderPayload struct {
	ID              json.Number     `json:"id"`
	OrderNumber     json.Number     `json:"order_number"`
	TotalPrice      string          `json:"total_price"`
	Currency        string          `json:"currency"`
	FinancialStatus string          `json:"financial_status"`
	CancelledAt     string          `json:"cancelled_at"`
	NoteAttributes  []noteAttribute `json:"note_attributes"`
}

type noteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// quoteRef returns the quote-id back-reference carried in the order's note
// attributes, or "" when the order did not originate from a quote.
func (p *orderPayload) quoteRef() string {
	for _, a := range p.NoteAttributes {
		if a.Name == "quote_id" {
			return a.Value
		}
	}
	return ""
}

// OrderCreate converts the originating quote (when the order references one)
// and persists the order for analytics. The two writes are independent: no
// cross-write transaction exists, and either may fail on its own. A failed
// quote update with a succeeded order write (or vice versa) is retryable as a
// whole — both writes are idempotent, so redelivery re-applies them safely.
func (s *Set) OrderCreate(ctx context.Context, d *webhook.Delivery) webhook.Outcome {
	var p orderPayload
	if err := decode(d.RawBody, &p); err != nil {
		return webhook.PermanentFailure(err)
	}
	if p.ID.String() == "" {
		return webhook.PermanentFailure(fmt.Errorf("order payload without id"))
	}

	quoteID := p.quoteRef()
	var quoteErr error
	if quoteID != "" {
		quoteErr = s.store.Update(ctx, "quotes", "id", quoteID, map[string]any{
			"status":                 "converted",
			"converted_order_id":     p.ID.String(),
			"converted_order_number": p.OrderNumber.String(),
			"converted_at":           time.Now().UTC().Format(time.RFC3339),
		})
		if quoteErr != nil {
			s.logger.Warn("quote conversion write failed",
				"quote_id", quoteID, "order_id", p.ID.String(), "error", quoteErr)
		}
	}

	orderErr := s.upsertOrder(ctx, d, &p, quoteID)

	if quoteErr != nil || orderErr != nil {
		err := orderErr
		if err == nil {
			err = quoteErr
		}
		return webhook.TransientFailure(err)
	}

	data := map[string]any{"order_id": p.ID.String()}
	if quoteID != "" {
		data["quote_id"] = quoteID
		data["quote_status"] = "converted"
	}
	return webhook.Handled(data)
}

// OrderUpdate handles orders/updated and orders/cancelled: one upsert keyed by
// the external order id. Cancellation arrives as the same shape with
// cancelled_at set, so the variants share this handler.
func (s *Set) OrderUpdate(ctx context.Context, d *webhook.Delivery) webhook.Outcome {
	var p orderPayload
	if err := decode(d.RawBody, &p); err != nil {
		return webhook.PermanentFailure(err)
	}
	if p.ID.String() == "" {
		return webhook.PermanentFailure(fmt.Errorf("order payload without id"))
	}

	if err := s.upsertOrder(ctx, d, &p, p.quoteRef()); err != nil {
		return webhook.TransientFailure(err)
	}
	return webhook.Handled(map[string]any{"order_id": p.ID.String()})
}

func (s *Set) upsertOrder(ctx context.Context, d *webhook.Delivery, p *orderPayload, quoteID string) error {
	fields := map[string]any{
		"shop_domain":      d.ShopDomain,
		"order_number":     p.OrderNumber.String(),
		"total_price":      p.TotalPrice,
		"currency":         p.Currency,
		"financial_status": p.FinancialStatus,
		"updated_at":       time.Now().UTC().Format(time.RFC3339),
	}
	if quoteID != "" {
		fields["quote_id"] = quoteID
	}
	if p.CancelledAt != "" {
		fields["cancelled_at"] = p.CancelledAt
	}
	return s.store.Upsert(ctx, "orders", "external_id", p.ID.String(), fields)
}
